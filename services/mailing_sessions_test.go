package services

import (
	"context"
	"testing"
	"time"

	"hubcoin-ledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailingSessionStore(t *testing.T) {
	db := setupTestDB(t)
	clock := &testClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	store := NewMailingSessionStore(db)
	store.Now = clock.Now
	ctx := context.Background()

	sess, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.MailingIdle, sess.State)

	require.NoError(t, store.Save(ctx, &models.MailingSession{AdminID: 42, State: models.MailingAwaitingMessage}))
	require.NoError(t, store.Save(ctx, &models.MailingSession{
		AdminID:         42,
		State:           models.MailingAwaitingConfirmation,
		SourceChatID:    42,
		SourceMessageID: 7,
	}))

	sess, err = store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.MailingAwaitingConfirmation, sess.State)
	assert.Equal(t, 7, sess.SourceMessageID)
}

func TestMailingSessionTransitionGuards(t *testing.T) {
	db := setupTestDB(t)
	store := NewMailingSessionStore(db)
	ctx := context.Background()
	confirmable := []models.MailingState{models.MailingAwaitingConfirmation}

	_, ok, err := store.Transition(ctx, 1, confirmable, models.MailingIdle)
	require.NoError(t, err)
	assert.False(t, ok, "no session yet")

	require.NoError(t, store.Save(ctx, &models.MailingSession{
		AdminID: 1, State: models.MailingAwaitingConfirmation, SourceChatID: 1, SourceMessageID: 3,
	}))

	prev, ok, err := store.Transition(ctx, 1, confirmable, models.MailingIdle)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, prev.SourceMessageID)

	_, ok, err = store.Transition(ctx, 1, confirmable, models.MailingIdle)
	require.NoError(t, err)
	assert.False(t, ok, "second confirm must not fire")
}

func TestMailingSessionExpireStale(t *testing.T) {
	db := setupTestDB(t)
	clock := &testClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	store := NewMailingSessionStore(db)
	store.Now = clock.Now
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.MailingSession{AdminID: 1, State: models.MailingAwaitingMessage}))
	clock.Advance(time.Hour)
	require.NoError(t, store.Save(ctx, &models.MailingSession{AdminID: 2, State: models.MailingAwaitingMessage}))

	n, err := store.ExpireStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	sess, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.MailingIdle, sess.State)
	sess, err = store.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.MailingAwaitingMessage, sess.State)
}
