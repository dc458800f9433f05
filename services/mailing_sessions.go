// services/mailing_sessions.go
package services

import (
	"context"
	"errors"
	"time"

	"hubcoin-ledger/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MailingSessionStore persists the admin broadcast state, one row per admin.
type MailingSessionStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewMailingSessionStore(db *gorm.DB) *MailingSessionStore {
	return &MailingSessionStore{DB: db, Now: time.Now}
}

// Get returns the admin's session; a missing row is an idle session.
func (s *MailingSessionStore) Get(ctx context.Context, adminID int64) (*models.MailingSession, error) {
	var sess models.MailingSession
	err := s.DB.WithContext(ctx).First(&sess, "admin_id = ?", adminID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.MailingSession{AdminID: adminID, State: models.MailingIdle}, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Save upserts the whole session.
func (s *MailingSessionStore) Save(ctx context.Context, sess *models.MailingSession) error {
	sess.UpdatedAt = s.now()
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "admin_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "source_chat_id", "source_message_id", "updated_at"}),
	}).Create(sess).Error
}

// Transition moves the session from one of the allowed states to next in a
// single conditional update. ok is false when the session was not in any
// allowed state, which makes a second concurrent confirm a no-op.
func (s *MailingSessionStore) Transition(ctx context.Context, adminID int64, from []models.MailingState, next models.MailingState) (*models.MailingSession, bool, error) {
	var prev models.MailingSession
	ok := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&prev, "admin_id = ?", adminID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			prev = models.MailingSession{AdminID: adminID, State: models.MailingIdle}
			return nil
		}
		if err != nil {
			return err
		}
		allowed := false
		for _, st := range from {
			if prev.State == st {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil
		}
		res := tx.Model(&models.MailingSession{}).
			Where("admin_id = ? AND state = ?", adminID, prev.State).
			Updates(map[string]any{"state": next, "updated_at": s.now()})
		if res.Error != nil {
			return res.Error
		}
		ok = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &prev, ok, nil
}

// ExpireStale resets sessions that have not moved for longer than ttl.
func (s *MailingSessionStore) ExpireStale(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := s.now().Add(-ttl)
	res := s.DB.WithContext(ctx).Model(&models.MailingSession{}).
		Where("state <> ? AND updated_at < ?", models.MailingIdle, cutoff).
		Updates(map[string]any{"state": models.MailingIdle, "updated_at": s.now()})
	return res.RowsAffected, res.Error
}

func (s *MailingSessionStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
