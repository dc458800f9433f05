// workers/broadcast.go
package workers

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"hubcoin-ledger/metrics"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// MessageCopier copies one existing chat message to a recipient.
type MessageCopier interface {
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) error
}

// RecipientSource walks every recipient id in batches.
type RecipientSource interface {
	EachIDBatch(ctx context.Context, batchSize int, fn func(ids []string) error) error
}

type BroadcastReport struct {
	Success int64
	Failure int64
}

func (r BroadcastReport) String() string {
	return fmt.Sprintf("Broadcast finished.\n✅ Successfully sent to: %d users.\n❌ Failed to send to: %d users.", r.Success, r.Failure)
}

// BroadcastWorker fans a message out to every account. Delivery order is
// unspecified and one failed recipient never stops the others.
type BroadcastWorker struct {
	recipients  RecipientSource
	copier      MessageCopier
	limiter     *rate.Limiter
	concurrency int
	batchSize   int
	log         *logrus.Entry
}

type BroadcastOptions struct {
	Concurrency    int
	BatchSize      int
	MessagesPerSec float64
}

func NewBroadcastWorker(recipients RecipientSource, copier MessageCopier, opts BroadcastOptions) *BroadcastWorker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.MessagesPerSec <= 0 {
		// Telegram's documented bulk limit is about 30 messages per second.
		opts.MessagesPerSec = 25
	}
	return &BroadcastWorker{
		recipients:  recipients,
		copier:      copier,
		limiter:     rate.NewLimiter(rate.Limit(opts.MessagesPerSec), opts.Concurrency),
		concurrency: opts.Concurrency,
		batchSize:   opts.BatchSize,
		log:         logrus.WithField("component", "broadcast"),
	}
}

// Broadcast copies (fromChatID, messageID) to every recipient and tallies
// the outcome. It only returns an error when recipients cannot be listed or
// ctx ends; partial tallies are returned either way.
func (w *BroadcastWorker) Broadcast(ctx context.Context, fromChatID int64, messageID int) (BroadcastReport, error) {
	var success, failure atomic.Int64
	m := metrics.Ledger()

	w.log.Infof("📣 broadcast of message %d started", messageID)
	err := w.recipients.EachIDBatch(ctx, w.batchSize, func(ids []string) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.concurrency)
		for _, id := range ids {
			id := id
			g.Go(func() error {
				if err := w.limiter.Wait(gctx); err != nil {
					return err
				}
				chatID, err := strconv.ParseInt(id, 10, 64)
				if err == nil {
					err = w.copier.CopyMessage(gctx, chatID, fromChatID, messageID)
				}
				m.ObserveBroadcast(err == nil)
				if err != nil {
					failure.Add(1)
					w.log.WithError(err).WithField("user_id", id).Debug("broadcast delivery failed")
					return nil
				}
				success.Add(1)
				return nil
			})
		}
		return g.Wait()
	})

	report := BroadcastReport{Success: success.Load(), Failure: failure.Load()}
	if err != nil {
		w.log.WithError(err).Errorf("❌ broadcast aborted after %d sent, %d failed", report.Success, report.Failure)
		return report, err
	}
	w.log.Infof("✅ broadcast done: %d sent, %d failed", report.Success, report.Failure)
	return report, nil
}
