package services

import (
	"context"
	"sync"
	"time"

	"hubcoin-ledger/metrics"

	"github.com/sirupsen/logrus"
)

// Notifier delivers a text message to a user. Implementations may fail freely.
type Notifier interface {
	Notify(ctx context.Context, userID, text string) error
}

// LogNotifier only logs; used when the chat bot is disabled.
type LogNotifier struct {
	Log *logrus.Entry
}

func (n LogNotifier) Notify(_ context.Context, userID, text string) error {
	if n.Log != nil {
		n.Log.WithField("user_id", userID).Debugf("📨 notification (bot disabled): %s", text)
	}
	return nil
}

// Dispatcher sends notifications out-of-band. Each message is attempted once;
// failures are logged and counted, never returned to the caller.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	log      *logrus.Entry
	wg       sync.WaitGroup
}

func NewDispatcher(n Notifier, log *logrus.Entry) *Dispatcher {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Dispatcher{notifier: n, timeout: 15 * time.Second, log: log}
}

// Dispatch returns immediately.
func (d *Dispatcher) Dispatch(userID, text string) {
	if d == nil || d.notifier == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		err := d.notifier.Notify(ctx, userID, text)
		metrics.Ledger().ObserveNotification(err == nil)
		if err != nil {
			d.log.WithError(err).WithField("user_id", userID).Warn("⚠️ failed to notify user")
		}
	}()
}

// Wait blocks until every dispatched notification has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
