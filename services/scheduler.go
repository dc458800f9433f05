// services/scheduler.go
package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// MaintenanceConfig controls the housekeeping jobs.
type MaintenanceConfig struct {
	MailingSessionTTL time.Duration
	ImpressionMaxAge  time.Duration
	SessionSweep      time.Duration
}

// StartMaintenanceScheduler expires stale mailing sessions and prunes old
// ad-impression keys. Callers must Shutdown the returned scheduler.
func (e *RewardEngine) StartMaintenanceScheduler(sessions *MailingSessionStore, cfg MaintenanceConfig) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(e.loc))
	if err != nil {
		return nil, err
	}
	log := e.log.WithField("component", "scheduler")

	sweep := cfg.SessionSweep
	if sweep <= 0 {
		sweep = 5 * time.Minute
	}

	// Every few minutes: drop mailing flows the admin walked away from
	if sessions != nil && cfg.MailingSessionTTL > 0 {
		_, err = sched.NewJob(
			gocron.DurationJob(sweep),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				n, err := sessions.ExpireStale(ctx, cfg.MailingSessionTTL)
				if err != nil {
					log.WithError(err).Error("[Scheduler] failed to expire mailing sessions")
					return
				}
				if n > 0 {
					log.Infof("🧹 expired %d mailing sessions", n)
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, err
		}
	}

	// Daily at 03:00: prune ad impression dedupe keys
	if cfg.ImpressionMaxAge > 0 {
		_, err = sched.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				defer cancel()
				n, err := e.PruneAdImpressions(ctx, cfg.ImpressionMaxAge)
				if err != nil {
					log.WithError(err).Error("[Scheduler] failed to prune ad impressions")
					return
				}
				log.WithFields(logrus.Fields{"deleted": n}).Info("🧹 pruned ad impressions")
			}),
		)
		if err != nil {
			return nil, err
		}
	}

	sched.Start()
	return sched, nil
}
