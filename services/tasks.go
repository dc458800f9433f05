// services/tasks.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hubcoin-ledger/models"

	"gorm.io/gorm"
)

type TaskResult struct {
	TaskID           string
	AlreadyCompleted bool
	Granted          int64
	Observed         float64
}

// VerifyTask checks an external task against the partner service and pays
// its reward once. A completed task short-circuits before any external call.
func (e *RewardEngine) VerifyTask(ctx context.Context, userID, taskID string, payload map[string]string) (TaskResult, error) {
	res, err := e.verifyTask(ctx, userID, taskID, payload)
	e.observe("verify_task", err)
	if err == nil {
		e.metrics.AddGranted("gems", "task", res.Granted)
	}
	return res, err
}

func (e *RewardEngine) verifyTask(ctx context.Context, userID, taskID string, payload map[string]string) (TaskResult, error) {
	res := TaskResult{TaskID: taskID}
	userID, err := requireUserID(userID)
	if err != nil {
		return res, err
	}
	task, ok := e.tasks[taskID]
	if !ok {
		return res, fmt.Errorf("%w %q", ErrUnknownTask, taskID)
	}
	log := e.log.WithField("user_id", userID).WithField("task_id", taskID)

	acct, err := e.Accounts.Get(ctx, userID)
	if err != nil {
		return res, err
	}
	if acct.HasCompleted(taskID) {
		res.AlreadyCompleted = true
		return res, nil
	}

	if e.partner == nil {
		return res, fmt.Errorf("%w: no balance checker", ErrVerificationUnavailable)
	}
	observed, err := e.partner.Balance(ctx, userID, payload)
	if err != nil {
		log.WithError(err).Warn("⚠️ partner verification failed")
		return res, err
	}
	res.Observed = observed
	if observed < task.Threshold {
		return res, &NotQualifiedError{TaskID: taskID, Observed: observed, Required: task.Threshold}
	}

	err = runInTx(ctx, e.db, func(tx *gorm.DB) error {
		res.AlreadyCompleted = false
		res.Granted = 0
		added, err := e.Accounts.AppendToSet(tx, userID, "completed_tasks", taskID)
		if err != nil {
			return err
		}
		if !added {
			// Lost a race with a concurrent verification of the same task.
			res.AlreadyCompleted = true
			return nil
		}
		res.Granted = task.Reward
		return e.Accounts.ApplyDelta(tx, userID, Delta{"gems": task.Reward})
	})
	if err != nil {
		return TaskResult{TaskID: taskID}, err
	}
	if res.Granted > 0 {
		log.Infof("🎯 task completed, +%d gems", res.Granted)
	}
	return res, nil
}

// HumanVerification is the payload of the verify-human form.
type HumanVerification struct {
	UserID   string
	Name     string
	Age      string
	District string
}

// VerifyHuman marks the account verified and stores the submitted form.
func (e *RewardEngine) VerifyHuman(ctx context.Context, v HumanVerification) error {
	err := e.verifyHuman(ctx, v)
	e.observe("verify_human", err)
	return err
}

func (e *RewardEngine) verifyHuman(ctx context.Context, v HumanVerification) error {
	userID, err := requireUserID(v.UserID)
	if err != nil {
		return err
	}
	name := normalizeName(v.Name)
	age := strings.TrimSpace(v.Age)
	district := strings.TrimSpace(v.District)
	if name == "" || age == "" || district == "" {
		return fmt.Errorf("%w: name, age and district are required", ErrInputInvalid)
	}

	return runInTx(ctx, e.db, func(tx *gorm.DB) error {
		acct, err := e.Accounts.GetForUpdate(tx, userID)
		if err != nil {
			return err
		}
		if acct.IsVerified {
			return ErrAlreadyVerified
		}
		tasks := append(models.StringSet{}, acct.CompletedTasks...)
		if !acct.HasCompleted(models.HumanVerificationTask) {
			tasks = append(tasks, models.HumanVerificationTask)
		}
		return e.Accounts.Apply(tx, userID, Mutation{Set: map[string]any{
			"is_verified": true,
			"verification_data": models.JSONMap{
				"name":        name,
				"age":         age,
				"district":    district,
				"submittedAt": e.now().UTC().Format(time.RFC3339),
			},
			"completed_tasks": tasks,
		}})
	})
}
