// services/accounts.go
package services

import (
	"context"
	"errors"
	"fmt"

	"hubcoin-ledger/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Delta maps a counter column to a signed increment.
type Delta map[string]int64

// Mutation is every change one logical operation makes to a single account.
// Inc values are applied server-side; Set values are written as given.
type Mutation struct {
	Inc Delta
	Set map[string]any
}

// Columns that may be incremented. Each of them is kept non-negative.
var counterColumns = map[string]bool{
	"balance":           true,
	"gems":              true,
	"unclaimed_gems":    true,
	"refs":              true,
	"ad_watch":          true,
	"total_ads_watched": true,
	"today_income":      true,
	"total_withdrawn":   true,
	"daily_ref_count":   true,
}

// AccountRepository is the typed access layer over the users table.
// Methods that take a tx are meant to be called inside runInTx.
type AccountRepository struct {
	DB *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{DB: db}
}

// Get loads an account outside any transaction.
func (r *AccountRepository) Get(ctx context.Context, id string) (*models.Account, error) {
	return loadAccount(r.DB.WithContext(ctx), id, false)
}

// GetForUpdate loads an account and locks its row until tx ends.
func (r *AccountRepository) GetForUpdate(tx *gorm.DB, id string) (*models.Account, error) {
	return loadAccount(tx, id, true)
}

// CreateIfAbsent inserts acct unless a row with the same id exists.
// It never overwrites; created is false when the id was already taken.
func (r *AccountRepository) CreateIfAbsent(tx *gorm.DB, acct *models.Account) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(acct)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ApplyDelta submits every increment of one operation as a single UPDATE.
func (r *AccountRepository) ApplyDelta(tx *gorm.DB, id string, delta Delta) error {
	return r.Apply(tx, id, Mutation{Inc: delta})
}

// Apply writes m in one statement. A decrement that would take a counter
// below zero matches no row and fails with ErrNegativeBalance.
func (r *AccountRepository) Apply(tx *gorm.DB, id string, m Mutation) error {
	updates := make(map[string]any, len(m.Inc)+len(m.Set))
	q := tx.Model(&models.Account{}).Where("id = ?", id)
	for col, n := range m.Inc {
		if !counterColumns[col] {
			return fmt.Errorf("%w: %s is not a counter", ErrInputInvalid, col)
		}
		updates[col] = gorm.Expr(col+" + ?", n)
		if n < 0 {
			q = q.Where(col+" >= ?", -n)
		}
	}
	for col, v := range m.Set {
		if _, dup := updates[col]; dup {
			return fmt.Errorf("%w: %s both set and incremented", ErrInputInvalid, col)
		}
		updates[col] = v
	}
	if len(updates) == 0 {
		return nil
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.Model(&models.Account{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrAccountNotFound
	}
	return ErrNegativeBalance
}

// AppendToSet adds value to a set column. Re-adding is a no-op reporting added=false.
func (r *AccountRepository) AppendToSet(tx *gorm.DB, id, field, value string) (bool, error) {
	if field != "completed_tasks" {
		return false, fmt.Errorf("%w: %s is not a set", ErrInputInvalid, field)
	}
	acct, err := r.GetForUpdate(tx, id)
	if err != nil {
		return false, err
	}
	if acct.HasCompleted(value) {
		return false, nil
	}
	tasks := append(models.StringSet{}, acct.CompletedTasks...)
	tasks = append(tasks, value)
	if err := r.Apply(tx, id, Mutation{Set: map[string]any{field: tasks}}); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateProfile refreshes presentation fields only. Empty values are left untouched.
func (r *AccountRepository) UpdateProfile(tx *gorm.DB, id, name, photoURL string) error {
	set := map[string]any{}
	if name != "" {
		set["name"] = name
	}
	if photoURL != "" {
		set["photo_url"] = photoURL
	}
	return r.Apply(tx, id, Mutation{Set: set})
}

// EachIDBatch walks every account id in primary-key order, batchSize at a time.
func (r *AccountRepository) EachIDBatch(ctx context.Context, batchSize int, fn func(ids []string) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	var batch []models.Account
	return r.DB.WithContext(ctx).
		Model(&models.Account{}).
		Select("id").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			ids := make([]string, 0, len(batch))
			for _, a := range batch {
				ids = append(ids, a.ID)
			}
			return fn(ids)
		}).Error
}

func loadAccount(tx *gorm.DB, id string, lock bool) (*models.Account, error) {
	q := tx
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var acct models.Account
	if err := q.First(&acct, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	acct.ApplyDefaults()
	return &acct, nil
}
