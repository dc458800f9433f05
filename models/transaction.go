package models

import "time"

// TransactionType is the direction of an audit entry.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
)

// Transaction is an append-only audit record. The engine never reads it back.
type Transaction struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	UserID      string          `gorm:"index;not null;size:32" json:"userId"`
	Description string          `gorm:"not null" json:"description"`
	Amount      int64           `gorm:"not null" json:"amount"`
	Type        TransactionType `gorm:"size:16;not null" json:"type"`
	Timestamp   time.Time       `gorm:"autoCreateTime" json:"timestamp"`
}
