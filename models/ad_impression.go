package models

import "time"

// AdImpression records a provider impression id that has already been paid.
type AdImpression struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Provider     string    `gorm:"size:64;not null;uniqueIndex:idx_ad_impression" json:"provider"`
	ImpressionID string    `gorm:"size:191;not null;uniqueIndex:idx_ad_impression" json:"impression_id"`
	UserID       string    `gorm:"index;size:32;not null" json:"user_id"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
