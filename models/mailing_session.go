package models

import "time"

// MailingState is a step of the admin broadcast flow.
type MailingState string

const (
	MailingIdle                 MailingState = "idle"
	MailingAwaitingMessage      MailingState = "awaiting_message"
	MailingAwaitingConfirmation MailingState = "awaiting_confirmation"
)

// MailingSession tracks one admin's broadcast flow. Regular users never get a row.
type MailingSession struct {
	AdminID         int64        `gorm:"primaryKey;autoIncrement:false" json:"admin_id"`
	State           MailingState `gorm:"size:32;not null;default:'idle'" json:"state"`
	SourceChatID    int64        `json:"source_chat_id"`
	SourceMessageID int          `json:"source_message_id"`
	UpdatedAt       time.Time    `gorm:"autoUpdateTime;index" json:"updated_at"`
}
