package database

import (
	"time"
)

// UserProgress is the completion counter of one subscriber.
type UserProgress struct {
	UserID        string    `json:"user_id"`
	DaysCompleted int       `json:"days_completed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DispatchLogEntry records one attempt to send the daily reading.
type DispatchLogEntry struct {
	ID           string    `json:"id"`
	PlanDate     string    `json:"plan_date"` // YYYY-MM-DD
	PlanDay      int       `json:"plan_day"`
	Recipient    string    `json:"recipient"`
	Success      bool      `json:"success"`
	ProviderID   *string   `json:"provider_id,omitempty"`   // nullable
	ErrorMessage *string   `json:"error_message,omitempty"` // nullable
	SentAt       time.Time `json:"sent_at"`
}
