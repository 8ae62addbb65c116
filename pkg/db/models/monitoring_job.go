package models

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
)

// MonitoringJob tracks one background condition watch tied to a signed intent
// mandate. Constraints are snapshotted at registration so later mutation of
// the mandate row cannot change what the watcher enforces.
type MonitoringJob struct {
	ID               string          `gorm:"column:id;primaryKey"`
	IntentMandateID  string          `gorm:"column:intent_mandate_id;not null;uniqueIndex"`
	UserID           string          `gorm:"column:user_id;not null;index"`
	ProductQuery     string          `gorm:"column:product_query;not null"`
	Constraints      json.RawMessage `gorm:"column:constraints;type:jsonb;not null"`
	MaxTotalCents    int64           `gorm:"column:max_total_cents;not null"`
	IntervalSeconds  int             `gorm:"column:interval_seconds;not null"`
	Status           enums.JobStatus `gorm:"column:status;not null;default:'active';index"`
	FailureReason    *string         `gorm:"column:failure_reason"`
	ChecksPerformed  int             `gorm:"column:checks_performed;not null;default:0"`
	LastCheckAt      *time.Time      `gorm:"column:last_check_at"`
	CompletedAt      *time.Time      `gorm:"column:completed_at"`
	TransactionID    *string         `gorm:"column:transaction_id"`
	ExpiresAt        time.Time       `gorm:"column:expires_at;not null;index"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (MonitoringJob) TableName() string {
	return "monitoring_jobs"
}

// Expired reports whether the job has passed its deadline at the given instant.
func (j MonitoringJob) Expired(now time.Time) bool {
	return !now.Before(j.ExpiresAt)
}
