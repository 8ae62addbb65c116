package models

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
)

// MandateRecord persists a signed (or pending) mandate document alongside its
// signature envelope. The payload column holds the exact document the
// signature covers; re-verification always reads from here.
type MandateRecord struct {
	ID             string            `gorm:"column:id;primaryKey"`
	MandateType    enums.MandateType `gorm:"column:mandate_type;not null;index"`
	UserID         string            `gorm:"column:user_id;not null;index"`
	Scenario       enums.Scenario    `gorm:"column:scenario;not null"`
	Payload        json.RawMessage   `gorm:"column:payload;type:jsonb;not null"`
	SignerIdentity string            `gorm:"column:signer_identity"`
	SignerRole     enums.SignerRole  `gorm:"column:signer_role"`
	Algorithm      string            `gorm:"column:algorithm"`
	Signature      string            `gorm:"column:signature"`
	SignedAt       *time.Time        `gorm:"column:signed_at"`
	TransactionID  *string           `gorm:"column:transaction_id;index"`
	ExpiresAt      *time.Time        `gorm:"column:expires_at;index"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (MandateRecord) TableName() string {
	return "mandates"
}

// Signed reports whether the record carries a signature envelope.
func (m MandateRecord) Signed() bool {
	return m.Signature != "" && m.SignerIdentity != ""
}
