package models

import (
	"time"

	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
)

// Transaction is the terminal record of a purchase attempt. A partial unique
// index on (intent_mandate_id) where status = 'authorized' enforces the
// at-most-once guarantee at the storage layer.
type Transaction struct {
	ID                string                  `gorm:"column:id;primaryKey"`
	IntentMandateID   string                  `gorm:"column:intent_mandate_id;not null;index"`
	CartMandateID     string                  `gorm:"column:cart_mandate_id;not null"`
	PaymentMandateID  string                  `gorm:"column:payment_mandate_id;not null"`
	UserID            string                  `gorm:"column:user_id;not null;index"`
	Status            enums.TransactionStatus `gorm:"column:status;not null;index"`
	AuthorizationCode *string                 `gorm:"column:authorization_code"`
	DeclineReason     *string                 `gorm:"column:decline_reason"`
	AmountCents       int64                   `gorm:"column:amount_cents;not null"`
	Currency          enums.Currency          `gorm:"column:currency;not null;default:'USD'"`
	HumanPresent      bool                    `gorm:"column:human_present;not null;default:false"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (Transaction) TableName() string {
	return "transactions"
}
