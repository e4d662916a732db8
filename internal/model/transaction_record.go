package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction record kinds.
const (
	RecordKindSale    = "sale"
	RecordKindExpense = "expense"
)

// TransactionRecord is one finalized point-of-sale or coworking transaction.
// Records are append-only upstream: re-reading a fixed window yields the same
// set, which is what makes period aggregation deterministic.
type TransactionRecord struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Kind string    `gorm:"type:varchar(20);not null;default:'sale'" json:"kind"`

	// OccurredAt is the business timestamp used for window membership,
	// distinct from the row's CreatedAt.
	OccurredAt time.Time `gorm:"not null;index" json:"occurred_at"`

	Total decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total"`
	Cost  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"cost"`

	PaymentMethod string `gorm:"type:varchar(30);not null" json:"payment_method"`
	ServiceType   string `gorm:"type:varchar(30);not null" json:"service_type"`

	ProductName string          `gorm:"type:varchar(120)" json:"product_name"`
	Quantity    int             `gorm:"not null;default:1" json:"quantity"`
	Revenue     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"revenue"`

	CreatedBy string    `gorm:"type:varchar(80)" json:"created_by"`
	IsDeleted bool      `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
}

func (TransactionRecord) TableName() string { return "transaction_records" }
