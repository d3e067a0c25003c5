package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus constants
const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

// Order represents a customer order; tax is computed from the customer and
// seller states, commission on completion.
type Order struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	OrderCode     string      `gorm:"type:varchar(100);uniqueIndex;not null" json:"order_code"`
	CustomerID    *uuid.UUID  `gorm:"type:uuid;index" json:"customer_id"`
	CustomerState string      `gorm:"type:varchar(100);not null" json:"customer_state"`
	SellerState   string      `gorm:"type:varchar(100);not null" json:"seller_state"`
	Status        string      `gorm:"type:varchar(20);default:'PENDING';index" json:"status"`
	Note          string      `gorm:"type:text" json:"note"`
	Items         []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt     time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem represents a line item within an Order
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   Product         `gorm:"foreignKey:ProductID" json:"-"`
	Quantity  int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`

	// Per-item tax overrides; nil falls back to the product, then the category
	TaxCategory     *string `gorm:"type:varchar(50)" json:"tax_category"`
	TaxCalcOverride *string `gorm:"type:varchar(20)" json:"tax_calc_override"`
}

func (i *OrderItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TotalAmount returns quantity x unit price
func (i *OrderItem) TotalAmount() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
