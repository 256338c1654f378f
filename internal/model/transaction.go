package model

import (
	"time"
)

// Transaction is one sale. Details are written together with the parent
// row in a single database transaction; deletes cascade to details first.
type Transaction struct {
	ID            uint                `json:"id" gorm:"primarykey"`
	OwnerID       uint                `json:"owner_id" gorm:"index;not null"`
	Owner         *User               `json:"-" gorm:"foreignKey:OwnerID"`
	IsPaid        bool                `json:"is_paid" gorm:"default:false"`
	PaymentMethod string              `json:"payment_method" gorm:"type:varchar(64);not null"`
	Code          string              `json:"code" gorm:"type:varchar(32);not null"`
	IsDeleted     bool                `json:"-" gorm:"default:false"`
	Details       []TransactionDetail `json:"details,omitempty" gorm:"foreignKey:TransactionID"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// TransactionDetail is one product-quantity line inside a transaction.
type TransactionDetail struct {
	ID            uint      `json:"id" gorm:"primarykey"`
	TransactionID uint      `json:"transaction_id" gorm:"index;not null"`
	ProductID     uint      `json:"product_id" gorm:"index;not null"`
	Product       *Product  `json:"-" gorm:"foreignKey:ProductID"`
	Quantity      int       `json:"quantity" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
