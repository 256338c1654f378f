package model

import (
	"time"
)

// Roles supported by the API. Every data row is scoped to an Owner;
// Cashiers operate inside their Owner's scope and never own rows.
const (
	RoleOwner   = "Owner"
	RoleCashier = "Cashier"
)

// User represents both Owner accounts and their Cashier sub-accounts.
// Cashier rows carry the id of their Owner in OwnerID; Owner rows have
// OwnerID = null.
type User struct {
	ID                  uint       `json:"id" gorm:"primarykey"`
	UserName            string     `json:"username" gorm:"type:varchar(64);not null"`
	Email               string     `json:"email" gorm:"type:varchar(100);index;not null"`
	PasswordHash        string     `json:"-" gorm:"type:varchar(255);not null"`
	BusinessName        string     `json:"business_name" gorm:"type:varchar(100)"`
	BusinessDescription string     `json:"business_description,omitempty" gorm:"type:text"`
	Role                string     `json:"role" gorm:"type:varchar(16);not null"`
	OwnerID             *uint      `json:"owner_id,omitempty" gorm:"index"`
	Owner               *User      `json:"-" gorm:"foreignKey:OwnerID"`
	IsDeactivated       bool       `json:"is_deactivated" gorm:"default:false"`
	IsDeleted           bool       `json:"-" gorm:"default:false"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
