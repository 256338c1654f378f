package model

import (
	"time"
)

// Category groups products inside one owner's catalog. Names are unique
// per owner, enforced at the handler with an existence check.
type Category struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	OwnerID     uint      `json:"owner_id" gorm:"index;not null"`
	Owner       *User     `json:"-" gorm:"foreignKey:OwnerID"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	Color       string    `json:"color,omitempty" gorm:"type:varchar(32)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
