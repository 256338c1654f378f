package model

import (
	"time"
)

// Product is an owner-scoped catalog item. CategoryID is optional; when
// the referenced category is removed the store constraint nulls it out.
type Product struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	OwnerID     uint      `json:"owner_id" gorm:"index;not null"`
	Owner       *User     `json:"-" gorm:"foreignKey:OwnerID"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	Price       float64   `json:"price" gorm:"not null"`
	Discount    float64   `json:"discount" gorm:"default:0"`
	CategoryID  *uint     `json:"category_id,omitempty" gorm:"index"`
	Category    *Category `json:"-" gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	ImageURL    string    `json:"image_url,omitempty" gorm:"type:varchar(512)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
