package models

import (
	"strings"
	"time"
)

const (
	ItemStatusActive   = "active"
	ItemStatusInactive = "inactive"

	PlaceholderImage = "https://via.placeholder.com/400x300?text=No+Image"
)

type MenuItem struct {
	ID          ID        `gorm:"primaryKey;type:varchar(64)" json:"id" dynamodbav:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name" dynamodbav:"name"`
	Description string    `gorm:"type:text" json:"description" dynamodbav:"description"`
	Price       float64   `gorm:"type:decimal(10,2)" json:"price" dynamodbav:"price"`
	Category    string    `gorm:"type:varchar(50);index" json:"category" dynamodbav:"category"`
	Image       string    `gorm:"type:varchar(1024)" json:"image" dynamodbav:"image"`
	Status      string    `gorm:"type:varchar(20)" json:"status,omitempty" dynamodbav:"status,omitempty"`
	CreatedAt   time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}

func (MenuItem) TableName() string {
	return "menu_items"
}

// Available reports whether the storefront shows the item. Items without a
// status predate the field and count as active.
func (m MenuItem) Available() bool {
	return m.Status == "" || m.Status == ItemStatusActive
}

// MenuItemFields is the editable part of a MenuItem. Nil pointers are left
// untouched by an update.
type MenuItemFields struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Category    *string  `json:"category"`
	Image       *string  `json:"image"`
	Status      *string  `json:"status"`
}

// Apply copies the provided fields onto m.
func (f MenuItemFields) Apply(m *MenuItem) {
	if f.Name != nil {
		m.Name = *f.Name
	}
	if f.Description != nil {
		m.Description = *f.Description
	}
	if f.Price != nil {
		m.Price = *f.Price
	}
	if f.Category != nil {
		m.Category = NormalizeCategory(*f.Category)
	}
	if f.Image != nil {
		m.Image = *f.Image
	}
	if f.Status != nil {
		m.Status = *f.Status
	}
}

func NormalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
