package models

import (
	"time"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Order is a denormalized snapshot taken at checkout. Items holds names
// only and Total is never recomputed.
type Order struct {
	ID           ID        `gorm:"primaryKey;type:varchar(64)" json:"id" dynamodbav:"id"`
	Customer     string    `gorm:"type:varchar(100);index" json:"customer" dynamodbav:"customer"`
	CustomerName string    `gorm:"type:varchar(100)" json:"customerName,omitempty" dynamodbav:"customerName,omitempty"`
	UserID       string    `gorm:"type:varchar(100);index" json:"userId,omitempty" dynamodbav:"userId,omitempty"`
	Items        []string  `gorm:"serializer:json" json:"items" dynamodbav:"items"`
	Total        float64   `gorm:"type:decimal(10,2)" json:"total" dynamodbav:"total"`
	Status       string    `gorm:"type:varchar(20);default:'pending'" json:"status" dynamodbav:"status"`
	Date         string    `gorm:"type:varchar(10)" json:"date" dynamodbav:"date"`
	OrderedAt    time.Time `json:"orderedAt" dynamodbav:"orderedAt"`
	CreatedAt    time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}

func (Order) TableName() string {
	return "orders"
}
