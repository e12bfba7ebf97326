package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultLowStockThreshold applies when a product carries no usable threshold.
const DefaultLowStockThreshold = 10

// Product represents a catalog item with its pricing, stock and metadata.
type Product struct {
	ID                uuid.UUID
	Name              string
	MRP               float64
	SellingPrice      float64
	Margin            float64
	Quantity          int
	LowStockThreshold int
	Category          string
	Description       string
	ImageURL          string
	UpdatedAt         time.Time
	CreatedAt         time.Time
}

// InitMeta initializes the product metadata including ID and timestamps.
func (p *Product) InitMeta() {
	p.ID = uuid.New()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
}

// Threshold returns the effective low-stock threshold.
func (p *Product) Threshold() int {
	if p.LowStockThreshold <= 0 {
		return DefaultLowStockThreshold
	}
	return p.LowStockThreshold
}

// IsLowStock reports whether the quantity is at or below the threshold.
func (p *Product) IsLowStock() bool {
	return p.Quantity <= p.Threshold()
}
