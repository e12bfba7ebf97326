package sqs

import "github.com/iyhunko/catalog-admin/internal/model"

// Catalog notification actions.
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionLowStock = "low_stock"
)

// ProductMessage represents a message about a product event.
type ProductMessage struct {
	Action       string  `json:"action"`
	ProductID    string  `json:"product_id"`
	Name         string  `json:"name"`
	Category     string  `json:"category,omitempty"`
	Quantity     int     `json:"quantity"`
	Threshold    int     `json:"threshold,omitempty"`
	MRP          float64 `json:"mrp"`
	SellingPrice float64 `json:"selling_price"`
}

// NewProductMessage builds the notification for a product.
func NewProductMessage(action string, p *model.Product) ProductMessage {
	msg := ProductMessage{
		Action:       action,
		ProductID:    p.ID.String(),
		Name:         p.Name,
		Category:     p.Category,
		Quantity:     p.Quantity,
		MRP:          p.MRP,
		SellingPrice: p.SellingPrice,
	}
	if action == ActionLowStock {
		msg.Threshold = p.Threshold()
	}
	return msg
}
