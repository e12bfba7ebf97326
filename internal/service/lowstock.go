package service

import "github.com/iyhunko/catalog-admin/internal/model"

// LowStock returns the products whose quantity is at or below their threshold,
// keeping the input order.
func LowStock(products []*model.Product) []*model.Product {
	low := []*model.Product{}
	for _, p := range products {
		if p.IsLowStock() {
			low = append(low, p)
		}
	}
	return low
}
