package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/metrics"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/iyhunko/catalog-admin/internal/pricing"
	"github.com/iyhunko/catalog-admin/internal/repository"
	reposql "github.com/iyhunko/catalog-admin/internal/repository/sql"
	"github.com/iyhunko/catalog-admin/internal/sqs"
)

// ErrMissingSellingPrice is returned when a product has an MRP but no selling
// price and the caller may not derive one from the margin policy.
var ErrMissingSellingPrice = errors.New("missing selling price")

// ErrNoListPrice is returned when a product without a positive MRP is repriced.
var ErrNoListPrice = errors.New("product has no MRP to price from")

// ProductFields are the user-editable attributes of a product.
type ProductFields struct {
	Name              string
	MRP               float64
	SellingPrice      float64
	Quantity          int
	LowStockThreshold int
	Category          string
	Description       string
	ImageURL          string
}

// CatalogService reads and writes catalog products. Every write commits its
// outbox events in the same transaction.
type CatalogService struct {
	products repository.Repository
	tx       repository.CatalogTransactor
	policies repository.MarginPolicyStore
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(products repository.Repository, tx repository.CatalogTransactor, policies repository.MarginPolicyStore) *CatalogService {
	return &CatalogService{
		products: products,
		tx:       tx,
		policies: policies,
	}
}

// Get returns a single product.
func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	res, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	product, ok := res.(*model.Product)
	if !ok {
		return nil, repository.ErrInvalidType
	}
	return product, nil
}

// ListProducts returns one page of products, newest first.
func (s *CatalogService) ListProducts(ctx context.Context, query repository.Query) ([]*model.Product, error) {
	resources, err := s.products.List(ctx, query)
	if err != nil {
		return nil, err
	}

	products := make([]*model.Product, 0, len(resources))
	for _, res := range resources {
		product, ok := res.(*model.Product)
		if !ok {
			return nil, repository.ErrInvalidType
		}
		products = append(products, product)
	}
	return products, nil
}

// ListAll pages through the whole catalog, newest first.
func (s *CatalogService) ListAll(ctx context.Context) ([]*model.Product, error) {
	var all []*model.Product
	query := repository.NewQuery()
	query.Limit = repository.MaxPaginationLimit

	for {
		page, err := s.ListProducts(ctx, *query)
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		all = append(all, page...)
		if len(page) < query.Limit {
			return all, nil
		}
		last := page[len(page)-1]
		query.Paginator = repository.NextPage(last.ID, last.CreatedAt)
	}
}

// CurrentPolicy returns the saved margin policy or the default one.
func (s *CatalogService) CurrentPolicy(ctx context.Context) (model.MarginPolicy, error) {
	policy, found, err := s.policies.Get(ctx)
	if err != nil {
		return model.MarginPolicy{}, fmt.Errorf("failed to load margin policy: %w", err)
	}
	if !found {
		return model.DefaultMarginPolicy(), nil
	}
	return *policy, nil
}

// Create stores a new product. Privileged callers get the selling price derived
// from the margin policy when they leave it empty.
func (s *CatalogService) Create(ctx context.Context, fields ProductFields, privileged bool) (*model.Product, error) {
	var policy *model.MarginPolicy
	if privileged && fields.SellingPrice == 0 && fields.MRP > 0 {
		p, err := s.CurrentPolicy(ctx)
		if err != nil {
			return nil, err
		}
		policy = &p
	}
	return s.CreateWithPolicy(ctx, fields, policy)
}

// CreateWithPolicy stores a new product deriving a missing selling price from
// policy. A nil policy means the caller may not derive prices.
func (s *CatalogService) CreateWithPolicy(ctx context.Context, fields ProductFields, policy *model.MarginPolicy) (*model.Product, error) {
	product := &model.Product{}
	if err := applyFields(product, fields, policy); err != nil {
		return nil, err
	}
	product.InitMeta()

	events, err := productEvents(sqs.ActionCreated, model.EventProductCreated, product, product.IsLowStock())
	if err != nil {
		return nil, err
	}

	created, err := s.tx.CreateProductWithEvents(ctx, product, events...)
	if err != nil {
		return nil, err
	}

	metrics.ProductsCreated.Inc()
	if created.IsLowStock() {
		metrics.LowStockAlerts.Inc()
	}
	slog.Info("Product created", slog.String("id", created.ID.String()), slog.String("name", created.Name))
	return created, nil
}

// Update overwrites the editable fields of an existing product.
func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, fields ProductFields, privileged bool) (*model.Product, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var policy *model.MarginPolicy
	if privileged && fields.SellingPrice == 0 && fields.MRP > 0 {
		p, err := s.CurrentPolicy(ctx)
		if err != nil {
			return nil, err
		}
		policy = &p
	}

	updated := *existing
	if err := applyFields(&updated, fields, policy); err != nil {
		return nil, err
	}

	// alert on entering low stock or on a stock change while already low
	alert := updated.IsLowStock() && (!existing.IsLowStock() || updated.Quantity != existing.Quantity)
	events, err := productEvents(sqs.ActionUpdated, model.EventProductUpdated, &updated, alert)
	if err != nil {
		return nil, err
	}

	if err := s.tx.UpdateProductWithEvents(ctx, &updated, events...); err != nil {
		return nil, err
	}

	metrics.ProductsUpdated.Inc()
	if alert {
		metrics.LowStockAlerts.Inc()
	}
	return &updated, nil
}

// UpdatePricing reprices a product under policy and returns the stored result.
// Selling price and margin are derived from the MRP read inside the write
// transaction, never from a caller's copy. Nothing else is touched. A product
// whose stored MRP is not positive fails with ErrNoListPrice.
func (s *CatalogService) UpdatePricing(ctx context.Context, id uuid.UUID, policy model.MarginPolicy) (*model.Product, error) {
	updated, err := s.tx.RepriceWithEvents(ctx, id, func(stored *model.Product) ([]*model.Event, error) {
		selling, ok := pricing.DerivedSellingPrice(stored.MRP, policy)
		if !ok {
			return nil, ErrNoListPrice
		}
		stored.SellingPrice = selling
		stored.Margin = pricing.MarginPercent(stored.MRP, selling)

		event, err := reposql.CreateEvent(model.EventProductUpdated, sqs.NewProductMessage(sqs.ActionUpdated, stored))
		if err != nil {
			return nil, err
		}
		return []*model.Event{event}, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ProductsUpdated.Inc()
	return updated, nil
}

// Delete removes a product.
func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	event, err := reposql.CreateEvent(model.EventProductDeleted, sqs.NewProductMessage(sqs.ActionDeleted, product))
	if err != nil {
		return err
	}

	if err := s.tx.DeleteProductWithEvent(ctx, id, event); err != nil {
		return err
	}

	metrics.ProductsDeleted.Inc()
	slog.Info("Product deleted", slog.String("id", id.String()))
	return nil
}

func applyFields(product *model.Product, fields ProductFields, policy *model.MarginPolicy) error {
	selling := fields.SellingPrice
	if selling == 0 && fields.MRP > 0 {
		if policy == nil {
			return ErrMissingSellingPrice
		}
		selling, _ = pricing.DerivedSellingPrice(fields.MRP, *policy)
	}

	threshold := fields.LowStockThreshold
	if threshold <= 0 {
		threshold = model.DefaultLowStockThreshold
	}

	product.Name = fields.Name
	product.MRP = fields.MRP
	product.SellingPrice = selling
	product.Margin = pricing.MarginPercent(fields.MRP, selling)
	product.Quantity = fields.Quantity
	product.LowStockThreshold = threshold
	product.Category = fields.Category
	product.Description = fields.Description
	product.ImageURL = fields.ImageURL
	return nil
}

func productEvents(action, eventType string, product *model.Product, lowStock bool) ([]*model.Event, error) {
	event, err := reposql.CreateEvent(eventType, sqs.NewProductMessage(action, product))
	if err != nil {
		return nil, err
	}
	events := []*model.Event{event}

	if lowStock {
		alert, err := reposql.CreateEvent(model.EventProductLowStock, sqs.NewProductMessage(sqs.ActionLowStock, product))
		if err != nil {
			return nil, err
		}
		events = append(events, alert)
	}
	return events, nil
}
