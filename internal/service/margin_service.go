package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/metrics"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/iyhunko/catalog-admin/internal/repository"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidPolicy is returned when a margin policy fails validation.
var ErrInvalidPolicy = errors.New("invalid margin policy")

type policyInput struct {
	Type             string  `validate:"oneof=percentage fixed"`
	PercentageMargin float64 `validate:"gte=0,lte=100"`
	FixedMargin      float64 `validate:"gte=0"`
}

// ApplyFailure is a product the margin policy could not be applied to.
type ApplyFailure struct {
	ProductID uuid.UUID `json:"product_id"`
	Error     string    `json:"error"`
}

// ApplyResult reports a bulk margin application. Updates that succeeded stay
// in place even when others failed.
type ApplyResult struct {
	Updated []*model.Product `json:"updated"`
	Failed  []ApplyFailure   `json:"failed"`
	Skipped []uuid.UUID      `json:"skipped"`
}

// MarginService manages the margin policy and applies it to products.
type MarginService struct {
	store    repository.MarginPolicyStore
	catalog  *CatalogService
	validate *validator.Validate
}

// NewMarginService creates a new MarginService.
func NewMarginService(store repository.MarginPolicyStore, catalog *CatalogService) *MarginService {
	return &MarginService{
		store:    store,
		catalog:  catalog,
		validate: validator.New(),
	}
}

// Get returns the current policy, the default one when none was saved.
func (s *MarginService) Get(ctx context.Context) (model.MarginPolicy, error) {
	return s.catalog.CurrentPolicy(ctx)
}

// Save validates and stores policy on behalf of by.
func (s *MarginService) Save(ctx context.Context, policy model.MarginPolicy, by uuid.UUID) (*model.MarginPolicy, error) {
	err := s.validate.Struct(policyInput{
		Type:             string(policy.Type),
		PercentageMargin: policy.PercentageMargin,
		FixedMargin:      policy.FixedMargin,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPolicy, err.Error())
	}

	policy.UpdatedBy = &by
	if err := s.store.Save(ctx, &policy); err != nil {
		return nil, fmt.Errorf("failed to save margin policy: %w", err)
	}

	slog.Info("Margin policy saved",
		slog.String("type", string(policy.Type)),
		slog.String("updated_by", by.String()))
	return &policy, nil
}

// ApplyToSelection reprices every product of the selection from its stored
// MRP. All updates run at once and are not rolled back when some of them fail.
// Products whose stored MRP is not positive are skipped.
func (s *MarginService) ApplyToSelection(ctx context.Context, products []*model.Product) (*ApplyResult, error) {
	policy, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{Updated: []*model.Product{}, Failed: []ApplyFailure{}, Skipped: []uuid.UUID{}}
	updated := make([]*model.Product, len(products))
	failures := make([]error, len(products))

	var g errgroup.Group
	for i, product := range products {
		g.Go(func() error {
			p, err := s.catalog.UpdatePricing(ctx, product.ID, policy)
			if err != nil {
				failures[i] = err
				return nil
			}
			updated[i] = p
			return nil
		})
	}
	_ = g.Wait()

	for i, product := range products {
		switch {
		case errors.Is(failures[i], ErrNoListPrice):
			result.Skipped = append(result.Skipped, product.ID)
		case failures[i] != nil:
			slog.Error("Failed to apply margin", slog.String("product_id", product.ID.String()), slog.Any("err", failures[i]))
			metrics.MarginApplications.WithLabelValues("failure").Inc()
			result.Failed = append(result.Failed, ApplyFailure{ProductID: product.ID, Error: failures[i].Error()})
		case updated[i] != nil:
			metrics.MarginApplications.WithLabelValues("success").Inc()
			result.Updated = append(result.Updated, updated[i])
		}
	}
	return result, nil
}
