package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/iyhunko/catalog-admin/internal/repository"
)

// TransactionalRepository provides methods to work with multiple repositories in a single transaction
type TransactionalRepository struct {
	db *sql.DB
}

// NewTransactionalRepository creates a new TransactionalRepository
func NewTransactionalRepository(db *sql.DB) *TransactionalRepository {
	return &TransactionalRepository{db: db}
}

// withinTx runs fn against product and event repositories sharing one transaction.
func (tr *TransactionalRepository) withinTx(ctx context.Context, fn func(products *ProductRepository, events *EventRepository) error) error {
	tx, err := tr.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	productRepo := &ProductRepository{db: tr.db, txn: tx}
	eventRepo := &EventRepository{db: tr.db, txn: tx}

	if err := fn(productRepo, eventRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func createEvents(ctx context.Context, repo *EventRepository, events []*model.Event) error {
	for _, event := range events {
		if event == nil {
			continue
		}
		if _, err := repo.Create(ctx, event); err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}
	}
	return nil
}

// CreateProductWithEvents creates a product and its events in a single transaction.
func (tr *TransactionalRepository) CreateProductWithEvents(ctx context.Context, product *model.Product, events ...*model.Event) (*model.Product, error) {
	var created *model.Product
	err := tr.withinTx(ctx, func(products *ProductRepository, eventRepo *EventRepository) error {
		res, err := products.Create(ctx, product)
		if err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		p, ok := res.(*model.Product)
		if !ok {
			return repository.ErrInvalidType
		}
		created = p
		return createEvents(ctx, eventRepo, events)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateProductWithEvents overwrites a product and records its events in a single transaction.
func (tr *TransactionalRepository) UpdateProductWithEvents(ctx context.Context, product *model.Product, events ...*model.Event) error {
	return tr.withinTx(ctx, func(products *ProductRepository, eventRepo *EventRepository) error {
		if err := products.Update(ctx, product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return createEvents(ctx, eventRepo, events)
	})
}

// RepriceWithEvents locks the stored product, lets reprice set its selling
// price and margin, then writes those two columns and the events reprice
// returns in a single transaction. An error from reprice rolls back without
// writing anything.
func (tr *TransactionalRepository) RepriceWithEvents(ctx context.Context, id uuid.UUID, reprice func(stored *model.Product) ([]*model.Event, error)) (*model.Product, error) {
	var repriced *model.Product
	err := tr.withinTx(ctx, func(products *ProductRepository, eventRepo *EventRepository) error {
		product, err := products.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		events, err := reprice(product)
		if err != nil {
			return err
		}

		if err := products.UpdatePricing(ctx, product); err != nil {
			return fmt.Errorf("failed to update product pricing: %w", err)
		}
		repriced = product
		return createEvents(ctx, eventRepo, events)
	})
	if err != nil {
		return nil, err
	}
	return repriced, nil
}

// DeleteProductWithEvent deletes a product and creates a deletion event in a single transaction
func (tr *TransactionalRepository) DeleteProductWithEvent(ctx context.Context, id uuid.UUID, event *model.Event) error {
	return tr.withinTx(ctx, func(products *ProductRepository, eventRepo *EventRepository) error {
		if err := products.DeleteByID(ctx, id); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return createEvents(ctx, eventRepo, []*model.Event{event})
	})
}
