package service_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/iyhunko/catalog-admin/internal/repository"
	"github.com/iyhunko/catalog-admin/internal/sqs"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of repository.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, resource repository.Resource) (repository.Resource, error) {
	args := m.Called(ctx, resource)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.Resource), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (repository.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.Resource), args.Error(1)
}

func (m *MockRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) List(ctx context.Context, query repository.Query) ([]repository.Resource, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.Resource), args.Error(1)
}

// MockTransactor is a mock implementation of repository.CatalogTransactor
type MockTransactor struct {
	mock.Mock

	mu       sync.Mutex
	repriced map[uuid.UUID][]*model.Event
}

func (m *MockTransactor) CreateProductWithEvents(ctx context.Context, product *model.Product, events ...*model.Event) (*model.Product, error) {
	args := m.Called(ctx, product, events)
	switch v := args.Get(0).(type) {
	case nil:
		return nil, args.Error(1)
	case func(*model.Product) *model.Product:
		return v(product), args.Error(1)
	default:
		return v.(*model.Product), args.Error(1)
	}
}

func (m *MockTransactor) UpdateProductWithEvents(ctx context.Context, product *model.Product, events ...*model.Event) error {
	args := m.Called(ctx, product, events)
	return args.Error(0)
}

// RepriceWithEvents runs reprice on a copy of the stored product the
// expectation returns and keeps the events it produced.
func (m *MockTransactor) RepriceWithEvents(ctx context.Context, id uuid.UUID, reprice func(stored *model.Product) ([]*model.Event, error)) (*model.Product, error) {
	args := m.Called(ctx, id)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	stored := *args.Get(0).(*model.Product)
	events, err := reprice(&stored)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.repriced == nil {
		m.repriced = map[uuid.UUID][]*model.Event{}
	}
	m.repriced[id] = events
	return &stored, nil
}

func (m *MockTransactor) repricedEvents(id uuid.UUID) []*model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repriced[id]
}

func (m *MockTransactor) DeleteProductWithEvent(ctx context.Context, id uuid.UUID, event *model.Event) error {
	args := m.Called(ctx, id, event)
	return args.Error(0)
}

// MockPolicyStore is a mock implementation of repository.MarginPolicyStore
type MockPolicyStore struct {
	mock.Mock
}

func (m *MockPolicyStore) Get(ctx context.Context) (*model.MarginPolicy, bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.MarginPolicy), args.Bool(1), args.Error(2)
}

func (m *MockPolicyStore) Save(ctx context.Context, policy *model.MarginPolicy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}

// MockEventUpdater is a mock implementation of repository.EventStatusUpdater
type MockEventUpdater struct {
	mock.Mock
}

func (m *MockEventUpdater) UpdateStatus(ctx context.Context, eventID uuid.UUID, status model.EventStatus) error {
	args := m.Called(ctx, eventID, status)
	return args.Error(0)
}

// MockPublisher is a mock implementation of the SQS publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishProductMessage(ctx context.Context, msg sqs.ProductMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockObjectSource is a mock implementation of service.ObjectSource
type MockObjectSource struct {
	mock.Mock
}

func (m *MockObjectSource) Fetch(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func eventTypes(events []*model.Event) []string {
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	return types
}

// returnCreated makes CreateProductWithEvents echo the product it was given.
func returnCreated(tx *MockTransactor) *mock.Call {
	return tx.On("CreateProductWithEvents", mock.Anything, mock.AnythingOfType("*model.Product"), mock.Anything).
		Return(func(p *model.Product) *model.Product { return p }, nil)
}
