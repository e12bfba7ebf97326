package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/iyhunko/catalog-admin/internal/identity"
	"github.com/iyhunko/catalog-admin/internal/importer"
	"github.com/iyhunko/catalog-admin/internal/metrics"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/iyhunko/catalog-admin/internal/storage"
	"golang.org/x/sync/errgroup"
)

// ErrImportSourceDisabled is returned by ImportObject when no bucket is configured.
var ErrImportSourceDisabled = errors.New("object imports are not configured")

// RowFailure describes one import row that was not stored.
type RowFailure struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

// ImportOutcome is the per-batch report of a bulk import.
type ImportOutcome struct {
	Succeeded []string     `json:"succeeded"`
	Failed    []RowFailure `json:"failed"`
}

// ObjectSource fetches import payloads from object storage.
type ObjectSource interface {
	Fetch(ctx context.Context, key string) (string, error)
}

// ImportService turns CSV payloads into catalog products.
type ImportService struct {
	catalog     *CatalogService
	source      ObjectSource
	concurrency int
}

// NewImportService creates a new ImportService. source may be nil, in which
// case object imports are disabled. concurrency below 1 means sequential.
func NewImportService(catalog *CatalogService, source ObjectSource, concurrency int) *ImportService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ImportService{
		catalog:     catalog,
		source:      source,
		concurrency: concurrency,
	}
}

type rowResult struct {
	line    int
	name    string
	errText string
}

// ImportFile checks the uploaded file name before importing its payload.
func (s *ImportService) ImportFile(ctx context.Context, principal *identity.Principal, fileName, payload string, onCreated func(*model.Product)) (*ImportOutcome, error) {
	if err := importer.CheckFileName(fileName); err != nil {
		return nil, err
	}
	return s.Import(ctx, principal, payload, onCreated)
}

// ImportObject imports the CSV stored under key in the import bucket.
func (s *ImportService) ImportObject(ctx context.Context, principal *identity.Principal, key string, onCreated func(*model.Product)) (*ImportOutcome, error) {
	if s.source == nil {
		return nil, ErrImportSourceDisabled
	}
	if err := importer.CheckFileName(storage.FileName(key)); err != nil {
		return nil, err
	}

	payload, err := s.source.Fetch(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch import object: %w", err)
	}
	return s.Import(ctx, principal, payload, onCreated)
}

// Import creates one product per data row. A failing row is reported and never
// stops the batch. onCreated is called for every stored product and may be nil.
func (s *ImportService) Import(ctx context.Context, principal *identity.Principal, payload string, onCreated func(*model.Product)) (*ImportOutcome, error) {
	sheet, err := importer.Parse(payload)
	if err != nil {
		return nil, err
	}

	var policy *model.MarginPolicy
	if principal.IsSuperAdmin() {
		p, err := s.catalog.CurrentPolicy(ctx)
		if err != nil {
			return nil, err
		}
		policy = &p
	}

	results := make([]rowResult, len(sheet.Rows))
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for i, row := range sheet.Rows {
		g.Go(func() error {
			results[i] = s.importRow(ctx, row, policy, onCreated)
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(results, func(i, j int) bool { return results[i].line < results[j].line })

	outcome := &ImportOutcome{Succeeded: []string{}, Failed: []RowFailure{}}
	for _, r := range results {
		if r.errText != "" {
			outcome.Failed = append(outcome.Failed, RowFailure{Line: r.line, Error: r.errText})
			continue
		}
		outcome.Succeeded = append(outcome.Succeeded, r.name)
	}

	slog.Info("Import finished",
		slog.Int("succeeded", len(outcome.Succeeded)),
		slog.Int("failed", len(outcome.Failed)))
	return outcome, nil
}

func (s *ImportService) importRow(ctx context.Context, row importer.Row, policy *model.MarginPolicy, onCreated func(*model.Product)) rowResult {
	result := rowResult{line: row.Line}

	record := row.Record()
	if err := record.Validate(); err != nil {
		metrics.ImportRows.WithLabelValues("failure").Inc()
		result.errText = err.Error()
		return result
	}

	product, err := s.catalog.CreateWithPolicy(ctx, ProductFields{
		Name:              record.Name,
		MRP:               record.MRP,
		SellingPrice:      record.SellingPrice,
		Quantity:          record.Quantity,
		LowStockThreshold: record.LowStockThreshold,
		Category:          record.Category,
		Description:       record.Description,
		ImageURL:          record.ImageURL,
	}, policy)
	if err != nil {
		slog.Error("Failed to import row", slog.Int("line", row.Line), slog.Any("err", err))
		metrics.ImportRows.WithLabelValues("failure").Inc()
		result.errText = err.Error()
		return result
	}

	metrics.ImportRows.WithLabelValues("success").Inc()
	result.name = product.Name
	if onCreated != nil {
		onCreated(product)
	}
	return result
}
