package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProductsCreated is a Prometheus counter for tracking the total number of products created.
	ProductsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "The total number of products created",
	})

	// ProductsUpdated counts product writes after creation, including pricing-only updates.
	ProductsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_updated_total",
		Help: "The total number of products updated",
	})

	// ProductsDeleted is a Prometheus counter for tracking the total number of products deleted.
	ProductsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_deleted_total",
		Help: "The total number of products deleted",
	})

	// ImportRows counts processed import rows by result ("success" or "failure").
	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_rows_total",
		Help: "The total number of bulk import rows processed",
	}, []string{"result"})

	// MarginApplications counts per-product results of applying the margin policy to a selection.
	MarginApplications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "margin_applications_total",
		Help: "The total number of products repriced from the margin policy",
	}, []string{"result"})

	// SignIns counts sign-in attempts by result kind.
	SignIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sign_ins_total",
		Help: "The total number of sign-in attempts",
	}, []string{"result"})

	// OrphanAccounts counts admin accounts created without a profile record.
	OrphanAccounts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "admin_orphan_accounts_total",
		Help: "Admin accounts whose profile write failed after the account was created",
	})

	// LowStockAlerts counts low-stock events written to the outbox.
	LowStockAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "The total number of low-stock alerts raised",
	})
)

// AlertsReceived counts catalog notifications consumed from the queue by action.
var AlertsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalog_notifications_received_total",
	Help: "The total number of catalog notifications consumed from SQS",
}, []string{"action"})
