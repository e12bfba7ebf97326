package model

import (
	"time"

	"github.com/google/uuid"
)

// MarginType selects how selling prices are derived from the MRP.
type MarginType string

const (
	MarginTypePercentage MarginType = "percentage"
	MarginTypeFixed      MarginType = "fixed"
)

// MarginPolicy is the process-wide pricing configuration. There is exactly one
// persisted instance.
type MarginPolicy struct {
	Type             MarginType
	PercentageMargin float64
	FixedMargin      float64
	UpdatedAt        time.Time
	UpdatedBy        *uuid.UUID
}

// DefaultMarginPolicy is used until a super-admin saves one.
func DefaultMarginPolicy() MarginPolicy {
	return MarginPolicy{Type: MarginTypePercentage}
}

func (m *MarginPolicy) InitMeta() {
	m.UpdatedAt = time.Now().UTC()
}
