package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/console"
	"github.com/iyhunko/catalog-admin/internal/http/middleware"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/iyhunko/catalog-admin/internal/service"
)

// MarginController handles the margin policy and the product selection it is
// applied to. All routes are super-admin only.
type MarginController struct {
	margins Margins
	store   *console.Store
}

// NewMarginController creates a new MarginController.
func NewMarginController(margins Margins, store *console.Store) *MarginController {
	return &MarginController{
		margins: margins,
		store:   store,
	}
}

// PolicyRequest represents the request body for saving the margin policy.
type PolicyRequest struct {
	Type             string  `json:"type" binding:"required,oneof=percentage fixed"`
	PercentageMargin float64 `json:"percentage_margin" binding:"gte=0,lte=100"`
	FixedMargin      float64 `json:"fixed_margin" binding:"gte=0"`
}

// PolicyResponse represents the margin policy.
type PolicyResponse struct {
	Type             string     `json:"type"`
	PercentageMargin float64    `json:"percentage_margin"`
	FixedMargin      float64    `json:"fixed_margin"`
	UpdatedAt        string     `json:"updated_at,omitempty"`
	UpdatedBy        *uuid.UUID `json:"updated_by,omitempty"`
}

// SelectAllRequest represents the filter a select-all applies to.
type SelectAllRequest struct {
	Search   string `json:"search"`
	Category string `json:"category"`
}

// SelectionResponse lists the selected product IDs.
type SelectionResponse struct {
	Selection []string `json:"selection"`
}

// ApplyMarginResponse reports a bulk margin application.
type ApplyMarginResponse struct {
	Updated []ProductResponse      `json:"updated"`
	Failed  []service.ApplyFailure `json:"failed"`
	Skipped []uuid.UUID            `json:"skipped"`
}

// GetPolicy handles the HTTP GET request for the margin policy.
func (mc *MarginController) GetPolicy(c *gin.Context) {
	policy, err := mc.margins.Get(c.Request.Context())
	if err != nil {
		slog.Error("Failed to load margin policy", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load margin policy"})
		return
	}
	c.JSON(http.StatusOK, toPolicyResponse(policy))
}

// SavePolicy handles the HTTP PUT request for the margin policy.
func (mc *MarginController) SavePolicy(c *gin.Context) {
	var req PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, ok := consoleState(c, mc.store)
	if !ok {
		return
	}

	principal := middleware.PrincipalFrom(c)
	saved, err := mc.margins.Save(c.Request.Context(), model.MarginPolicy{
		Type:             model.MarginType(req.Type),
		PercentageMargin: req.PercentageMargin,
		FixedMargin:      req.FixedMargin,
	}, principal.ID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPolicy) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("Failed to save margin policy", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save margin policy"})
		return
	}

	state.SetPolicy(*saved)
	c.JSON(http.StatusOK, toPolicyResponse(*saved))
}

// ToggleSelection handles selecting or unselecting one product.
func (mc *MarginController) ToggleSelection(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	state, ok := consoleState(c, mc.store)
	if !ok {
		return
	}

	if _, found := state.Find(id); !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	selected := state.Toggle(id)
	c.JSON(http.StatusOK, gin.H{"id": id.String(), "selected": selected})
}

// SelectAll handles selecting every product matching a filter, or clearing
// the selection when all of them are selected already.
func (mc *MarginController) SelectAll(c *gin.Context) {
	var req SelectAllRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	state, ok := consoleState(c, mc.store)
	if !ok {
		return
	}

	state.SelectAll(console.Filter{Search: req.Search, Category: req.Category})
	c.JSON(http.StatusOK, toSelectionResponse(state.Selection()))
}

// ClearSelection handles dropping the whole selection.
func (mc *MarginController) ClearSelection(c *gin.Context) {
	state, ok := consoleState(c, mc.store)
	if !ok {
		return
	}
	state.ClearSelection()
	c.JSON(http.StatusOK, toSelectionResponse(nil))
}

// ApplyMargin handles repricing the selected products from the margin policy.
// Updates are independent: succeeded ones stay even if others fail.
func (mc *MarginController) ApplyMargin(c *gin.Context) {
	state, ok := consoleState(c, mc.store)
	if !ok {
		return
	}

	selection := state.Selection()
	if len(selection) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no products selected"})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	result, err := mc.margins.ApplyToSelection(ctx, selection)
	if err != nil {
		slog.Error("Failed to apply margin", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply margin"})
		return
	}

	state.ApplyPricing(result.Updated)
	state.ClearSelection()

	status := http.StatusOK
	if len(result.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, ApplyMarginResponse{
		Updated: toProductResponses(c, result.Updated),
		Failed:  result.Failed,
		Skipped: result.Skipped,
	})
}

func toSelectionResponse(products []*model.Product) SelectionResponse {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID.String())
	}
	return SelectionResponse{Selection: ids}
}

func toPolicyResponse(policy model.MarginPolicy) PolicyResponse {
	resp := PolicyResponse{
		Type:             string(policy.Type),
		PercentageMargin: policy.PercentageMargin,
		FixedMargin:      policy.FixedMargin,
		UpdatedBy:        policy.UpdatedBy,
	}
	if !policy.UpdatedAt.IsZero() {
		resp.UpdatedAt = policy.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}
