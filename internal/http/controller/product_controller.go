package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/catalog-admin/internal/access"
	"github.com/iyhunko/catalog-admin/internal/console"
	"github.com/iyhunko/catalog-admin/internal/http/middleware"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/iyhunko/catalog-admin/internal/repository"
	"github.com/iyhunko/catalog-admin/internal/service"
)

// ProductController handles HTTP requests for product operations.
type ProductController struct {
	catalog Catalog
	store   *console.Store
}

// NewProductController creates a new ProductController.
func NewProductController(catalog Catalog, store *console.Store) *ProductController {
	return &ProductController{
		catalog: catalog,
		store:   store,
	}
}

// ProductRequest represents the request body for creating or updating a product.
type ProductRequest struct {
	Name              string  `json:"name" binding:"required"`
	MRP               float64 `json:"mrp" binding:"gte=0"`
	SellingPrice      float64 `json:"selling_price" binding:"gte=0"`
	Quantity          int     `json:"quantity" binding:"gte=0"`
	LowStockThreshold int     `json:"low_stock_threshold" binding:"gte=0"`
	Category          string  `json:"category" binding:"required"`
	Description       string  `json:"description"`
	ImageURL          string  `json:"image_url" binding:"omitempty,url"`
}

func (r ProductRequest) fields() service.ProductFields {
	return service.ProductFields{
		Name:              r.Name,
		MRP:               r.MRP,
		SellingPrice:      r.SellingPrice,
		Quantity:          r.Quantity,
		LowStockThreshold: r.LowStockThreshold,
		Category:          r.Category,
		Description:       r.Description,
		ImageURL:          r.ImageURL,
	}
}

// ProductResponse represents the response body for a product. Margin is only
// present for principals allowed to see margins.
type ProductResponse struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	MRP               float64  `json:"mrp"`
	SellingPrice      float64  `json:"selling_price"`
	Margin            *float64 `json:"margin,omitempty"`
	Quantity          int      `json:"quantity"`
	LowStockThreshold int      `json:"low_stock_threshold"`
	LowStock          bool     `json:"low_stock"`
	Category          string   `json:"category"`
	Description       string   `json:"description"`
	ImageURL          string   `json:"image_url,omitempty"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

// ListProductsRequest represents the query parameters for the console product list.
type ListProductsRequest struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	Refresh  bool   `form:"refresh"`
}

// ListProductsResponse represents the response body for listing products.
type ListProductsResponse struct {
	Products      []ProductResponse `json:"products"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

// PageRequest represents the query parameters for paginated listing.
type PageRequest struct {
	Limit int32  `form:"limit"`
	Token string `form:"token"`
}

// ListProducts handles the HTTP GET request for the filtered console product list.
func (pc *ProductController) ListProducts(c *gin.Context) {
	var req ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var state *console.State
	if req.Refresh {
		var err error
		state, err = pc.store.Open(c.Request.Context(), middleware.PrincipalFrom(c))
		if err != nil {
			slog.Error("Failed to refresh products", slog.Any("err", err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
			return
		}
	} else {
		var ok bool
		if state, ok = consoleState(c, pc.store); !ok {
			return
		}
	}

	products := state.Products(console.Filter{Search: req.Search, Category: req.Category})
	c.JSON(http.StatusOK, ListProductsResponse{Products: toProductResponses(c, products)})
}

// ListPage handles the HTTP GET request for listing products with pagination.
func (pc *ProductController) ListPage(c *gin.Context) {
	var req PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := repository.NewQuery()
	if err := query.ApplyPagination(req.Limit, req.Token); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	products, err := pc.catalog.ListProducts(c.Request.Context(), *query)
	if err != nil {
		slog.Error("Failed to list products", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}

	response := ListProductsResponse{
		Products: toProductResponses(c, products),
	}

	// a short page is the last one
	if len(products) == query.Limit {
		last := products[len(products)-1]
		response.NextPageToken = repository.NextPage(last.ID, last.CreatedAt).Encode()
	}

	c.JSON(http.StatusOK, response)
}

// GetProduct handles the HTTP GET request for a single product.
func (pc *ProductController) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	product, err := pc.catalog.Get(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err, "failed to load product")
		return
	}
	c.JSON(http.StatusOK, toProductResponse(c, product))
}

// CreateProduct handles the HTTP POST request for creating a new product.
func (pc *ProductController) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, ok := consoleState(c, pc.store)
	if !ok {
		return
	}

	principal := middleware.PrincipalFrom(c)
	created, err := pc.catalog.Create(c.Request.Context(), req.fields(), principal.IsSuperAdmin())
	if err != nil {
		respondStoreError(c, err, "failed to create product")
		return
	}

	state.ApplyCreated(created)
	c.JSON(http.StatusCreated, toProductResponse(c, created))
}

// UpdateProduct handles the HTTP PUT request for updating a product.
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, ok := consoleState(c, pc.store)
	if !ok {
		return
	}

	principal := middleware.PrincipalFrom(c)
	updated, err := pc.catalog.Update(c.Request.Context(), id, req.fields(), principal.IsSuperAdmin())
	if err != nil {
		respondStoreError(c, err, "failed to update product")
		return
	}

	state.ApplyUpdated(updated)
	c.JSON(http.StatusOK, toProductResponse(c, updated))
}

// DeleteProduct handles the HTTP DELETE request for deleting a product by ID.
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	state, ok := consoleState(c, pc.store)
	if !ok {
		return
	}

	if err := pc.catalog.Delete(c.Request.Context(), id); err != nil {
		respondStoreError(c, err, "failed to delete product")
		return
	}

	state.ApplyDeleted(id)
	c.JSON(http.StatusOK, gin.H{"message": "product deleted successfully"})
}

// LowStock handles the HTTP GET request for products at or below their threshold.
func (pc *ProductController) LowStock(c *gin.Context) {
	state, ok := consoleState(c, pc.store)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ListProductsResponse{Products: toProductResponses(c, state.LowStock())})
}

// Categories handles the HTTP GET request for the distinct product categories.
func (pc *ProductController) Categories(c *gin.Context) {
	state, ok := consoleState(c, pc.store)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": state.Categories()})
}

func respondStoreError(c *gin.Context, err error, message string) {
	var uniqueErr *repository.UniqueConstraintError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, service.ErrMissingSellingPrice):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &uniqueErr):
		c.JSON(http.StatusConflict, gin.H{"error": uniqueErr.Error()})
	default:
		slog.Error(message, slog.String("path", c.Request.URL.Path), slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

func canViewMargins(c *gin.Context) bool {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		return false
	}
	return access.CapabilitiesFor(principal.Role).ViewMargins
}

func toProductResponses(c *gin.Context, products []*model.Product) []ProductResponse {
	responses := make([]ProductResponse, 0, len(products))
	for _, product := range products {
		responses = append(responses, toProductResponse(c, product))
	}
	return responses
}

func toProductResponse(c *gin.Context, product *model.Product) ProductResponse {
	resp := ProductResponse{
		ID:                product.ID.String(),
		Name:              product.Name,
		MRP:               product.MRP,
		SellingPrice:      product.SellingPrice,
		Quantity:          product.Quantity,
		LowStockThreshold: product.Threshold(),
		LowStock:          product.IsLowStock(),
		Category:          product.Category,
		Description:       product.Description,
		ImageURL:          product.ImageURL,
		CreatedAt:         product.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         product.UpdatedAt.Format(time.RFC3339),
	}
	if canViewMargins(c) {
		margin := product.Margin
		resp.Margin = &margin
	}
	return resp
}
