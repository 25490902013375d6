package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"dimmer-site/internal/middleware"
	"dimmer-site/internal/repository"
	"dimmer-site/internal/service"
	"dimmer-site/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// multipartMemoryLimit caps the in-memory portion of a multipart parse;
// larger parts spill to temp files.
const multipartMemoryLimit = 8 << 20

// BulkProductItem is one element of a bulk import request.
type BulkProductItem struct {
	SKU       string   `json:"sku"`
	Name      string   `json:"name"`
	Model     string   `json:"model"`
	Positions int      `json:"positions"`
	Color     string   `json:"color"`
	Price     float64  `json:"price"`
	Features  []string `json:"features"`
	InStock   *bool    `json:"inStock"`
}

// BulkProductsRequest represents the bulk import payload
type BulkProductsRequest struct {
	Products []BulkProductItem `json:"products" validate:"required,min=1"`
}

// ProductHandler handles HTTP requests for catalog operations
type ProductHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalog service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/bulk", h.CreateBulk)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/image", h.UploadImage)
		r.Delete("/{id}/image", h.DeleteImage)
	})
}

// handleCatalogError maps service and repository errors onto status codes.
// Conflicts are deliberately 409, not a generic 500.
func (h *ProductHandler) handleCatalogError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	var bulkErr *service.BulkValidationError

	switch {
	case errors.As(err, &validationErr):
		middleware.RespondWithError(w, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &bulkErr):
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, "validation failed",
			map[string]interface{}{"errors": bulkErr.Errors})
	case errors.Is(err, storage.ErrImageTooLarge), errors.Is(err, storage.ErrUnsupportedImageFormat):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, repository.ErrDuplicateSKU), errors.Is(err, repository.ErrDuplicateProduct):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("Catalog operation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

// List handles GET /api/products with optional exact-match filters
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.ProductFilter{}

	if model := r.URL.Query().Get("model"); model != "" {
		filter.Model = &model
	}
	if color := r.URL.Query().Get("color"); color != "" {
		filter.Color = &color
	}
	if raw := r.URL.Query().Get("positions"); raw != "" {
		positions, err := strconv.Atoi(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "positions must be an integer")
			return
		}
		filter.Positions = &positions
	}
	if raw := r.URL.Query().Get("inStock"); raw != "" {
		inStock := raw == "true"
		filter.InStock = &inStock
	}

	products, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		h.handleCatalogError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(products),
		"data":    products,
	})
}

// Get handles GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		h.handleCatalogError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    product,
	})
}

// Create handles POST /api/products (multipart form with optional image)
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	positions, _ := strconv.Atoi(r.FormValue("positions"))
	price, err := strconv.ParseFloat(r.FormValue("price"), 64)
	if err != nil && r.FormValue("price") != "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "price must be a number")
		return
	}

	input := service.CreateProductInput{
		SKU:       r.FormValue("sku"),
		Name:      r.FormValue("name"),
		Model:     r.FormValue("model"),
		Positions: positions,
		Color:     r.FormValue("color"),
		Price:     price,
		Features:  parseFeatures(r.FormValue("features")),
		InStock:   r.FormValue("inStock") != "false",
	}

	image, cleanup, ok := h.openImage(w, r)
	if !ok {
		return
	}
	defer cleanup()
	input.Image = image

	product, err := h.catalog.Create(r.Context(), input)
	if err != nil {
		h.handleCatalogError(w, err)
		return
	}

	h.logger.Info("Product created via API", zap.String("sku", product.SKU))
	middleware.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "product created",
		"data":    product,
	})
}

// CreateBulk handles POST /api/products/bulk (JSON, no images)
func (h *ProductHandler) CreateBulk(w http.ResponseWriter, r *http.Request) {
	var req BulkProductsRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inputs := make([]service.CreateProductInput, 0, len(req.Products))
	for _, item := range req.Products {
		inStock := true
		if item.InStock != nil {
			inStock = *item.InStock
		}
		inputs = append(inputs, service.CreateProductInput{
			SKU:       item.SKU,
			Name:      item.Name,
			Model:     item.Model,
			Positions: item.Positions,
			Color:     item.Color,
			Price:     item.Price,
			Features:  item.Features,
			InStock:   inStock,
		})
	}

	products, err := h.catalog.CreateBulk(r.Context(), inputs)
	if err != nil {
		h.handleCatalogError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "products created",
		"count":   len(products),
		"data":    products,
	})
}

// Update handles PATCH /api/products/{id} (multipart form with optional image)
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	input := service.UpdateProductInput{}

	if name := r.FormValue("name"); name != "" {
		input.Name = &name
	}
	if model := r.FormValue("model"); model != "" {
		input.Model = &model
	}
	if raw := r.FormValue("positions"); raw != "" {
		positions, err := strconv.Atoi(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "positions must be an integer")
			return
		}
		input.Positions = &positions
	}
	if color := r.FormValue("color"); color != "" {
		input.Color = &color
	}
	if raw := r.FormValue("price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "price must be a number")
			return
		}
		input.Price = &price
	}
	if raw := r.FormValue("features"); raw != "" {
		input.Features = parseFeatures(raw)
	}
	if raw := r.FormValue("inStock"); raw != "" {
		inStock := raw == "true"
		input.InStock = &inStock
	}

	image, cleanup, ok := h.openImage(w, r)
	if !ok {
		return
	}
	defer cleanup()
	input.Image = image

	product, err := h.catalog.Update(r.Context(), id, input)
	if err != nil {
		h.handleCatalogError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "product updated",
		"data":    product,
	})
}

// Delete handles DELETE /api/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.Delete(r.Context(), id); err != nil {
		h.handleCatalogError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "product deleted",
	})
}

// UploadImage handles POST /api/products/{id}/image
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	image, cleanup, ok := h.openImage(w, r)
	if !ok {
		return
	}
	defer cleanup()
	if image == nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "image file is required")
		return
	}

	product, err := h.catalog.AttachImage(r.Context(), id, *image)
	if err != nil {
		h.handleCatalogError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "image updated",
		"data":    product,
	})
}

// DeleteImage handles DELETE /api/products/{id}/image
func (h *ProductHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.RemoveImage(r.Context(), id)
	if err != nil {
		h.handleCatalogError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "image removed",
		"data":    product,
	})
}

// openImage extracts the optional "image" multipart file. It writes the error
// response itself and reports ok=false when the part is present but oversized.
func (h *ProductHandler) openImage(w http.ResponseWriter, r *http.Request) (*service.ImageUpload, func(), bool) {
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, func() {}, true
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid image upload")
		return nil, func() {}, false
	}

	if header.Size > storage.MaxImageSize {
		file.Close()
		middleware.RespondWithError(w, http.StatusBadRequest, "image exceeds the maximum allowed size")
		return nil, func() {}, false
	}

	upload := &service.ImageUpload{
		Filename: header.Filename,
		Content:  file,
		Size:     header.Size,
	}
	return upload, func() { file.Close() }, true
}

// parseFeatures accepts either a JSON array or a comma-separated list,
// preserving insertion order.
func parseFeatures(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}

	var features []string
	if err := json.Unmarshal([]byte(raw), &features); err == nil {
		return features
	}

	for _, f := range strings.Split(raw, ",") {
		features = append(features, strings.TrimSpace(f))
	}
	return features
}

// parseID extracts and validates the {id} URL parameter, responding with a
// 400 on malformed input.
func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
