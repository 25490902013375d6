package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"dimmer-site/internal/domain"
	"dimmer-site/internal/repository"
	"dimmer-site/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ValidationError marks a request rejected on its inputs, as opposed to a
// conflict or a store failure. Transport surfaces it as a 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// BulkValidationError carries the per-element messages from a bulk import.
// Nothing is inserted when it is returned.
type BulkValidationError struct {
	Errors []string
}

func (e *BulkValidationError) Error() string {
	return fmt.Sprintf("bulk validation failed: %s", strings.Join(e.Errors, "; "))
}

// ImageUpload is an incoming product image read from a multipart form.
type ImageUpload struct {
	Filename string
	Content  io.Reader
	Size     int64
}

// CreateProductInput holds the fields accepted when creating a product.
// SKU is optional: when empty, it is derived from model/positions/color.
type CreateProductInput struct {
	SKU       string
	Name      string
	Model     string
	Positions int
	Color     string
	Price     float64
	Features  []string
	InStock   bool
	Image     *ImageUpload
}

// UpdateProductInput holds the optional fields of a partial product update.
// Nil pointers leave the stored value untouched. The SKU is never updated.
type UpdateProductInput struct {
	Name      *string
	Model     *string
	Positions *int
	Color     *string
	Price     *float64
	Features  []string
	InStock   *bool
	Image     *ImageUpload
}

// CatalogService defines the interface for product business logic
type CatalogService interface {
	Create(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	CreateBulk(ctx context.Context, inputs []CreateProductInput) ([]*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error)
	AttachImage(ctx context.Context, id uuid.UUID, image ImageUpload) (*domain.Product, error)
	RemoveImage(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
	images      storage.ImageStore
	logger      *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(productRepo repository.ProductRepository, images storage.ImageStore, logger *zap.Logger) CatalogService {
	return &catalogService{
		productRepo: productRepo,
		images:      images,
		logger:      logger,
	}
}

// validateProductFields rejects missing or out-of-enum categorical fields
// before SKU derivation or storage is reached.
func validateProductFields(name, model string, positions int, color string, price float64) error {
	if strings.TrimSpace(name) == "" {
		return validationErrorf("name is required")
	}
	if model == "" {
		return validationErrorf("model is required")
	}
	if !domain.ValidModel(model) {
		return validationErrorf("invalid model. options: %s", strings.Join(domain.ProductModels(), ", "))
	}
	if !domain.ValidPositions(positions) {
		return validationErrorf("invalid positions. options: 1, 2, 3")
	}
	if color == "" {
		return validationErrorf("color is required")
	}
	if !domain.ValidColor(color) {
		return validationErrorf("invalid color. options: %s", strings.Join(domain.ProductColors(), ", "))
	}
	if price < 0 {
		return validationErrorf("price must not be negative")
	}
	return nil
}

// Create validates the input, uploads the image if one was sent, assigns the
// SKU and stores the product. Uniqueness is left to the store, which reports
// duplicates as conflicts.
func (s *catalogService) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	if err := validateProductFields(input.Name, input.Model, input.Positions, input.Color, input.Price); err != nil {
		return nil, err
	}

	imageURL := ""
	if input.Image != nil {
		url, err := s.images.Upload(ctx, input.Image.Filename, input.Image.Content, input.Image.Size)
		if err != nil {
			return nil, err
		}
		imageURL = url
	}

	now := time.Now()
	product := &domain.Product{
		ID:        uuid.New(),
		SKU:       input.SKU,
		Name:      strings.TrimSpace(input.Name),
		Model:     input.Model,
		Positions: input.Positions,
		Color:     input.Color,
		Price:     input.Price,
		Features:  input.Features,
		ImageURL:  imageURL,
		InStock:   input.InStock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if product.Features == nil {
		product.Features = []string{}
	}
	product.EnsureSKU()

	if err := s.productRepo.Create(ctx, product); err != nil {
		// The image is already in the object store; try to release it so a
		// rejected create does not leave an orphan behind.
		s.deleteImageBestEffort(ctx, imageURL)
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU),
	)

	return product, nil
}

// CreateBulk validates every element before inserting any, then performs one
// transactional insert, so either all products land or none do.
func (s *catalogService) CreateBulk(ctx context.Context, inputs []CreateProductInput) ([]*domain.Product, error) {
	if len(inputs) == 0 {
		return nil, validationErrorf("products must be a non-empty array")
	}

	var errs []string
	for i, input := range inputs {
		if err := validateProductFields(input.Name, input.Model, input.Positions, input.Color, input.Price); err != nil {
			errs = append(errs, fmt.Sprintf("product %d: %s", i+1, err.Error()))
		}
	}
	if len(errs) > 0 {
		return nil, &BulkValidationError{Errors: errs}
	}

	now := time.Now()
	products := make([]*domain.Product, 0, len(inputs))
	for _, input := range inputs {
		product := &domain.Product{
			ID:        uuid.New(),
			SKU:       input.SKU,
			Name:      strings.TrimSpace(input.Name),
			Model:     input.Model,
			Positions: input.Positions,
			Color:     input.Color,
			Price:     input.Price,
			Features:  input.Features,
			InStock:   input.InStock,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if product.Features == nil {
			product.Features = []string{}
		}
		product.EnsureSKU()
		products = append(products, product)
	}

	if err := s.productRepo.CreateBulk(ctx, products); err != nil {
		return nil, err
	}

	s.logger.Info("Products bulk imported", zap.Int("count", len(products)))

	return products, nil
}

// Update applies a partial update. Attribute changes never recompute the SKU:
// the stored SKU stays frozen at its creation-time value even when model,
// positions or color change.
func (s *catalogService) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*domain.Product, error) {
	if input.Model != nil && !domain.ValidModel(*input.Model) {
		return nil, validationErrorf("invalid model. options: %s", strings.Join(domain.ProductModels(), ", "))
	}
	if input.Positions != nil && !domain.ValidPositions(*input.Positions) {
		return nil, validationErrorf("invalid positions. options: 1, 2, 3")
	}
	if input.Color != nil && !domain.ValidColor(*input.Color) {
		return nil, validationErrorf("invalid color. options: %s", strings.Join(domain.ProductColors(), ", "))
	}
	if input.Price != nil && *input.Price < 0 {
		return nil, validationErrorf("price must not be negative")
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Image != nil {
		url, err := s.images.Upload(ctx, input.Image.Filename, input.Image.Content, input.Image.Size)
		if err != nil {
			return nil, err
		}
		// Release the previous image; a failure here is logged and accepted.
		s.deleteImageBestEffort(ctx, product.ImageURL)
		product.ImageURL = url
	}

	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Model != nil {
		product.Model = *input.Model
	}
	if input.Positions != nil {
		product.Positions = *input.Positions
	}
	if input.Color != nil {
		product.Color = *input.Color
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Features != nil {
		product.Features = input.Features
	}
	if input.InStock != nil {
		product.InStock = *input.InStock
	}
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product updated", zap.String("product_id", product.ID.String()))

	return product, nil
}

// Delete removes the product and releases its image best-effort.
func (s *catalogService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.deleteImageBestEffort(ctx, product.ImageURL)

	s.logger.Info("Product deleted",
		zap.String("product_id", id.String()),
		zap.String("sku", product.SKU),
	)

	return nil
}

// Get retrieves a product by ID
func (s *catalogService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// List retrieves products matching the catalog filters
func (s *catalogService) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	return s.productRepo.List(ctx, filter)
}

// AttachImage uploads a new image for an existing product, replacing and
// best-effort deleting any previous one.
func (s *catalogService) AttachImage(ctx context.Context, id uuid.UUID, image ImageUpload) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.images.Upload(ctx, image.Filename, image.Content, image.Size)
	if err != nil {
		return nil, err
	}

	s.deleteImageBestEffort(ctx, product.ImageURL)

	product.ImageURL = url
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// RemoveImage clears the product's image reference. The remote delete is
// best-effort: the record is updated even if the object store delete fails.
func (s *catalogService) RemoveImage(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.deleteImageBestEffort(ctx, product.ImageURL)

	product.ImageURL = ""
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// deleteImageBestEffort logs and swallows remote delete failures. Orphaned
// images are an accepted inconsistency; they are never retried.
func (s *catalogService) deleteImageBestEffort(ctx context.Context, imageURL string) {
	if imageURL == "" {
		return
	}
	if err := s.images.Delete(ctx, imageURL); err != nil {
		s.logger.Warn("Failed to delete product image",
			zap.String("image_url", imageURL),
			zap.Error(err),
		)
	}
}
