package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"dimmer-site/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func newTestProduct(name, model string, positions int, color string, price float64) *domain.Product {
	now := time.Now()
	p := &domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Model:     model,
		Positions: positions,
		Color:     color,
		Price:     price,
		Features:  []string{"soft start", "memory function"},
		InStock:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.EnsureSKU()
	return p
}

func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	repo := NewProductRepository(testDB)

	properties := gopter.NewProperties(nil)

	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(name string, modelIdx int, positions int, colorIdx int, price float64) bool {
			ctx := context.Background()
			_, _ = testDB.Exec("DELETE FROM products")

			models := domain.ProductModels()
			colors := domain.ProductColors()

			product := newTestProduct(name, models[modelIdx%len(models)], positions, colors[colorIdx%len(colors)], price)

			if err := repo.Create(ctx, product); err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			retrieved, err := repo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			if retrieved.ID != product.ID {
				t.Logf("FAIL: ID mismatch. Expected %s, got %s", product.ID, retrieved.ID)
				return false
			}
			if retrieved.SKU != product.SKU {
				t.Logf("FAIL: SKU mismatch. Expected %s, got %s", product.SKU, retrieved.SKU)
				return false
			}
			if retrieved.Name != product.Name {
				t.Logf("FAIL: Name mismatch. Expected %s, got %s", product.Name, retrieved.Name)
				return false
			}
			if retrieved.Model != product.Model {
				t.Logf("FAIL: Model mismatch. Expected %s, got %s", product.Model, retrieved.Model)
				return false
			}
			if retrieved.Positions != product.Positions {
				t.Logf("FAIL: Positions mismatch. Expected %d, got %d", product.Positions, retrieved.Positions)
				return false
			}
			if retrieved.Color != product.Color {
				t.Logf("FAIL: Color mismatch. Expected %s, got %s", product.Color, retrieved.Color)
				return false
			}

			// Compare prices with small tolerance for floating point
			if retrieved.Price < product.Price-0.01 || retrieved.Price > product.Price+0.01 {
				t.Logf("FAIL: Price mismatch. Expected %f, got %f", product.Price, retrieved.Price)
				return false
			}

			if len(retrieved.Features) != len(product.Features) {
				t.Logf("FAIL: Features length mismatch. Expected %d, got %d", len(product.Features), len(retrieved.Features))
				return false
			}
			for i := range product.Features {
				if retrieved.Features[i] != product.Features[i] {
					t.Logf("FAIL: Feature mismatch at %d. Expected %s, got %s", i, product.Features[i], retrieved.Features[i])
					return false
				}
			}

			if retrieved.InStock != product.InStock {
				t.Logf("FAIL: InStock mismatch")
				return false
			}
			if retrieved.CreatedAt.IsZero() || retrieved.UpdatedAt.IsZero() {
				t.Logf("FAIL: timestamps not set")
				return false
			}

			return true
		},
		gen.RegexMatch(`[A-Za-z0-9 ]{3,50}`),
		gen.IntRange(0, 1),
		gen.IntRange(1, 3),
		gen.IntRange(0, 2),
		gen.Float64Range(0.01, 9999.99),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductIdentityConflict(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()
	_, _ = testDB.Exec("DELETE FROM products")

	first := newTestProduct("Rotary Dimmer", domain.ModelMark1, 2, domain.ColorWhite, 149.90)
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("failed to create first product: %v", err)
	}

	// Same identity tuple, different explicit SKU so only the identity
	// index can fire.
	duplicate := newTestProduct("Rotary Dimmer", domain.ModelMark1, 2, domain.ColorWhite, 99.90)
	duplicate.SKU = "CUSTOM-SKU-1"

	err := repo.Create(ctx, duplicate)
	if !errors.Is(err, ErrDuplicateProduct) {
		t.Fatalf("expected ErrDuplicateProduct, got %v", err)
	}
}

func TestProductSKUConflict(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()
	_, _ = testDB.Exec("DELETE FROM products")

	first := newTestProduct("Rotary Dimmer", domain.ModelMark1, 2, domain.ColorWhite, 149.90)
	first.SKU = "CUSTOM-SKU-2"
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("failed to create first product: %v", err)
	}

	// Different identity tuple but the same explicit SKU.
	duplicate := newTestProduct("Touch Dimmer", domain.ModelMark2, 3, domain.ColorBlack, 199.90)
	duplicate.SKU = "CUSTOM-SKU-2"

	err := repo.Create(ctx, duplicate)
	if !errors.Is(err, ErrDuplicateSKU) {
		t.Fatalf("expected ErrDuplicateSKU, got %v", err)
	}
}

func TestProductBulkInsertIsAtomic(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()
	_, _ = testDB.Exec("DELETE FROM products")

	good := newTestProduct("Rotary Dimmer", domain.ModelMark1, 1, domain.ColorWhite, 99.90)
	conflicting := newTestProduct("Rotary Dimmer", domain.ModelMark1, 1, domain.ColorWhite, 89.90)
	conflicting.SKU = "OTHER-SKU"

	err := repo.CreateBulk(ctx, []*domain.Product{good, conflicting})
	if !errors.Is(err, ErrDuplicateProduct) {
		t.Fatalf("expected ErrDuplicateProduct, got %v", err)
	}

	// The first row must have been rolled back with the failing one.
	var count int
	if err := testDB.QueryRow("SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		t.Fatalf("failed to count products: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty catalog after failed bulk insert, got %d rows", count)
	}
}

func TestProductUpdateDoesNotTouchSKU(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()
	_, _ = testDB.Exec("DELETE FROM products")

	product := newTestProduct("Rotary Dimmer", domain.ModelMark1, 2, domain.ColorWhite, 149.90)
	originalSKU := product.SKU
	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}

	product.Color = domain.ColorBlack
	product.Price = 159.90
	product.UpdatedAt = time.Now()
	if err := repo.Update(ctx, product); err != nil {
		t.Fatalf("failed to update product: %v", err)
	}

	retrieved, err := repo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("failed to retrieve product: %v", err)
	}
	if retrieved.SKU != originalSKU {
		t.Fatalf("expected SKU %s to survive update, got %s", originalSKU, retrieved.SKU)
	}
	if retrieved.Color != domain.ColorBlack {
		t.Fatalf("expected updated color, got %s", retrieved.Color)
	}
}

func TestProductDeleteRemovesFromCatalog(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()
	_, _ = testDB.Exec("DELETE FROM products")

	product := newTestProduct("Rotary Dimmer", domain.ModelMark2, 3, domain.ColorGray, 219.00)
	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}

	if err := repo.Delete(ctx, product.ID); err != nil {
		t.Fatalf("failed to delete product: %v", err)
	}

	if _, err := repo.FindByID(ctx, product.ID); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound after deletion, got %v", err)
	}

	if err := repo.Delete(ctx, product.ID); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound on second delete, got %v", err)
	}
}

func TestProductListFiltersAndOrder(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()
	_, _ = testDB.Exec("DELETE FROM products")

	cheap := newTestProduct("Rotary Dimmer", domain.ModelMark1, 1, domain.ColorWhite, 99.90)
	mid := newTestProduct("Touch Dimmer", domain.ModelMark1, 2, domain.ColorBlack, 149.90)
	expensive := newTestProduct("Smart Dimmer", domain.ModelMark2, 3, domain.ColorGray, 299.00)
	expensive.InStock = false

	for _, p := range []*domain.Product{expensive, cheap, mid} {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("failed to create product: %v", err)
		}
	}

	all, err := repo.List(ctx, ProductFilter{})
	if err != nil {
		t.Fatalf("failed to list products: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 products, got %d", len(all))
	}
	// Cheapest first regardless of insert order.
	if all[0].ID != cheap.ID || all[2].ID != expensive.ID {
		t.Fatalf("expected price-ascending order, got %v, %v, %v", all[0].Price, all[1].Price, all[2].Price)
	}

	model := domain.ModelMark1
	mark1, err := repo.List(ctx, ProductFilter{Model: &model})
	if err != nil {
		t.Fatalf("failed to list mark1 products: %v", err)
	}
	if len(mark1) != 2 {
		t.Fatalf("expected 2 mark1 products, got %d", len(mark1))
	}

	inStock := true
	positions := 3
	none, err := repo.List(ctx, ProductFilter{Positions: &positions, InStock: &inStock})
	if err != nil {
		t.Fatalf("failed to list filtered products: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no in-stock 3-position products, got %d", len(none))
	}
}
