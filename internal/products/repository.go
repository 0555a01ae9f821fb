package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// LowStockThreshold is the stock level under which a product counts as low.
const LowStockThreshold = 10

// Repository persists catalog products.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a repository to the provided DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes the row; a missing id yields gorm.ErrRecordNotFound.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type productListQuery struct {
	Limit   int
	Cursor  *pagination.Cursor
	Query   string
	InStock bool
}

func (r *Repository) ListProducts(ctx context.Context, query productListQuery) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if term := strings.TrimSpace(query.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if query.InStock {
		q = q.Where("stock > 0")
	}
	if query.Cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", query.Cursor.CreatedAt, query.Cursor.ID)
	}

	var rows []models.Product
	if err := q.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(query.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Stats counts products, low stock and in stock in one pass.
func (r *Repository) Stats(ctx context.Context) (*StatsDTO, error) {
	var out StatsDTO
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select(
			"COUNT(*) AS total_products, "+
				"COALESCE(SUM(CASE WHEN stock < ? THEN 1 ELSE 0 END), 0) AS low_stock_count, "+
				"COALESCE(SUM(CASE WHEN stock > 0 THEN 1 ELSE 0 END), 0) AS in_stock_count",
			LowStockThreshold,
		).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}
