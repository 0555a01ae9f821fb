package product

import "github.com/angelmondragon/storefront-backend/pkg/pagination"

// ListProductsInput captures the storefront browse inputs.
type ListProductsInput struct {
	Pagination  pagination.Params
	Query       string
	InStockOnly bool
}
