package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// ProductRepository — неизменяемый каталог в памяти.
type ProductRepository struct {
	products []domain.Product
}

// NewProductRepository копирует и упорядочивает каталог по ID.
func NewProductRepository(products ...domain.Product) *ProductRepository {
	sorted := make([]domain.Product, len(products))
	copy(sorted, products)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &ProductRepository{products: sorted}
}

// List возвращает страницу каталога.
func (r *ProductRepository) List(ctx context.Context, page domain.PageRequest) (domain.PagedList[domain.Product], error) {
	if err := ctx.Err(); err != nil {
		return domain.PagedList[domain.Product]{}, err
	}
	return domain.Paginate(r.products, page)
}

var _ domain.ProductRepository = (*ProductRepository)(nil)
