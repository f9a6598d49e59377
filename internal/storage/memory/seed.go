package memory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// DemoCustomers возвращает n клиентов с ID 1..n для локального запуска.
func DemoCustomers(n int) []domain.Customer {
	customers := make([]domain.Customer, 0, n)
	for i := 1; i <= n; i++ {
		customers = append(customers, domain.Customer{ID: int64(i), Name: fmt.Sprintf("Customer %02d", i)})
	}
	return customers
}

// DemoProducts возвращает n товаров с ценами 9.90, 19.90, ...
func DemoProducts(n int) []domain.Product {
	products := make([]domain.Product, 0, n)
	for i := 1; i <= n; i++ {
		price := decimal.NewFromInt(int64(i * 10)).Sub(decimal.RequireFromString("0.10"))
		products = append(products, domain.Product{ID: int64(i), Name: fmt.Sprintf("Product %02d", i), Price: price})
	}
	return products
}
