package domain

import "fmt"

// DefaultPageSize — размер страницы, если клиент его не указал.
const DefaultPageSize = 10

// PageRequest — номер страницы (с 1) и её размер.
type PageRequest struct {
	Page     int
	PageSize int
}

// NewPageRequest возвращает запрос страницы с размером по умолчанию.
func NewPageRequest(page int) PageRequest {
	return PageRequest{Page: page, PageSize: DefaultPageSize}
}

// Normalize подставляет размер по умолчанию и проверяет границы.
func (p PageRequest) Normalize() (PageRequest, error) {
	if p.PageSize == 0 {
		p.PageSize = DefaultPageSize
	}
	if p.Page < 1 {
		return PageRequest{}, fmt.Errorf("%w: page must be greater than or equal to 1", ErrInvalidArgument)
	}
	if p.PageSize < 1 {
		return PageRequest{}, fmt.Errorf("%w: page size must be greater than or equal to 1", ErrInvalidArgument)
	}
	return p, nil
}

// Offset — количество записей, пропускаемых перед страницей.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PagedList — страница результатов запроса.
type PagedList[T any] struct {
	Items      []T
	TotalCount int
	HasNext    bool
}

// NewPagedList собирает страницу; HasNext истинен, когда totalCount > page*pageSize.
func NewPagedList[T any](items []T, totalCount int, page PageRequest) PagedList[T] {
	if items == nil {
		items = []T{}
	}
	return PagedList[T]{
		Items:      items,
		TotalCount: totalCount,
		HasNext:    totalCount > page.Page*page.PageSize,
	}
}

// Paginate нарезает уже упорядоченный срез на страницу.
func Paginate[T any](all []T, page PageRequest) (PagedList[T], error) {
	page, err := page.Normalize()
	if err != nil {
		return PagedList[T]{}, err
	}

	start := page.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + page.PageSize
	if end > len(all) {
		end = len(all)
	}

	items := make([]T, end-start)
	copy(items, all[start:end])
	return NewPagedList(items, len(all), page), nil
}
