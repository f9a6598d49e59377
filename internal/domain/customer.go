package domain

// Customer — зарегистрированный покупатель. Заказы ссылаются на него по ID.
type Customer struct {
	ID   int64
	Name string
}

// Product — позиция каталога.
type Product struct {
	ID    int64
	Name  string
	Price Money
}
