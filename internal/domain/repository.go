package domain

// OrderRepository описывает требования к хранилищу заказов.
// Два конкурентных подтверждения одного заказа сериализуются именно здесь:
// Save применяет optimistic locking по Version, движок блокировок не держит.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// ListByCustomer возвращает заказы покупателя (по email) с опциональным лимитом.
	ListByCustomer(customerEmail string, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(order Order) error
}

// ProductRepository описывает требования к хранилищу товаров супермаркета.
type ProductRepository interface {
	// Create сохраняет новый товар.
	Create(product Product) error
	// Get возвращает товар или ErrProductNotFound, если его нет.
	Get(id string) (Product, error)
	// ListBySupermarket возвращает товары супермаркета, ближайший срок годности первым.
	ListBySupermarket(supermarketID string, limit int) ([]Product, error)
	// Save перезаписывает товар.
	Save(product Product) error
}
