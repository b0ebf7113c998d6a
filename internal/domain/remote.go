package domain

import "time"

// StoreContext — параметры витрины, с которыми создаётся удалённая корзина.
type StoreContext struct {
	RegionID       string
	SalesChannelID string
}

// CreateCartRequest — запрос на создание корзины в commerce API.
type CreateCartRequest struct {
	Store      StoreContext
	CustomerID string
}

// RemoteLineItem — позиция корзины в представлении commerce API.
type RemoteLineItem struct {
	ID             string
	ProductID      string
	VariantID      string
	Title          string
	Thumbnail      string
	Category       string
	Quantity       int
	UnitPriceMinor int64
}

// RemoteCart — корзина в представлении commerce API.
type RemoteCart struct {
	ID          CartID
	CustomerID  string
	RegionID    string
	CompletedAt *time.Time
	Items       []RemoteLineItem
}

// Completed сообщает, что корзина уже превращена в заказ.
func (c RemoteCart) Completed() bool {
	return c.CompletedAt != nil
}

// Lines переводит позиции commerce API в CartLine.
// Позиции с одинаковым товаром склеиваются, нулевые отбрасываются.
func (c RemoteCart) Lines() Lines {
	out := make(Lines, 0, len(c.Items))
	for _, item := range c.Items {
		productID := item.ProductID
		if productID == "" {
			productID = item.VariantID
		}
		out = out.Upsert(CartLine{
			ProductID:      productID,
			VariantID:      item.VariantID,
			Quantity:       item.Quantity,
			UnitPriceMinor: item.UnitPriceMinor,
			Product: ProductSnapshot{
				Name:     item.Title,
				ImageURL: item.Thumbnail,
				Category: item.Category,
			},
		})
	}
	return out
}

// FindItem ищет позицию удалённой корзины по товару.
func (c RemoteCart) FindItem(productID string) (RemoteLineItem, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID || (item.ProductID == "" && item.VariantID == productID) {
			return item, true
		}
	}
	return RemoteLineItem{}, false
}

// CompletedCart — результат завершения корзины.
type CompletedCart struct {
	OrderID string
	CartID  CartID
}

// Product — товар каталога.
type Product struct {
	ID             string `json:"id"`
	VariantID      string `json:"variant_id,omitempty"`
	Title          string `json:"title"`
	Handle         string `json:"handle,omitempty"`
	Thumbnail      string `json:"thumbnail,omitempty"`
	Category       string `json:"category,omitempty"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
}

// Snapshot возвращает снимок товара для позиции корзины.
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{Name: p.Title, ImageURL: p.Thumbnail, Category: p.Category}
}

// Line собирает позицию корзины для товара.
func (p Product) Line(qty int) CartLine {
	return CartLine{
		ProductID:      p.ID,
		VariantID:      p.VariantID,
		Quantity:       qty,
		UnitPriceMinor: p.UnitPriceMinor,
		Product:        p.Snapshot(),
	}
}

// ProductQuery — фильтр выборки каталога.
type ProductQuery struct {
	Category string
	Limit    int
	Offset   int
}
