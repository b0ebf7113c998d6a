package httpapi

import (
	"context"
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// fakeBackend — in-memory commerce API и каталог.
type fakeBackend struct {
	mu       sync.Mutex
	products map[string]domain.Product
	carts    map[domain.CartID]*domain.RemoteCart
	nextCart int
	nextLine int
}

func newFakeBackend(products ...domain.Product) *fakeBackend {
	b := &fakeBackend{
		products: make(map[string]domain.Product),
		carts:    make(map[domain.CartID]*domain.RemoteCart),
	}
	for _, p := range products {
		b.products[p.ID] = p
	}
	return b
}

func (b *fakeBackend) ListProducts(_ context.Context, query domain.ProductQuery) ([]domain.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Product
	for _, p := range b.products {
		if query.Category == "" || p.Category == query.Category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (b *fakeBackend) GetProduct(_ context.Context, id string) (domain.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("get product %s: %w", id, domain.ErrProductNotFound)
	}
	return p, nil
}

func (b *fakeBackend) CreateCart(_ context.Context, req domain.CreateCartRequest) (domain.RemoteCart, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextCart++
	cart := &domain.RemoteCart{
		ID:         domain.CartID(fmt.Sprintf("cart_%d", b.nextCart)),
		CustomerID: req.CustomerID,
		RegionID:   req.Store.RegionID,
	}
	b.carts[cart.ID] = cart
	return copyCart(cart), nil
}

func (b *fakeBackend) GetCart(_ context.Context, cartID domain.CartID) (domain.RemoteCart, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cart, err := b.lookup(cartID)
	if err != nil {
		return domain.RemoteCart{}, err
	}
	return copyCart(cart), nil
}

func (b *fakeBackend) AddLineItem(_ context.Context, cartID domain.CartID, variantID string, qty int) (domain.RemoteCart, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cart, err := b.lookup(cartID)
	if err != nil {
		return domain.RemoteCart{}, err
	}
	product, ok := b.products[variantID]
	if !ok {
		return domain.RemoteCart{}, &domain.RemoteError{Kind: domain.ErrCartConflict, Op: "add_line_item", StatusCode: 422, Message: "Variant " + variantID + " does not exist"}
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == product.ID {
			cart.Items[i].Quantity += qty
			return copyCart(cart), nil
		}
	}
	b.nextLine++
	cart.Items = append(cart.Items, domain.RemoteLineItem{
		ID:             fmt.Sprintf("line_%d", b.nextLine),
		ProductID:      product.ID,
		VariantID:      product.ID,
		Title:          product.Title,
		Thumbnail:      product.Thumbnail,
		Quantity:       qty,
		UnitPriceMinor: product.UnitPriceMinor,
	})
	return copyCart(cart), nil
}

func (b *fakeBackend) UpdateLineItem(_ context.Context, cartID domain.CartID, lineID string, qty int) (domain.RemoteCart, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cart, err := b.lookup(cartID)
	if err != nil {
		return domain.RemoteCart{}, err
	}
	for i := range cart.Items {
		if cart.Items[i].ID == lineID {
			cart.Items[i].Quantity = qty
			return copyCart(cart), nil
		}
	}
	return domain.RemoteCart{}, &domain.RemoteError{Kind: domain.ErrLineNotFound, Op: "update_line_item", StatusCode: 404}
}

func (b *fakeBackend) DeleteLineItem(_ context.Context, cartID domain.CartID, lineID string) (domain.RemoteCart, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cart, err := b.lookup(cartID)
	if err != nil {
		return domain.RemoteCart{}, err
	}
	items := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ID != lineID {
			items = append(items, item)
		}
	}
	cart.Items = items
	return copyCart(cart), nil
}

func (b *fakeBackend) CompleteCart(_ context.Context, cartID domain.CartID) (domain.CompletedCart, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cart, err := b.lookup(cartID)
	if err != nil {
		return domain.CompletedCart{}, err
	}
	delete(b.carts, cartID)
	return domain.CompletedCart{OrderID: "order_" + string(cart.ID), CartID: cart.ID}, nil
}

func (b *fakeBackend) cart(id domain.CartID) (domain.RemoteCart, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cart, ok := b.carts[id]
	if !ok {
		return domain.RemoteCart{}, false
	}
	return copyCart(cart), true
}

func (b *fakeBackend) lookup(id domain.CartID) (*domain.RemoteCart, error) {
	cart, ok := b.carts[id]
	if !ok {
		return nil, &domain.RemoteError{Kind: domain.ErrCartNotFound, Op: "get_cart", StatusCode: 404, Message: "Cart not found"}
	}
	return cart, nil
}

func copyCart(cart *domain.RemoteCart) domain.RemoteCart {
	out := *cart
	out.Items = append([]domain.RemoteLineItem(nil), cart.Items...)
	return out
}
