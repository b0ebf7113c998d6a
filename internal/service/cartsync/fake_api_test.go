package cartsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/commerce"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// fakeCommerce — in-memory commerce API с очередями ошибок на каждую операцию.
type fakeCommerce struct {
	mu       sync.Mutex
	carts    map[domain.CartID]*domain.RemoteCart
	products map[string]domain.Product
	failures map[string][]error
	calls    map[string]int
	hooks    map[string]func()
	tokens   []string
	nextCart int
	nextLine int
}

func newFakeCommerce(products ...domain.Product) *fakeCommerce {
	f := &fakeCommerce{
		carts:    make(map[domain.CartID]*domain.RemoteCart),
		products: make(map[string]domain.Product),
		failures: make(map[string][]error),
		calls:    make(map[string]int),
		hooks:    make(map[string]func()),
	}
	for _, p := range products {
		f.products[p.ID] = p
		if p.VariantID != "" {
			f.products[p.VariantID] = p
		}
	}
	return f
}

// failNext ставит err в очередь ошибок операции op.
func (f *fakeCommerce) failNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], errs...)
}

// before выполняет fn один раз при следующем вызове op, до самой операции.
// fn вызывается под блокировкой и может менять корзины напрямую.
func (f *fakeCommerce) before(op string, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[op] = fn
}

// dropItemLocked удаляет позицию товара из корзины; вызывается только из before.
func (f *fakeCommerce) dropItemLocked(id domain.CartID, productID string) {
	cart := f.carts[id]
	items := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	cart.Items = items
}

// expire удаляет корзину, как будто она истекла на стороне сервиса.
func (f *fakeCommerce) expire(id domain.CartID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, id)
}

func (f *fakeCommerce) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeCommerce) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeCommerce) cart(id domain.CartID) (domain.RemoteCart, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cart, ok := f.carts[id]
	if !ok {
		return domain.RemoteCart{}, false
	}
	return cloneCart(cart), true
}

func (f *fakeCommerce) enter(ctx context.Context, op string) error {
	f.calls[op]++
	f.tokens = append(f.tokens, commerce.BearerToken(ctx))
	if hook := f.hooks[op]; hook != nil {
		delete(f.hooks, op)
		hook()
	}
	if queue := f.failures[op]; len(queue) > 0 {
		f.failures[op] = queue[1:]
		return queue[0]
	}
	return nil
}

func (f *fakeCommerce) CreateCart(ctx context.Context, req domain.CreateCartRequest) (domain.RemoteCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(ctx, "create_cart"); err != nil {
		return domain.RemoteCart{}, err
	}
	f.nextCart++
	cart := &domain.RemoteCart{
		ID:         domain.CartID(fmt.Sprintf("cart_%d", f.nextCart)),
		CustomerID: req.CustomerID,
		RegionID:   req.Store.RegionID,
	}
	f.carts[cart.ID] = cart
	return cloneCart(cart), nil
}

func (f *fakeCommerce) GetCart(ctx context.Context, id domain.CartID) (domain.RemoteCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(ctx, "get_cart"); err != nil {
		return domain.RemoteCart{}, err
	}
	cart, err := f.lookup("get_cart", id)
	if err != nil {
		return domain.RemoteCart{}, err
	}
	return cloneCart(cart), nil
}

func (f *fakeCommerce) AddLineItem(ctx context.Context, id domain.CartID, ref string, qty int) (domain.RemoteCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(ctx, "add_line_item"); err != nil {
		return domain.RemoteCart{}, err
	}
	cart, err := f.lookup("add_line_item", id)
	if err != nil {
		return domain.RemoteCart{}, err
	}
	product, ok := f.products[ref]
	if !ok {
		return domain.RemoteCart{}, &domain.RemoteError{Kind: domain.ErrCartConflict, Op: "add_line_item", StatusCode: 400, Message: "Variant " + ref + " does not exist"}
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == product.ID {
			cart.Items[i].Quantity += qty
			return cloneCart(cart), nil
		}
	}
	f.nextLine++
	cart.Items = append(cart.Items, domain.RemoteLineItem{
		ID:             fmt.Sprintf("li_%d", f.nextLine),
		ProductID:      product.ID,
		VariantID:      product.VariantID,
		Title:          product.Title,
		Quantity:       qty,
		UnitPriceMinor: product.UnitPriceMinor,
	})
	return cloneCart(cart), nil
}

func (f *fakeCommerce) UpdateLineItem(ctx context.Context, id domain.CartID, lineID string, qty int) (domain.RemoteCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(ctx, "update_line_item"); err != nil {
		return domain.RemoteCart{}, err
	}
	cart, err := f.lookup("update_line_item", id)
	if err != nil {
		return domain.RemoteCart{}, err
	}
	for i := range cart.Items {
		if cart.Items[i].ID == lineID {
			cart.Items[i].Quantity = qty
			return cloneCart(cart), nil
		}
	}
	return domain.RemoteCart{}, lineNotFound("update_line_item", lineID)
}

func (f *fakeCommerce) DeleteLineItem(ctx context.Context, id domain.CartID, lineID string) (domain.RemoteCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(ctx, "delete_line_item"); err != nil {
		return domain.RemoteCart{}, err
	}
	cart, err := f.lookup("delete_line_item", id)
	if err != nil {
		return domain.RemoteCart{}, err
	}
	for i := range cart.Items {
		if cart.Items[i].ID == lineID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return cloneCart(cart), nil
		}
	}
	return domain.RemoteCart{}, lineNotFound("delete_line_item", lineID)
}

func lineNotFound(op, lineID string) error {
	return &domain.RemoteError{Kind: domain.ErrLineNotFound, Op: op, StatusCode: 404, Message: "Line item " + lineID + " not found"}
}

func (f *fakeCommerce) CompleteCart(ctx context.Context, id domain.CartID) (domain.CompletedCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(ctx, "complete_cart"); err != nil {
		return domain.CompletedCart{}, err
	}
	cart, err := f.lookup("complete_cart", id)
	if err != nil {
		return domain.CompletedCart{}, err
	}
	now := time.Now()
	cart.CompletedAt = &now
	return domain.CompletedCart{OrderID: "order_" + string(id), CartID: id}, nil
}

func (f *fakeCommerce) lookup(op string, id domain.CartID) (*domain.RemoteCart, error) {
	cart, ok := f.carts[id]
	if !ok {
		return nil, &domain.RemoteError{Kind: domain.ErrCartNotFound, Op: op, StatusCode: 404}
	}
	return cart, nil
}

func cloneCart(c *domain.RemoteCart) domain.RemoteCart {
	out := *c
	out.Items = append([]domain.RemoteLineItem(nil), c.Items...)
	return out
}

var _ domain.CommerceAPI = (*fakeCommerce)(nil)
