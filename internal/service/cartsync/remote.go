package cartsync

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/cartstore"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// RemoteCartClient привязывает commerce API к локальному хранилищу одной сессии:
// помнит CartId и после каждой мутации записывает авторитетный список позиций в зеркало.
type RemoteCartClient struct {
	api    domain.CommerceAPI
	store  *cartstore.Store
	logger *log.Entry
}

// NewRemoteCartClient создаёт клиента удалённой корзины для сессии store.
func NewRemoteCartClient(api domain.CommerceAPI, store *cartstore.Store, logger *log.Entry) *RemoteCartClient {
	if logger == nil {
		logger = log.WithField("component", "remote-cart")
	}
	return &RemoteCartClient{
		api:    api,
		store:  store,
		logger: logger.WithField("session_id", store.SessionID()),
	}
}

// GetOrCreateCart возвращает запомненный CartId, если удалённая корзина существует,
// не завершена и принадлежит customerID. Иначе создаёт новую корзину и запоминает её.
// Для авторизованного покупателя корзина всегда создаётся с его customer_id.
func (c *RemoteCartClient) GetOrCreateCart(ctx context.Context, store domain.StoreContext, customerID string) (domain.CartID, error) {
	if id, ok := c.store.CartID(ctx); ok {
		cart, err := c.api.GetCart(ctx, id)
		switch {
		case err == nil && !cart.Completed() && cart.CustomerID == customerID:
			return id, nil
		case err == nil:
			c.logger.WithFields(log.Fields{
				"cart_id":   id,
				"completed": cart.Completed(),
			}).Info("remembered cart cannot be reused, creating a new one")
		case domain.IsStaleCart(err):
			c.logger.WithField("cart_id", id).Info("remembered cart is stale, creating a new one")
		default:
			return "", fmt.Errorf("get remembered cart: %w", err)
		}
		c.store.ForgetCartID(ctx)
	}

	cart, err := c.api.CreateCart(ctx, domain.CreateCartRequest{Store: store, CustomerID: customerID})
	if err != nil {
		return "", fmt.Errorf("create cart: %w", err)
	}
	if customerID != "" && cart.CustomerID != "" && cart.CustomerID != customerID {
		return "", &domain.RemoteError{
			Kind:    domain.ErrCartConflict,
			Op:      "create_cart",
			Message: "created cart belongs to another customer",
		}
	}
	if err := c.store.RememberCartID(ctx, cart.ID); err != nil {
		c.logger.WithError(err).WithField("cart_id", cart.ID).Warn("failed to remember cart id")
	}
	return cart.ID, nil
}

// ForgetCart удаляет запомненный CartId.
func (c *RemoteCartClient) ForgetCart(ctx context.Context) {
	c.store.ForgetCartID(ctx)
}

// FetchCart возвращает позиции удалённой корзины. При любой ошибке возвращает пустой список.
func (c *RemoteCartClient) FetchCart(ctx context.Context, cartID domain.CartID) domain.Lines {
	lines, err := c.fetch(ctx, cartID, "")
	if err != nil {
		c.logger.WithError(err).WithField("cart_id", cartID).Warn("failed to fetch remote cart")
		return domain.Lines{}
	}
	return lines
}

// fetch читает корзину. Завершённая корзина и корзина другого покупателя
// (если customerID задан) считаются устаревшими.
func (c *RemoteCartClient) fetch(ctx context.Context, cartID domain.CartID, customerID string) (domain.Lines, error) {
	cart, err := c.api.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.Completed() {
		return nil, &domain.RemoteError{Kind: domain.ErrCartNotFound, Op: "get_cart", Message: "cart already completed"}
	}
	if customerID != "" && cart.CustomerID != customerID {
		return nil, &domain.RemoteError{Kind: domain.ErrCartNotFound, Op: "get_cart", Message: "cart belongs to another customer"}
	}
	return cart.Lines(), nil
}

// Refresh перечитывает удалённую корзину и записывает её в зеркало.
func (c *RemoteCartClient) Refresh(ctx context.Context, cartID domain.CartID) (domain.Lines, error) {
	cart, err := c.api.GetCart(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("refresh cart: %w", err)
	}
	return c.writeThrough(ctx, cart), nil
}

// AddLine добавляет товар в удалённую корзину и записывает результат в зеркало.
func (c *RemoteCartClient) AddLine(ctx context.Context, cartID domain.CartID, productRef string, qty int) (domain.Lines, error) {
	cart, err := c.api.AddLineItem(ctx, cartID, productRef, qty)
	if err != nil {
		return nil, fmt.Errorf("add line %s: %w", productRef, err)
	}
	return c.writeThrough(ctx, cart), nil
}

// addProductLine добавляет позицию и сохраняет её снимок товара в зеркале.
func (c *RemoteCartClient) addProductLine(ctx context.Context, cartID domain.CartID, line domain.CartLine, qty int) (domain.Lines, error) {
	cart, err := c.api.AddLineItem(ctx, cartID, line.Ref(), qty)
	if err != nil {
		return nil, fmt.Errorf("add line %s: %w", line.Ref(), err)
	}
	return c.writeThrough(ctx, cart, line), nil
}

// UpdateLineQuantity задаёт количество позиции; qty <= 0 удаляет её.
// Если товара нет в удалённой корзине, возвращает ErrLineNotFound.
func (c *RemoteCartClient) UpdateLineQuantity(ctx context.Context, cartID domain.CartID, productID string, qty int) (domain.Lines, error) {
	if qty <= 0 {
		return c.RemoveLine(ctx, cartID, productID)
	}

	current, err := c.api.GetCart(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart before update: %w", err)
	}
	item, ok := current.FindItem(productID)
	if !ok {
		return nil, fmt.Errorf("update line %s: %w", productID, domain.ErrLineNotFound)
	}
	if item.Quantity == qty {
		return c.writeThrough(ctx, current), nil
	}

	cart, err := c.api.UpdateLineItem(ctx, cartID, item.ID, qty)
	if err != nil {
		return nil, fmt.Errorf("update line %s: %w", productID, err)
	}
	return c.writeThrough(ctx, cart), nil
}

// RemoveLine удаляет позицию. Отсутствие позиции не считается ошибкой.
func (c *RemoteCartClient) RemoveLine(ctx context.Context, cartID domain.CartID, productID string) (domain.Lines, error) {
	current, err := c.api.GetCart(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart before remove: %w", err)
	}
	item, ok := current.FindItem(productID)
	if !ok {
		return c.writeThrough(ctx, current), nil
	}

	cart, err := c.api.DeleteLineItem(ctx, cartID, item.ID)
	if isLineMissing(err) {
		// Позицию уже удалили между чтением и удалением.
		return c.Refresh(ctx, cartID)
	}
	if err != nil {
		return nil, fmt.Errorf("remove line %s: %w", productID, err)
	}
	return c.writeThrough(ctx, cart), nil
}

// CompleteCart завершает корзину и забывает CartId: после завершения он недействителен.
func (c *RemoteCartClient) CompleteCart(ctx context.Context, cartID domain.CartID) (domain.CompletedCart, error) {
	completed, err := c.api.CompleteCart(ctx, cartID)
	if err != nil {
		return domain.CompletedCart{}, fmt.Errorf("complete cart: %w", err)
	}
	c.store.ClearCart(ctx)
	return completed, nil
}

// writeThrough переводит ответ API в позиции, дополняет пустые поля снимка
// из текущего зеркала (и из known для только что добавленных товаров) и сохраняет результат.
func (c *RemoteCartClient) writeThrough(ctx context.Context, cart domain.RemoteCart, known ...domain.CartLine) domain.Lines {
	lines := enrichSnapshots(cart.Lines(), append(c.store.GetLocalCart(ctx), known...))
	c.store.SaveLocalCart(ctx, lines)
	return lines
}

func enrichSnapshots(remote, local domain.Lines) domain.Lines {
	out := remote.Clone()
	for i := range out {
		prev, ok := local.Find(out[i].ProductID)
		if !ok {
			continue
		}
		if out[i].Product.Name == "" {
			out[i].Product.Name = prev.Product.Name
		}
		if out[i].Product.ImageURL == "" {
			out[i].Product.ImageURL = prev.Product.ImageURL
		}
		if out[i].Product.Category == "" {
			out[i].Product.Category = prev.Product.Category
		}
	}
	return out
}

func isLineMissing(err error) bool {
	return errors.Is(err, domain.ErrLineNotFound)
}
