// Package commerce — HTTP-клиент REST API commerce-бэкенда (корзины и каталог).
//
// Клиент не хранит состояния сессии: CartId и зеркало корзины ведёт вызывающий код.
// Ошибки HTTP переводятся в таксономию domain: 404 на корзину → ErrCartNotFound,
// 404 на позицию → ErrLineNotFound, 404 на вариант при добавлении → ErrCartConflict,
// 400/409/422 → ErrCartConflict, 401/403 → ErrUnauthenticated,
// 5xx, сетевые ошибки и таймауты → ErrRemoteTransient.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	apiKeyHeader      = "x-publishable-api-key"
	defaultTimeout    = 10 * time.Second
	maxErrorBodyBytes = 64 << 10
)

type bearerTokenKey struct{}

// WithBearerToken кладёт токен покупателя в ctx; клиент отправит его в Authorization.
func WithBearerToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, bearerTokenKey{}, token)
}

// BearerToken возвращает токен, положенный WithBearerToken.
func BearerToken(ctx context.Context) string {
	token, _ := ctx.Value(bearerTokenKey{}).(string)
	return token
}

// LatencyRecorder получает длительность удалённых вызовов для метрик.
type LatencyRecorder interface {
	ObserveRemoteCall(op, result string, duration time.Duration)
}

// Config задаёт параметры клиента.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient подменяет http.Client (используется в тестах).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithLatencyRecorder подключает метрики длительности вызовов.
func WithLatencyRecorder(recorder LatencyRecorder) Option {
	return func(c *Client) {
		c.latency = recorder
	}
}

// Client реализует domain.CommerceAPI и domain.CatalogAPI поверх HTTP.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	logger  *log.Entry
	tracer  trace.Tracer
	latency LatencyRecorder
}

// NewClient создаёт клиента commerce API.
func NewClient(cfg Config, options ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse commerce base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("commerce base url must be absolute: %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		tracer:  otel.Tracer("storefront/commerce"),
	}
	for _, option := range options {
		option(c)
	}
	if c.logger == nil {
		c.logger = log.WithField("component", "commerce-client")
	}
	return c, nil
}

// CreateCart создаёт корзину; customer_id передаётся, если покупатель авторизован.
func (c *Client) CreateCart(ctx context.Context, req domain.CreateCartRequest) (domain.RemoteCart, error) {
	body := createCartBody{
		RegionID:       req.Store.RegionID,
		SalesChannelID: req.Store.SalesChannelID,
		CustomerID:     req.CustomerID,
	}
	var resp cartEnvelope
	if err := c.do(ctx, "create_cart", http.MethodPost, "/store/carts", nil, body, &resp); err != nil {
		return domain.RemoteCart{}, err
	}
	return resp.Cart.toDomain(), nil
}

func (c *Client) GetCart(ctx context.Context, cartID domain.CartID) (domain.RemoteCart, error) {
	var resp cartEnvelope
	if err := c.do(ctx, "get_cart", http.MethodGet, cartPath(cartID), nil, nil, &resp); err != nil {
		return domain.RemoteCart{}, err
	}
	return resp.Cart.toDomain(), nil
}

func (c *Client) AddLineItem(ctx context.Context, cartID domain.CartID, variantID string, qty int) (domain.RemoteCart, error) {
	body := lineItemBody{VariantID: variantID, Quantity: qty}
	var resp cartEnvelope
	if err := c.do(ctx, "add_line_item", http.MethodPost, cartPath(cartID)+"/line-items", nil, body, &resp); err != nil {
		return domain.RemoteCart{}, err
	}
	return resp.Cart.toDomain(), nil
}

func (c *Client) UpdateLineItem(ctx context.Context, cartID domain.CartID, lineID string, qty int) (domain.RemoteCart, error) {
	body := lineItemBody{Quantity: qty}
	path := cartPath(cartID) + "/line-items/" + url.PathEscape(lineID)
	var resp cartEnvelope
	if err := c.do(ctx, "update_line_item", http.MethodPost, path, nil, body, &resp); err != nil {
		return domain.RemoteCart{}, err
	}
	return resp.Cart.toDomain(), nil
}

func (c *Client) DeleteLineItem(ctx context.Context, cartID domain.CartID, lineID string) (domain.RemoteCart, error) {
	path := cartPath(cartID) + "/line-items/" + url.PathEscape(lineID)
	var resp deleteLineEnvelope
	if err := c.do(ctx, "delete_line_item", http.MethodDelete, path, nil, nil, &resp); err != nil {
		return domain.RemoteCart{}, err
	}
	return resp.Parent.toDomain(), nil
}

// CompleteCart превращает корзину в заказ. После успеха CartId становится недействительным.
func (c *Client) CompleteCart(ctx context.Context, cartID domain.CartID) (domain.CompletedCart, error) {
	var resp completeEnvelope
	if err := c.do(ctx, "complete_cart", http.MethodPost, cartPath(cartID)+"/complete", nil, nil, &resp); err != nil {
		return domain.CompletedCart{}, err
	}
	if resp.Type != "order" || resp.Order.ID == "" {
		msg := "cart could not be completed"
		if resp.Error.Message != "" {
			msg = resp.Error.Message
		}
		return domain.CompletedCart{}, &domain.RemoteError{
			Kind:       domain.ErrCartConflict,
			Op:         "complete_cart",
			StatusCode: http.StatusOK,
			Message:    msg,
		}
	}
	return domain.CompletedCart{OrderID: resp.Order.ID, CartID: cartID}, nil
}

// ListProducts возвращает страницу каталога.
func (c *Client) ListProducts(ctx context.Context, query domain.ProductQuery) ([]domain.Product, error) {
	params := url.Values{}
	if query.Category != "" {
		params.Set("category_id", query.Category)
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Offset > 0 {
		params.Set("offset", strconv.Itoa(query.Offset))
	}

	var resp productsEnvelope
	if err := c.do(ctx, "list_products", http.MethodGet, "/store/products", params, nil, &resp); err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(resp.Products))
	for _, p := range resp.Products {
		products = append(products, p.toDomain())
	}
	return products, nil
}

// GetProduct возвращает товар или ErrProductNotFound.
func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var resp productEnvelope
	err := c.do(ctx, "get_product", http.MethodGet, "/store/products/"+url.PathEscape(id), nil, nil, &resp)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
		}
		return domain.Product{}, err
	}
	return resp.Product.toDomain(), nil
}

func cartPath(cartID domain.CartID) string {
	return "/store/carts/" + url.PathEscape(string(cartID))
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "commerce."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("commerce.path", path),
	)
	started := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = resultLabel(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if c.latency != nil {
			c.latency.ObserveRemoteCall(op, result, time.Since(started))
		}
	}()

	endpoint := *c.baseURL
	endpoint.Path = c.baseURL.Path + path
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return fmt.Errorf("%s: marshal request: %w", op, marshalErr)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	if token := BearerToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.RemoteError{Kind: domain.ErrRemoteTransient, Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= 300 {
		return c.remoteError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.RemoteError{
			Kind:       domain.ErrRemoteTransient,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    "decode response: " + err.Error(),
		}
	}
	return nil
}

func (c *Client) remoteError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	var payload errorBody
	message := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		message = payload.Message
	}

	remoteErr := &domain.RemoteError{
		Kind:       classifyStatus(op, resp.StatusCode),
		Op:         op,
		StatusCode: resp.StatusCode,
		Message:    message,
	}
	c.logger.WithFields(log.Fields{
		"op":     op,
		"status": resp.StatusCode,
	}).Debug("commerce api returned error")
	return remoteErr
}

// classifyStatus учитывает операцию: 404 означает пропажу корзины только там,
// где путь адресует саму корзину. На line-items он говорит о варианте или позиции.
func classifyStatus(op string, status int) error {
	switch {
	case status == http.StatusNotFound && op == "add_line_item":
		return domain.ErrCartConflict
	case status == http.StatusNotFound && (op == "update_line_item" || op == "delete_line_item"):
		return domain.ErrLineNotFound
	case status == http.StatusNotFound:
		return domain.ErrCartNotFound
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return domain.ErrCartConflict
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domain.ErrUnauthenticated
	default:
		return domain.ErrRemoteTransient
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrCartNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrLineNotFound):
		return "line_not_found"
	case errors.Is(err, domain.ErrCartConflict):
		return "conflict"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "transient"
	}
}

var (
	_ domain.CommerceAPI = (*Client)(nil)
	_ domain.CatalogAPI  = (*Client)(nil)
)
