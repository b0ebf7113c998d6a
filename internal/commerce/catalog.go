package commerce

import (
	"context"
	"fmt"
	"regexp"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/cache"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	productKeyPrefix = "product:"
	listKeyPrefix    = "products:list:"
)

var listKeyPattern = regexp.MustCompile(`^products:list:`)

// CachedCatalog читает каталог через локальный кэш с TTL.
// Списки и отдельные товары кэшируются раздельно.
type CachedCatalog struct {
	api      domain.CatalogAPI
	lists    *cache.Cache[[]domain.Product]
	products *cache.Cache[domain.Product]
	ttl      time.Duration
	logger   *log.Entry
}

// CatalogOptions задаёт параметры CachedCatalog.
type CatalogOptions struct {
	MaxEntries int
	TTL        time.Duration
	Recorder   cache.Recorder
	Logger     *log.Entry
}

// NewCachedCatalog оборачивает api кэшем.
func NewCachedCatalog(api domain.CatalogAPI, opts CatalogOptions) *CachedCatalog {
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "catalog")
	}
	common := []cache.Option{
		cache.WithMaxEntries(opts.MaxEntries),
		cache.WithDefaultTTL(opts.TTL),
		cache.WithRecorder(opts.Recorder),
		cache.WithLogger(logger),
	}
	return &CachedCatalog{
		api:      api,
		lists:    cache.New[[]domain.Product](append(common, cache.WithName("product_lists"))...),
		products: cache.New[domain.Product](append(common, cache.WithName("products"))...),
		ttl:      opts.TTL,
		logger:   logger,
	}
}

// ListProducts возвращает страницу каталога из кэша или commerce API.
func (c *CachedCatalog) ListProducts(ctx context.Context, query domain.ProductQuery) ([]domain.Product, error) {
	products, err := cache.WithCache(ctx, c.lists, listKey(query), c.listProducer(query), c.ttl)
	if err != nil {
		return nil, err
	}
	return append([]domain.Product(nil), products...), nil
}

// GetProduct возвращает товар из кэша или commerce API.
func (c *CachedCatalog) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return cache.WithCache(ctx, c.products, productKeyPrefix+id, func(ctx context.Context) (domain.Product, error) {
		return c.api.GetProduct(ctx, id)
	}, c.ttl)
}

// PreloadProducts прогревает страницу каталога в фоне.
func (c *CachedCatalog) PreloadProducts(ctx context.Context, query domain.ProductQuery) {
	cache.Preload(ctx, c.lists, listKey(query), c.listProducer(query), c.ttl)
}

// IsWarm сообщает, что страница каталога уже в кэше.
func (c *CachedCatalog) IsWarm(query domain.ProductQuery) bool {
	return c.lists.Has(listKey(query))
}

// InvalidateProduct сбрасывает товар и все закэшированные списки, в которых он мог быть.
func (c *CachedCatalog) InvalidateProduct(id string) int {
	removed := 0
	if c.products.Has(productKeyPrefix + id) {
		removed++
	}
	c.products.Invalidate(productKeyPrefix + id)
	removed += c.lists.InvalidatePattern(listKeyPattern)

	c.logger.WithFields(log.Fields{
		"product_id": id,
		"removed":    removed,
	}).Debug("catalog cache invalidated")
	return removed
}

// Clear очищает оба кэша.
func (c *CachedCatalog) Clear() {
	c.lists.Clear()
	c.products.Clear()
}

func (c *CachedCatalog) listProducer(query domain.ProductQuery) cache.Producer[[]domain.Product] {
	return func(ctx context.Context) ([]domain.Product, error) {
		products, err := c.api.ListProducts(ctx, query)
		if err != nil {
			return nil, err
		}
		// Отдельные товары из списка тоже прогреваются.
		for _, p := range products {
			c.products.SetWithTTL(productKeyPrefix+p.ID, p, c.ttl)
		}
		return products, nil
	}
}

func listKey(query domain.ProductQuery) string {
	return fmt.Sprintf("%scategory=%s&limit=%d&offset=%d", listKeyPrefix, query.Category, query.Limit, query.Offset)
}

var _ domain.CatalogAPI = (*CachedCatalog)(nil)
