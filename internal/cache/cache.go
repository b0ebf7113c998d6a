// Package cache реализует ограниченный по размеру кэш с TTL на запись и LRU-вытеснением.
//
// Истечение ленивое: просроченная запись удаляется при первом обращении,
// фоновой очистки нет.
package cache

import (
	"container/list"
	"regexp"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultMaxEntries = 100
	defaultTTL        = 5 * time.Minute
)

// Recorder получает события кэша для метрик.
type Recorder interface {
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
	RecordCacheEviction(cache string)
}

type entry[V any] struct {
	key       string
	value     V
	writtenAt time.Time
	ttl       time.Duration
}

func (e *entry[V]) expired(now time.Time) bool {
	return now.Sub(e.writtenAt) > e.ttl
}

// Options задаёт параметры кэша.
type Options struct {
	Name       string
	MaxEntries int
	DefaultTTL time.Duration
	Clock      func() time.Time
	Recorder   Recorder
	Logger     *log.Entry
}

// Option настраивает Cache.
type Option func(*Options)

// WithName задаёт имя кэша для метрик и логов.
func WithName(name string) Option {
	return func(opts *Options) {
		opts.Name = name
	}
}

// WithMaxEntries задаёт максимальное число записей.
func WithMaxEntries(n int) Option {
	return func(opts *Options) {
		opts.MaxEntries = n
	}
}

// WithDefaultTTL задаёт TTL для Set без явного времени жизни.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.DefaultTTL = ttl
	}
}

// WithClock подменяет источник времени (используется в тестах).
func WithClock(clock func() time.Time) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

// WithRecorder подключает запись метрик.
func WithRecorder(recorder Recorder) Option {
	return func(opts *Options) {
		opts.Recorder = recorder
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// Cache — key→value хранилище с TTL и LRU.
// Порядок в order: от самой давней записи (front) к самой свежей (back).
type Cache[V any] struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List
	name       string
	maxEntries int
	defaultTTL time.Duration
	now        func() time.Time
	recorder   Recorder
	logger     *log.Entry
}

// New создаёт кэш.
func New[V any](options ...Option) *Cache[V] {
	opts := Options{
		Name:       "default",
		MaxEntries: defaultMaxEntries,
		DefaultTTL: defaultTTL,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultMaxEntries
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = defaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "cache")
	}

	return &Cache[V]{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		name:       opts.Name,
		maxEntries: opts.MaxEntries,
		defaultTTL: opts.DefaultTTL,
		now:        opts.Clock,
		recorder:   opts.Recorder,
		logger:     opts.Logger.WithField("cache", opts.Name),
	}
}

// Name возвращает имя кэша.
func (c *Cache[V]) Name() string {
	return c.name
}

// Set сохраняет значение с TTL по умолчанию.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL сохраняет значение; ttl <= 0 означает TTL по умолчанию.
// Вытеснение происходит только при вставке нового ключа в заполненный кэш.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.writtenAt = now
		e.ttl = ttl
		c.order.MoveToBack(el)
		return
	}

	if len(c.items) >= c.maxEntries {
		c.evictOldest()
	}

	c.items[key] = c.order.PushBack(&entry[V]{
		key:       key,
		value:     value,
		writtenAt: now,
		ttl:       ttl,
	})
}

// Get возвращает значение, если запись есть и не просрочена.
// Просроченная запись удаляется.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		c.recordMiss()
		return zero, false
	}

	e := el.Value.(*entry[V])
	if e.expired(c.now()) {
		c.removeElement(el)
		c.recordMiss()
		return zero, false
	}

	c.order.MoveToBack(el)
	c.recordHit()
	return e.value, true
}

// Has сообщает, есть ли живая запись. Порядок LRU не меняется.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	if el.Value.(*entry[V]).expired(c.now()) {
		c.removeElement(el)
		return false
	}
	return true
}

// Invalidate удаляет запись.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// InvalidatePattern удаляет все записи, ключ которых подходит под pattern, и возвращает их число.
func (c *Cache[V]) InvalidatePattern(pattern *regexp.Regexp) int {
	if pattern == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, el := range c.items {
		if !pattern.MatchString(key) {
			continue
		}
		c.removeElement(el)
		removed++
	}
	return removed
}

// Clear удаляет все записи.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Len возвращает число физически хранимых записей, включая ещё не удалённые просроченные.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache[V]) evictOldest() {
	el := c.order.Front()
	if el == nil {
		return
	}
	c.logger.WithField("key", el.Value.(*entry[V]).key).Debug("cache entry evicted")
	c.removeElement(el)
	if c.recorder != nil {
		c.recorder.RecordCacheEviction(c.name)
	}
}

func (c *Cache[V]) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}

func (c *Cache[V]) recordHit() {
	if c.recorder != nil {
		c.recorder.RecordCacheHit(c.name)
	}
}

func (c *Cache[V]) recordMiss() {
	if c.recorder != nil {
		c.recorder.RecordCacheMiss(c.name)
	}
}
