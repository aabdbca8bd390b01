package mailmerge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Engine provides the main API for merging rows into templates.
// Use New() to create an engine that follows the global configuration.
type Engine struct {
	config *Config
	logger *slog.Logger
	cache  *TemplateCache
}

// New creates an engine that reads the global configuration and logger on every call
func New() *Engine {
	return &Engine{
		cache: NewTemplateCache(),
	}
}

// NewWithConfig creates an engine with its own configuration
func NewWithConfig(config *Config) *Engine {
	config = NewConfigWithDefaults(config)
	return &Engine{
		config: config,
		cache: NewTemplateCacheWithConfig(CacheConfig{
			MaxSize: config.CacheMaxSize,
			TTL:     config.CacheTTL,
		}),
	}
}

// Option represents a configuration option for the engine
type Option func(*Engine)

// WithConfig returns an option that sets the engine configuration and resizes the cache
func WithConfig(config *Config) Option {
	return func(e *Engine) {
		e.config = NewConfigWithDefaults(config)
		e.cache = NewTemplateCacheWithConfig(CacheConfig{
			MaxSize: e.config.CacheMaxSize,
			TTL:     e.config.CacheTTL,
		})
	}
}

// WithLogger returns an option that sets the engine logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithCache returns an option that replaces the template cache (nil disables caching)
func WithCache(cache *TemplateCache) Option {
	return func(e *Engine) {
		e.cache = cache
	}
}

// WithWorkers returns an option that sets the number of rows rendered concurrently
func WithWorkers(n int) Option {
	return func(e *Engine) {
		cfg := *e.cfg()
		cfg.Workers = n
		e.config = &cfg
	}
}

// NewWithOptions creates a new engine with the specified options
func NewWithOptions(opts ...Option) *Engine {
	engine := New()
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Config returns a copy of the configuration the engine currently uses
func (e *Engine) Config() *Config {
	cfg := *e.cfg()
	return &cfg
}

func (e *Engine) cfg() *Config {
	if e.config != nil {
		return e.config
	}
	return GetGlobalConfig()
}

func (e *Engine) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return Logger()
}

// Prepare opens a template and scans its placeholders. Prepared templates are cached by
// content, so preparing the same bytes again is cheap.
func (e *Engine) Prepare(data []byte) (*Template, error) {
	key := TemplateKey(data)
	headersFooters := e.cfg().HeadersFooters
	cacheKey := key
	if !headersFooters {
		cacheKey += "/body"
	}
	if e.cache != nil {
		if tmpl, ok := e.cache.Get(cacheKey); ok {
			e.log().Debug("template cache hit", "key", key[:16])
			return tmpl, nil
		}
	}

	archive, err := Open(data)
	if err != nil {
		return nil, &Error{Kind: KindInvalidTemplate, Op: "open", Cause: err}
	}

	placeholders, err := scanArchive(archive, headersFooters)
	if err != nil {
		return nil, err
	}

	tmpl := &Template{archive: archive, placeholders: placeholders, key: key}
	if e.cache != nil {
		e.cache.Set(cacheKey, tmpl)
	}
	e.log().Debug("template prepared", "key", key[:16], "placeholders", len(placeholders))
	return tmpl, nil
}

// PrepareFile reads and prepares a template file
func (e *Engine) PrepareFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	return e.Prepare(data)
}

// ExtractPlaceholders returns the sorted set of distinct placeholders of a template.
// A template without placeholders yields an empty slice.
func (e *Engine) ExtractPlaceholders(template []byte) ([]string, error) {
	tmpl, err := e.Prepare(template)
	if err != nil {
		return nil, err
	}
	return tmpl.Placeholders(), nil
}

// Scan returns the placeholders of an opened archive
func (e *Engine) Scan(a *Archive) ([]string, error) {
	return scanArchive(a, e.cfg().HeadersFooters)
}

// Render renders a single row into a copy of the template
func (e *Engine) Render(tmpl *Template, mapping Mapping, row Row) (*Archive, error) {
	return renderRow(tmpl.archive, SubstitutionTable(mapping, row), renderOptionsFromConfig(e.cfg()))
}

// Concatenate joins documents with page breaks; see the package-level Concatenate
func (e *Engine) Concatenate(docs []*Archive) (*Archive, error) {
	return concatenate(docs, e.log())
}

// ClearCache removes all templates from the cache
func (e *Engine) ClearCache() {
	if e.cache != nil {
		e.cache.Clear()
	}
}

// DefaultEngine is the global default engine instance.
// It uses the global configuration and logger.
var DefaultEngine = New()

// Module-level convenience functions that use the default engine.

// ExtractPlaceholders returns the sorted set of distinct placeholders of a template
func ExtractPlaceholders(template []byte) ([]string, error) {
	return DefaultEngine.ExtractPlaceholders(template)
}

// GenerateMerged merges rows into template and returns a single document with one
// page-break separated section per row
func GenerateMerged(ctx context.Context, template []byte, rows []Row, mapping Mapping) ([]byte, error) {
	return DefaultEngine.GenerateMerged(ctx, template, rows, mapping)
}

// GenerateSeparate merges rows into template and returns one document per row
func GenerateSeparate(ctx context.Context, template []byte, rows []Row, mapping Mapping) ([][]byte, error) {
	return DefaultEngine.GenerateSeparate(ctx, template, rows, mapping)
}

// Prepare opens and scans a template using the default engine
func Prepare(data []byte) (*Template, error) {
	return DefaultEngine.Prepare(data)
}

// PrepareFile reads and prepares a template file using the default engine
func PrepareFile(path string) (*Template, error) {
	return DefaultEngine.PrepareFile(path)
}

// ClearCache clears the default engine's template cache
func ClearCache() {
	DefaultEngine.ClearCache()
}
