// Package app mounts handlers on a kwargs runtime: it compiles their
// signatures at registration, resolves dependencies, validates each request
// and translates return values into responses.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/swaggest/openapi-go/openapi3"

	"github.com/toyz/kwargs/internal/coerce"
	"github.com/toyz/kwargs/internal/openapi"
	"github.com/toyz/kwargs/internal/signature"
	"github.com/toyz/kwargs/pkg/kwargs"
)

// HandlerFunc receives the validated kwargs of one request
type HandlerFunc func(ctx context.Context, values kwargs.Kwargs) (any, error)

// Handler declares one route handler
type Handler struct {
	Name       string
	Summary    string
	Parameters []signature.Parameter
	Func       HandlerFunc

	// ReturnType documents the value Func returns
	ReturnType reflect.Type

	// Dependencies override the App's providers for this handler
	Dependencies map[string]*Provider

	// Layered parameters override the App's layered parameters by name
	Layered []signature.Parameter
}

// Route is a handler mounted on a method and path
type Route struct {
	Method  string
	Path    kwargs.RoutePath
	Handler Handler

	model *signature.Model
	plans []*plan
}

// Model returns the compiled signature of the route's handler
func (r *Route) Model() *signature.Model { return r.model }

// Dependencies returns the names of the providers the route resolves per request
func (r *Route) Dependencies() []string {
	names := make([]string, len(r.plans))
	for i, p := range r.plans {
		names[i] = p.name
	}
	return names
}

// Option configures an App
type Option func(*App)

// WithProvider registers an application-level dependency provider
func WithProvider(name string, p *Provider) Option {
	return func(a *App) { a.providers[name] = p }
}

// WithLayeredParameters declares parameters merged into every handler
func WithLayeredParameters(params ...signature.Parameter) Option {
	return func(a *App) { a.layered = append(a.layered, params...) }
}

// WithRegistry selects the coercion registry used by every handler
func WithRegistry(r *coerce.Registry) Option {
	return func(a *App) { a.registry = r }
}

// WithState seeds the application state
func WithState(initial map[string]any) Option {
	return func(a *App) { a.state = kwargs.NewState(initial) }
}

// App owns the routes, providers and compiled signatures of an application
type App struct {
	config    *Config
	logger    *slog.Logger
	state     *kwargs.State
	registry  *coerce.Registry
	providers map[string]*Provider
	layered   []signature.Parameter
	models    *signature.Cache

	mu     sync.RWMutex
	routes []*Route
	index  map[string]*Route
}

// New creates an App. A nil config uses DefaultConfig and a nil logger uses slog.Default.
func New(cfg *Config, logger *slog.Logger, opts ...Option) *App {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		config:    cfg,
		logger:    logger,
		state:     kwargs.NewState(nil),
		registry:  coerce.Default,
		providers: map[string]*Provider{},
		models:    signature.NewCache(),
		index:     map[string]*Route{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the application configuration
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger
func (a *App) Logger() *slog.Logger { return a.logger }

// State returns the application state shared by every request
func (a *App) State() *kwargs.State { return a.state }

// Provide registers an application-level dependency provider. It affects
// routes registered afterwards.
func (a *App) Provide(name string, p *Provider) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.providers[name] = p
}

// Handle compiles h and mounts it on method and path. Configuration errors
// are returned here and never at request time.
func (a *App) Handle(method, path string, h Handler) (*Route, error) {
	method = strings.ToUpper(method)
	if h.Func == nil {
		return nil, kwargs.NewConfigurationError(h.Name, "handler for %s %s has no function", method, path)
	}
	if h.Name == "" {
		h.Name = method + " " + path
	}
	for _, part := range kwargs.RoutePath(path).Parts() {
		if part.Kind == kwargs.ParameterPart && part.TypeName != "" && !kwargs.IsBuiltinType(part.TypeName) {
			return nil, kwargs.NewConfigurationError(h.Name, "path parameter %q has unknown type %q", part.Value, part.TypeName)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := routeKey(method, path)
	if _, exists := a.index[key]; exists {
		return nil, kwargs.NewConfigurationError(h.Name, "route %s is already registered", key)
	}

	providers := make(map[string]*Provider, len(a.providers)+len(h.Dependencies))
	for n, p := range a.providers {
		providers[n] = p
	}
	for n, p := range h.Dependencies {
		providers[n] = p
	}
	names := make([]string, 0, len(providers))
	for n := range providers {
		names = append(names, n)
	}

	route := kwargs.RoutePath(path)
	common := []signature.Option{
		signature.WithRegistry(a.registry),
		signature.WithPartLimit(a.config.MultipartPartLimit),
	}
	opts := append([]signature.Option{
		signature.WithRoute(route),
		signature.WithDependencyNames(names...),
		signature.WithReturnType(h.ReturnType),
		signature.WithLayeredParameters(layer(a.layered, h.Layered)...),
	}, common...)

	model, err := a.models.GetOrBuild(signature.KeyOf(h.Func, key), func() (*signature.Model, error) {
		return signature.Build(h.Name, h.Parameters, opts...)
	})
	if err != nil {
		return nil, err
	}

	r := &Route{Method: method, Path: route, Handler: h, model: model}
	pl := newPlanner(h.Name, route, providers, common)
	for _, dep := range model.DependencyNames() {
		p, err := pl.plan(dep)
		if err != nil {
			return nil, err
		}
		if p != nil {
			r.plans = append(r.plans, p)
		}
	}

	a.routes = append(a.routes, r)
	a.index[key] = r
	a.logger.Debug("route registered",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("handler", h.Name),
		slog.Int("parameters", len(model.Fields())),
		slog.Any("dependencies", r.Dependencies()))
	return r, nil
}

// MustHandle is Handle that panics on configuration errors
func (a *App) MustHandle(method, path string, h Handler) *Route {
	r, err := a.Handle(method, path, h)
	if err != nil {
		panic(err)
	}
	return r
}

// Routes returns the mounted routes sorted by path then method
func (a *App) Routes() []*Route {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*Route, len(a.routes))
	copy(out, a.routes)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// Route looks up the route mounted on method and path
func (a *App) Route(method, path string) (*Route, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	r, ok := a.index[routeKey(strings.ToUpper(method), path)]
	return r, ok
}

// OpenAPI describes every mounted route
func (a *App) OpenAPI() *openapi3.Spec {
	routes := a.Routes()
	described := make([]openapi.Route, len(routes))
	for i, r := range routes {
		described[i] = openapi.Route{Method: r.Method, Path: r.Path, Summary: r.Handler.Summary, Model: r.model}
	}
	return openapi.Document(a.config.Title, a.config.Version, described)
}

// Serve runs one request through route: extraction, dependency resolution,
// validation, the handler and response translation. It never returns nil.
func (a *App) Serve(ctx context.Context, route *Route, conn kwargs.Connection) *kwargs.Response {
	result, err := a.invoke(ctx, route, conn)
	if err != nil {
		return a.failure(route, err)
	}
	return respond(route.Method, result)
}

func (a *App) invoke(ctx context.Context, route *Route, conn kwargs.Connection) (any, error) {
	raw := route.model.ToKwargs(conn)
	if len(route.plans) > 0 {
		res := &resolver{conn: conn, values: map[string]any{}}
		for _, p := range route.plans {
			v, err := res.resolve(ctx, p)
			if err != nil {
				return nil, err
			}
			raw[p.name] = v
		}
	}
	values, err := route.model.Parse(ctx, raw, conn)
	if err != nil {
		return nil, err
	}
	return route.Handler.Func(ctx, values)
}

func (a *App) failure(route *Route, err error) *kwargs.Response {
	httpErr := kwargs.AsHttpError(err)

	var verr *kwargs.ValidationError
	switch {
	case errors.As(err, &verr) && len(verr.DependencyFailures) > 0:
		attrs := []any{
			slog.String("handler", route.Handler.Name),
			slog.String("method", verr.Method),
			slog.String("url", verr.URL),
		}
		for _, f := range verr.DependencyFailures {
			attrs = append(attrs, slog.String(f.Key, f.Message))
		}
		a.logger.Error("dependency failed validation", attrs...)
	case httpErr.StatusCode >= 500:
		a.logger.Error("handler failed",
			slog.String("handler", route.Handler.Name),
			slog.String("error", err.Error()))
	default:
		a.logger.Debug("request rejected",
			slog.String("handler", route.Handler.Name),
			slog.Int("status", httpErr.StatusCode),
			slog.String("error", err.Error()))
	}

	return &kwargs.Response{
		StatusCode: httpErr.StatusCode,
		Body:       httpErr,
		MediaType:  kwargs.JSON.String(),
	}
}

// layer overlays handler-level parameters on application-level ones by name
func layer(appLevel, handlerLevel []signature.Parameter) []signature.Parameter {
	if len(handlerLevel) == 0 {
		return appLevel
	}
	override := make(map[string]bool, len(handlerLevel))
	for _, p := range handlerLevel {
		override[p.Name] = true
	}
	out := make([]signature.Parameter, 0, len(appLevel)+len(handlerLevel))
	for _, p := range appLevel {
		if !override[p.Name] {
			out = append(out, p)
		}
	}
	return append(out, handlerLevel...)
}

func routeKey(method, path string) string {
	return fmt.Sprintf("%s %s", method, path)
}
