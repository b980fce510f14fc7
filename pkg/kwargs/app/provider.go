package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/toyz/kwargs/internal/signature"
	"github.com/toyz/kwargs/pkg/kwargs"
)

// ProviderFunc computes a dependency value from its own validated parameters
type ProviderFunc func(ctx context.Context, values kwargs.Kwargs) (any, error)

// Provider supplies the value of a dependency. Its parameters are extracted
// from the connection like a handler's and may name other dependencies.
type Provider struct {
	Parameters []signature.Parameter
	Func       ProviderFunc

	// UseCache keeps the first successful value for the life of the App
	UseCache bool

	mu     sync.Mutex
	cached bool
	value  any
}

// Provide creates a provider for fn
func Provide(fn ProviderFunc, params ...signature.Parameter) *Provider {
	return &Provider{Func: fn, Parameters: params}
}

// Value creates a cached provider that always returns v
func Value(v any) *Provider {
	return &Provider{
		Func:     func(context.Context, kwargs.Kwargs) (any, error) { return v, nil },
		UseCache: true,
	}
}

func (p *Provider) call(ctx context.Context, values kwargs.Kwargs) (any, error) {
	if !p.UseCache {
		return p.Func(ctx, values)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached {
		return p.value, nil
	}
	v, err := p.Func(ctx, values)
	if err != nil {
		return nil, err
	}
	p.value, p.cached = v, true
	return v, nil
}

// plan is a provider compiled against one route
type plan struct {
	name     string
	provider *Provider
	model    *signature.Model
	needs    []*plan
}

// planner compiles the providers reachable from one handler
type planner struct {
	handler   string
	route     kwargs.RoutePath
	providers map[string]*Provider
	names     []string
	opts      []signature.Option
	plans     map[string]*plan
	visiting  map[string]bool
}

func newPlanner(handler string, route kwargs.RoutePath, providers map[string]*Provider, opts []signature.Option) *planner {
	names := make([]string, 0, len(providers))
	for n := range providers {
		names = append(names, n)
	}
	return &planner{
		handler:   handler,
		route:     route,
		providers: providers,
		names:     names,
		opts:      opts,
		plans:     map[string]*plan{},
		visiting:  map[string]bool{},
	}
}

// plan compiles the provider registered for name, or returns nil when none is
func (pl *planner) plan(name string) (*plan, error) {
	if p, ok := pl.plans[name]; ok {
		return p, nil
	}
	provider, ok := pl.providers[name]
	if !ok {
		return nil, nil
	}
	if pl.visiting[name] {
		return nil, kwargs.NewConfigurationError(pl.handler, "dependency %q depends on itself", name)
	}
	if provider.Func == nil {
		return nil, kwargs.NewConfigurationError(pl.handler, "dependency %q has no provider function", name)
	}
	pl.visiting[name] = true
	defer delete(pl.visiting, name)

	opts := append([]signature.Option{
		signature.WithRoute(pl.route),
		signature.WithDependencyNames(pl.names...),
	}, pl.opts...)
	model, err := signature.Build(fmt.Sprintf("%s.%s", pl.handler, name), provider.Parameters, opts...)
	if err != nil {
		return nil, err
	}
	p := &plan{name: name, provider: provider, model: model}
	for _, dep := range model.DependencyNames() {
		sub, err := pl.plan(dep)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			p.needs = append(p.needs, sub)
		}
	}
	pl.plans[name] = p
	return p, nil
}

// resolver evaluates plans for one request; each provider runs at most once
type resolver struct {
	conn   kwargs.Connection
	values map[string]any
}

func (r *resolver) resolve(ctx context.Context, p *plan) (any, error) {
	if v, ok := r.values[p.name]; ok {
		return v, nil
	}
	raw := p.model.ToKwargs(r.conn)
	for _, sub := range p.needs {
		v, err := r.resolve(ctx, sub)
		if err != nil {
			return nil, err
		}
		raw[sub.name] = v
	}
	values, err := p.model.Parse(ctx, raw, r.conn)
	if err != nil {
		return nil, err
	}
	v, err := p.provider.call(ctx, values)
	if err != nil {
		return nil, fmt.Errorf("dependency %s: %w", p.name, err)
	}
	r.values[p.name] = v
	return v, nil
}
