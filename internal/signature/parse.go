package signature

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/toyz/kwargs/internal/coerce"
	"github.com/toyz/kwargs/internal/extract"
	"github.com/toyz/kwargs/pkg/kwargs"
)

// ParseConnection extracts and validates every field of conn. Dependency
// values are not available here; callers resolving dependencies use ToKwargs
// and Parse.
func (m *Model) ParseConnection(ctx context.Context, conn kwargs.Connection) (kwargs.Kwargs, error) {
	return m.Parse(ctx, m.ToKwargs(conn), conn)
}

// Parse validates a raw mapping into typed kwargs. Every missing required
// field is reported before any coercion runs; otherwise every field is
// coerced and all failures are reported together as a *kwargs.ValidationError.
// Transport and cancellation errors are returned unchanged.
func (m *Model) Parse(ctx context.Context, raw kwargs.Kwargs, conn kwargs.Connection) (kwargs.Kwargs, error) {
	agg := newAggregator(m, conn)
	for _, name := range m.required {
		if _, ok := raw[name]; !ok {
			agg.missing(m.fields[m.byName[name]].def)
		}
	}
	if verr := agg.err(); verr != nil {
		return nil, verr
	}

	values, failures, err := m.resolve(ctx, raw)
	if err != nil {
		return nil, err
	}
	for _, f := range m.fields {
		var tooMany *extract.TooManyPartsError
		if errors.As(failures[f.def.FieldName], &tooMany) {
			agg.add(f.def.FieldName, kwargs.TooManyMultipartParts, tooMany.Error())
			return nil, agg.err()
		}
	}

	out := make(kwargs.Kwargs, len(m.fields))
	for _, f := range m.fields {
		name := f.def.FieldName
		if err := failures[name]; err != nil {
			agg.add(name, kwargs.CoercionFailure, err.Error())
			continue
		}
		v, present := values[name]
		if !present {
			if f.def.HasDefault() {
				v = f.def.DefaultValue
			}
		}
		if v == nil && f.def.IsRequired && f.def.ParamType == kwargs.BodyParam {
			agg.missing(f.def)
			continue
		}
		if f.coerce == nil {
			out[name] = v
			continue
		}
		coerced, err := f.coerce(v)
		if err != nil {
			kind := kwargs.CoercionFailure
			if coerce.IsConstraintError(err) {
				kind = kwargs.ConstraintViolation
			}
			agg.add(name, kind, err.Error())
			continue
		}
		out[name] = coerced
	}
	if verr := agg.err(); verr != nil {
		return nil, verr
	}
	return out, nil
}

// resolve evaluates deferred body values concurrently. Decode and part limit
// failures are returned per field; any other error aborts the request.
func (m *Model) resolve(ctx context.Context, raw kwargs.Kwargs) (kwargs.Kwargs, map[string]error, error) {
	values := make(kwargs.Kwargs, len(raw))
	var pending []string
	for name, v := range raw {
		if _, ok := v.(kwargs.Deferred); ok {
			pending = append(pending, name)
			continue
		}
		values[name] = v
	}
	if len(pending) == 0 {
		return values, nil, nil
	}

	results := make([]any, len(pending))
	errs := make([]error, len(pending))
	var g errgroup.Group
	for i, name := range pending {
		i := i
		deferred := raw[name].(kwargs.Deferred)
		g.Go(func() error {
			v, err := deferred(ctx)
			var decode *extract.BodyDecodeError
			switch {
			case err == nil:
				results[i] = v
			case errors.As(err, &decode), errors.Is(err, extract.ErrTooManyParts):
				errs[i] = err
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	failures := map[string]error{}
	for i, name := range pending {
		if errs[i] != nil {
			failures[name] = errs[i]
			continue
		}
		values[name] = results[i]
	}
	return values, failures, nil
}
