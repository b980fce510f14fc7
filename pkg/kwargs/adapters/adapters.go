// Package adapters mount an app.App on gin, echo, fiber and gorilla/mux. Each
// adapter exposes the framework request as a kwargs.Connection and writes the
// kwargs.Response produced by the App.
package adapters

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/toyz/kwargs/pkg/kwargs"
	"github.com/toyz/kwargs/pkg/kwargs/app"
)

// WildcardParam is the path parameter key holding the catch-all remainder
const WildcardParam = "*"

// PathStyle selects the placeholder syntax of a router
type PathStyle int

const (
	// ColonStyle is /users/:id with a router-specific catch-all
	ColonStyle PathStyle = iota
	// BraceStyle is /users/{id} as used by gorilla/mux
	BraceStyle
)

// ConvertPath renders a route template in the syntax of a router. wildcard is
// the catch-all segment used for {*}.
func ConvertPath(path kwargs.RoutePath, style PathStyle, wildcard string) string {
	var b strings.Builder
	for _, part := range path.Parts() {
		switch part.Kind {
		case kwargs.ParameterPart:
			if style == BraceStyle {
				b.WriteString("{" + part.Value + "}")
			} else {
				b.WriteString(":" + part.Value)
			}
		case kwargs.WildcardPart:
			b.WriteString(wildcard)
		default:
			b.WriteString(part.Value)
		}
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// ErrBodyTooLarge is returned when a request body exceeds the configured limit
func ErrBodyTooLarge(limit int64) *kwargs.HttpError {
	return kwargs.NewHttpError(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("request body exceeds %d bytes", limit))
}

// httpConnection adapts a net/http request. gin, echo and mux share it.
type httpConnection struct {
	req     *http.Request
	params  map[string]string
	state   *kwargs.State
	cache   *kwargs.RequestCache
	maxBody int64
}

func newHTTPConnection(req *http.Request, params map[string]string, a *app.App) *httpConnection {
	if params == nil {
		params = map[string]string{}
	}
	return &httpConnection{
		req:     req,
		params:  params,
		state:   a.State(),
		cache:   kwargs.NewRequestCache(),
		maxBody: a.Config().MaxBodySize,
	}
}

func (c *httpConnection) Context() context.Context { return c.req.Context() }

func (c *httpConnection) Method() string { return c.req.Method }

func (c *httpConnection) URL() *url.URL { return c.req.URL }

func (c *httpConnection) Headers() []kwargs.HeaderPair {
	names := make([]string, 0, len(c.req.Header))
	for name := range c.req.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]kwargs.HeaderPair, 0, len(names)+1)
	if c.req.Host != "" {
		pairs = append(pairs, kwargs.HeaderPair{Name: "Host", Value: c.req.Host})
	}
	for _, name := range names {
		for _, v := range c.req.Header[name] {
			pairs = append(pairs, kwargs.HeaderPair{Name: name, Value: v})
		}
	}
	return pairs
}

func (c *httpConnection) QueryString() []byte { return []byte(c.req.URL.RawQuery) }

func (c *httpConnection) Cookies() map[string]string {
	cookies := map[string]string{}
	for _, ck := range c.req.Cookies() {
		if _, seen := cookies[ck.Name]; !seen {
			cookies[ck.Name] = ck.Value
		}
	}
	return cookies
}

func (c *httpConnection) PathParams() map[string]string { return c.params }

func (c *httpConnection) ReadBody(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.req.Body == nil || c.req.Body == http.NoBody {
		return nil, nil
	}
	if c.maxBody > 0 && c.req.ContentLength > c.maxBody {
		return nil, ErrBodyTooLarge(c.maxBody)
	}
	r := io.Reader(c.req.Body)
	if c.maxBody > 0 {
		r = io.LimitReader(r, c.maxBody+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if c.maxBody > 0 && int64(len(body)) > c.maxBody {
		return nil, ErrBodyTooLarge(c.maxBody)
	}
	return body, nil
}

func (c *httpConnection) ContentType() (string, map[string]string) {
	return parseContentType(c.req.Header.Get("Content-Type"))
}

func (c *httpConnection) Cache() *kwargs.RequestCache { return c.cache }

func (c *httpConnection) State() *kwargs.State { return c.state }

func parseContentType(raw string) (string, map[string]string) {
	if raw == "" {
		return "", map[string]string{}
	}
	mediaType, params, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.TrimSpace(raw), map[string]string{}
	}
	return mediaType, params
}

// writeHTTP writes resp to a net/http response writer
func writeHTTP(w http.ResponseWriter, resp *kwargs.Response, logger *slog.Logger) {
	body, mediaType, err := app.Encode(resp)
	if err != nil {
		logger.Error("failed to encode response", slog.Int("status", resp.StatusCode), slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	for _, ck := range resp.Cookies {
		http.SetCookie(w, ck.HTTP())
	}
	if mediaType != "" && len(body) > 0 {
		w.Header().Set("Content-Type", mediaType)
	}
	w.WriteHeader(resp.StatusCode)
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			logger.Debug("failed to write response", slog.String("error", err.Error()))
		}
	}
}
