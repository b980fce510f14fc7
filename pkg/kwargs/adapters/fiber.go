package adapters

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/toyz/kwargs/pkg/kwargs"
	"github.com/toyz/kwargs/pkg/kwargs/app"
)

// FiberAdapter mounts an App on a Fiber app
type FiberAdapter struct {
	fiber *fiber.App
	app   *app.App
}

// NewFiberAdapter creates a new Fiber adapter. Bodies rejected by the body
// limit of f never reach the App, so it should exceed the App's MaxBodySize.
func NewFiberAdapter(a *app.App, f *fiber.App) *FiberAdapter {
	return &FiberAdapter{fiber: f, app: a}
}

// TransportBodyLimit is the Fiber body limit used for an App. Bodies between
// MaxBodySize and this limit are answered with a 413 HttpError by the App.
func TransportBodyLimit(cfg *app.Config) int {
	return max(int(cfg.MaxBodySize)*4, fiber.DefaultBodyLimit)
}

// NewDefaultFiberAdapter creates a Fiber app sized to the App's body limit
func NewDefaultFiberAdapter(a *app.App) *FiberAdapter {
	f := fiber.New(fiber.Config{
		BodyLimit:             TransportBodyLimit(a.Config()),
		DisableStartupMessage: true,
	})
	f.Use(recover.New())
	return NewFiberAdapter(a, f)
}

// Mount registers every route of the App with Fiber
func (fa *FiberAdapter) Mount() {
	for _, route := range fa.app.Routes() {
		fa.fiber.Add(route.Method, ConvertPath(route.Path, ColonStyle, "*"), fa.convertHandler(route))
	}
}

func (fa *FiberAdapter) convertHandler(route *app.Route) fiber.Handler {
	return func(c *fiber.Ctx) error {
		conn := newFiberConnection(c, fa.app)
		resp := fa.app.Serve(conn.Context(), route, conn)
		return writeFiber(c, resp, fa.app.Logger())
	}
}

// Name returns the adapter name
func (fa *FiberAdapter) Name() string {
	return "Fiber"
}

// App returns the underlying Fiber app
func (fa *FiberAdapter) App() *fiber.App {
	return fa.fiber
}

// fiberConnection copies everything it exposes out of the fasthttp request,
// whose buffers are reused after the handler returns.
type fiberConnection struct {
	ctx     context.Context
	method  string
	url     *url.URL
	headers []kwargs.HeaderPair
	query   []byte
	cookies map[string]string
	params  map[string]string
	body    []byte
	ctype   string
	state   *kwargs.State
	cache   *kwargs.RequestCache
	maxBody int64
}

func newFiberConnection(c *fiber.Ctx, a *app.App) *fiberConnection {
	conn := &fiberConnection{
		ctx:     c.UserContext(),
		method:  c.Method(),
		query:   append([]byte(nil), c.Request().URI().QueryString()...),
		cookies: map[string]string{},
		params:  map[string]string{},
		body:    append([]byte(nil), c.Body()...),
		ctype:   string(c.Request().Header.ContentType()),
		state:   a.State(),
		cache:   kwargs.NewRequestCache(),
		maxBody: a.Config().MaxBodySize,
	}
	conn.url = &url.URL{Path: strings.Clone(c.Path()), RawQuery: string(conn.query)}

	c.Request().Header.VisitAll(func(key, value []byte) {
		conn.headers = append(conn.headers, kwargs.HeaderPair{Name: string(key), Value: string(value)})
	})
	c.Request().Header.VisitAllCookie(func(key, value []byte) {
		name := string(key)
		if _, seen := conn.cookies[name]; !seen {
			conn.cookies[name] = string(value)
		}
	})
	for k, v := range c.AllParams() {
		if strings.HasPrefix(k, "*") {
			k = WildcardParam
		}
		conn.params[strings.Clone(k)] = strings.Clone(v)
	}
	return conn
}

func (c *fiberConnection) Context() context.Context { return c.ctx }

func (c *fiberConnection) Method() string { return c.method }

func (c *fiberConnection) URL() *url.URL { return c.url }

func (c *fiberConnection) Headers() []kwargs.HeaderPair { return c.headers }

func (c *fiberConnection) QueryString() []byte { return c.query }

func (c *fiberConnection) Cookies() map[string]string { return c.cookies }

func (c *fiberConnection) PathParams() map[string]string { return c.params }

func (c *fiberConnection) ReadBody(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.maxBody > 0 && int64(len(c.body)) > c.maxBody {
		return nil, ErrBodyTooLarge(c.maxBody)
	}
	return c.body, nil
}

func (c *fiberConnection) ContentType() (string, map[string]string) {
	return parseContentType(c.ctype)
}

func (c *fiberConnection) Cache() *kwargs.RequestCache { return c.cache }

func (c *fiberConnection) State() *kwargs.State { return c.state }

func writeFiber(c *fiber.Ctx, resp *kwargs.Response, logger *slog.Logger) error {
	body, mediaType, err := app.Encode(resp)
	if err != nil {
		logger.Error("failed to encode response", slog.Int("status", resp.StatusCode), slog.String("error", err.Error()))
		return c.Status(fiber.StatusInternalServerError).SendString(http.StatusText(http.StatusInternalServerError))
	}
	for k, v := range resp.Headers {
		c.Set(k, v)
	}
	for _, ck := range resp.Cookies {
		c.Cookie(&fiber.Cookie{
			Name:     ck.Name,
			Value:    ck.Value,
			Path:     ck.Path,
			Domain:   ck.Domain,
			Expires:  ck.Expires,
			MaxAge:   ck.MaxAge,
			Secure:   ck.Secure,
			HTTPOnly: ck.HttpOnly,
			SameSite: sameSite(ck.SameSite),
		})
	}
	c.Status(resp.StatusCode)
	if len(body) == 0 {
		return nil
	}
	if mediaType != "" {
		c.Set(fiber.HeaderContentType, mediaType)
	}
	return c.Send(body)
}

func sameSite(s http.SameSite) string {
	switch s {
	case http.SameSiteStrictMode:
		return fiber.CookieSameSiteStrictMode
	case http.SameSiteNoneMode:
		return fiber.CookieSameSiteNoneMode
	case http.SameSiteLaxMode:
		return fiber.CookieSameSiteLaxMode
	default:
		return ""
	}
}
