package adapters

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/toyz/kwargs/pkg/kwargs/app"
)

// EchoAdapter mounts an App on an Echo instance
type EchoAdapter struct {
	echo *echo.Echo
	app  *app.App
}

// NewEchoAdapter creates a new Echo adapter
func NewEchoAdapter(a *app.App, e *echo.Echo) *EchoAdapter {
	return &EchoAdapter{echo: e, app: a}
}

// NewDefaultEchoAdapter creates a new Echo adapter with panic recovery
func NewDefaultEchoAdapter(a *app.App) *EchoAdapter {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	return NewEchoAdapter(a, e)
}

// Mount registers every route of the App with Echo
func (ea *EchoAdapter) Mount() {
	for _, route := range ea.app.Routes() {
		ea.echo.Add(route.Method, ConvertPath(route.Path, ColonStyle, "*"), ea.convertHandler(route))
	}
}

func (ea *EchoAdapter) convertHandler(route *app.Route) echo.HandlerFunc {
	return func(c echo.Context) error {
		names, values := c.ParamNames(), c.ParamValues()
		params := make(map[string]string, len(names))
		for i, name := range names {
			if i < len(values) {
				params[name] = values[i]
			}
		}
		req := c.Request()
		conn := newHTTPConnection(req, params, ea.app)
		writeHTTP(c.Response(), ea.app.Serve(req.Context(), route, conn), ea.app.Logger())
		return nil
	}
}

// Name returns the adapter name
func (ea *EchoAdapter) Name() string {
	return "Echo"
}

// Echo returns the underlying Echo instance
func (ea *EchoAdapter) Echo() *echo.Echo {
	return ea.echo
}
