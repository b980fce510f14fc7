package adapters

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/toyz/kwargs/pkg/kwargs/app"
)

const ginWildcard = "path"

// GinAdapter mounts an App on a Gin engine
type GinAdapter struct {
	engine *gin.Engine
	app    *app.App
}

// NewGinAdapter creates a new Gin adapter
func NewGinAdapter(a *app.App, engine *gin.Engine) *GinAdapter {
	return &GinAdapter{engine: engine, app: a}
}

// NewDefaultGinAdapter creates a new Gin adapter with a bare engine in release mode
func NewDefaultGinAdapter(a *app.App) *GinAdapter {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	return NewGinAdapter(a, engine)
}

// Mount registers every route of the App with the engine
func (ga *GinAdapter) Mount() {
	for _, route := range ga.app.Routes() {
		ga.engine.Handle(route.Method, ConvertPath(route.Path, ColonStyle, "*"+ginWildcard), ga.convertHandler(route))
	}
}

func (ga *GinAdapter) convertHandler(route *app.Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			if p.Key == ginWildcard && route.Path.HasWildcard() {
				params[WildcardParam] = strings.TrimPrefix(p.Value, "/")
				continue
			}
			params[p.Key] = p.Value
		}
		conn := newHTTPConnection(c.Request, params, ga.app)
		writeHTTP(c.Writer, ga.app.Serve(c.Request.Context(), route, conn), ga.app.Logger())
	}
}

// Name returns the adapter name
func (ga *GinAdapter) Name() string {
	return "Gin"
}

// Engine returns the underlying Gin engine
func (ga *GinAdapter) Engine() *gin.Engine {
	return ga.engine
}
