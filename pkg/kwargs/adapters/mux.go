package adapters

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/toyz/kwargs/pkg/kwargs/app"
)

const muxWildcard = "wildcard"

// MuxAdapter mounts an App on a gorilla/mux router
type MuxAdapter struct {
	router *mux.Router
	app    *app.App
}

// NewMuxAdapter creates a new gorilla/mux adapter
func NewMuxAdapter(a *app.App, router *mux.Router) *MuxAdapter {
	if router == nil {
		router = mux.NewRouter()
	}
	return &MuxAdapter{router: router, app: a}
}

// Mount registers every route of the App with the router
func (ma *MuxAdapter) Mount() {
	for _, route := range ma.app.Routes() {
		path := ConvertPath(route.Path, BraceStyle, "{"+muxWildcard+":.*}")
		ma.router.HandleFunc(path, ma.convertHandler(route)).Methods(route.Method)
	}
}

func (ma *MuxAdapter) convertHandler(route *app.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		params := make(map[string]string, len(vars))
		for k, v := range vars {
			if k == muxWildcard && route.Path.HasWildcard() {
				k = WildcardParam
			}
			params[k] = v
		}
		conn := newHTTPConnection(r, params, ma.app)
		writeHTTP(w, ma.app.Serve(r.Context(), route, conn), ma.app.Logger())
	}
}

// Name returns the adapter name
func (ma *MuxAdapter) Name() string {
	return "Mux"
}

// Router returns the underlying router
func (ma *MuxAdapter) Router() *mux.Router {
	return ma.router
}
