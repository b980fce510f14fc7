package extract

import (
	"context"

	"github.com/toyz/kwargs/pkg/kwargs"
)

// Reserved parameter names supplied directly from the connection
const (
	RequestName    = "request"
	ConnectionName = "connection"
	SocketName     = "socket"
	StateName      = "state"
	ScopeName      = "scope"
	HeadersName    = "headers"
	CookiesName    = "cookies"
	QueryName      = "query"
	BodyName       = "body"
)

var passthrough = map[string]Extractor{
	RequestName:    connectionExtractor(RequestName),
	ConnectionName: connectionExtractor(ConnectionName),
	SocketName:     connectionExtractor(SocketName),
	StateName: func(values kwargs.Kwargs, conn kwargs.Connection) {
		values[StateName] = conn.State()
	},
	ScopeName: func(values kwargs.Kwargs, conn kwargs.Connection) {
		values[ScopeName] = conn.Cache()
	},
	HeadersName: func(values kwargs.Kwargs, conn kwargs.Connection) {
		values[HeadersName] = ConnectionHeaders(conn)
	},
	CookiesName: func(values kwargs.Kwargs, conn kwargs.Connection) {
		values[CookiesName] = conn.Cookies()
	},
	QueryName: func(values kwargs.Kwargs, conn kwargs.Connection) {
		values[QueryName] = QueryValues(ConnectionQuery(conn))
	},
	BodyName: func(values kwargs.Kwargs, conn kwargs.Connection) {
		values[BodyName] = kwargs.Deferred(func(ctx context.Context) (any, error) {
			return ReadBody(ctx, conn)
		})
	},
}

func connectionExtractor(name string) Extractor {
	return func(values kwargs.Kwargs, conn kwargs.Connection) {
		values[name] = conn
	}
}

// Passthrough returns the extractor of a reserved name
func Passthrough(name string) (Extractor, bool) {
	e, ok := passthrough[name]
	return e, ok
}

// IsReserved reports whether name is supplied by the connection itself
func IsReserved(name string) bool {
	_, ok := passthrough[name]
	return ok
}

// ReservedSource returns the source of a reserved name
func ReservedSource(name string) kwargs.ParamType {
	if name == StateName {
		return kwargs.StateParam
	}
	return kwargs.InjectedParam
}
