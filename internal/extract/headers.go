package extract

import (
	"strings"

	"github.com/toyz/kwargs/pkg/kwargs"
)

// ParseHeaders groups raw header pairs by lower-cased name
func ParseHeaders(pairs []kwargs.HeaderPair) kwargs.Headers {
	headers := make(kwargs.Headers, len(pairs))
	for _, p := range pairs {
		name := strings.ToLower(p.Name)
		headers[name] = append(headers[name], p.Value)
	}
	return headers
}

// ConnectionHeaders returns the parsed headers of a connection, cached per request
func ConnectionHeaders(conn kwargs.Connection) kwargs.Headers {
	return conn.Cache().Headers(func() kwargs.Headers {
		return ParseHeaders(conn.Headers())
	})
}
