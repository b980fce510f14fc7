package extract

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/toyz/kwargs/pkg/kwargs"
)

// ParseQuery splits a raw query string into ordered pairs. Blank values are
// kept and '+' decodes to a space.
func ParseQuery(raw []byte) []kwargs.QueryPair {
	query := string(raw)
	if query == "" {
		return nil
	}
	pairs := make([]kwargs.QueryPair, 0, strings.Count(query, "&")+1)
	for _, chunk := range strings.Split(query, "&") {
		if chunk == "" {
			continue
		}
		key, value, _ := strings.Cut(chunk, "=")
		pairs = append(pairs, kwargs.QueryPair{Key: unescape(key), Value: unescape(value)})
	}
	return pairs
}

func unescape(s string) string {
	if out, err := url.QueryUnescape(s); err == nil {
		return out
	}
	// malformed escapes are kept as sent
	return strings.ReplaceAll(s, "+", " ")
}

// ConnectionQuery returns the parsed query of a connection, cached per request
func ConnectionQuery(conn kwargs.Connection) []kwargs.QueryPair {
	return conn.Cache().Query(func() []kwargs.QueryPair {
		return ParseQuery(conn.QueryString())
	})
}

// QueryValues converts ordered pairs to url.Values
func QueryValues(pairs []kwargs.QueryPair) url.Values {
	values := make(url.Values, len(pairs))
	for _, p := range pairs {
		values[p.Key] = append(values[p.Key], p.Value)
	}
	return values
}

const queryMemoSize = 1024

type queryMemo struct {
	mu    sync.Mutex
	cache *lru.Cache
}

var defaultDicts = &queryMemo{cache: lru.New(queryMemoSize)}

// QueryDefaultDict maps every key to its value. Keys named in sequenceNames
// map to all of their values in arrival order; any other key maps to its last
// value. Results are memoized by input and must not be modified.
func QueryDefaultDict(pairs []kwargs.QueryPair, sequenceNames []string) map[string]any {
	key := memoKey(pairs, sequenceNames)

	defaultDicts.mu.Lock()
	if cached, ok := defaultDicts.cache.Get(key); ok {
		defaultDicts.mu.Unlock()
		return cached.(map[string]any)
	}
	defaultDicts.mu.Unlock()

	dict := buildDefaultDict(pairs, sequenceNames)

	defaultDicts.mu.Lock()
	defaultDicts.cache.Add(key, dict)
	defaultDicts.mu.Unlock()
	return dict
}

func buildDefaultDict(pairs []kwargs.QueryPair, sequenceNames []string) map[string]any {
	sequence := make(map[string]bool, len(sequenceNames))
	for _, name := range sequenceNames {
		sequence[name] = true
	}
	dict := make(map[string]any, len(pairs))
	for _, p := range pairs {
		if !sequence[p.Key] {
			dict[p.Key] = p.Value
			continue
		}
		list, _ := dict[p.Key].([]string)
		dict[p.Key] = append(list, p.Value)
	}
	return dict
}

func memoKey(pairs []kwargs.QueryPair, sequenceNames []string) string {
	var b strings.Builder
	for _, p := range pairs {
		writeLengthPrefixed(&b, p.Key)
		writeLengthPrefixed(&b, p.Value)
	}
	b.WriteByte('|')
	names := append([]string(nil), sequenceNames...)
	sort.Strings(names)
	for _, name := range names {
		writeLengthPrefixed(&b, name)
	}
	return b.String()
}

func writeLengthPrefixed(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}
