package kwargs

import (
	"reflect"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BuiltinTypes maps the type names accepted in route templates and struct tags
// to their Go types
var BuiltinTypes = map[string]reflect.Type{
	"int":        reflect.TypeOf(int(0)),
	"int64":      reflect.TypeOf(int64(0)),
	"int32":      reflect.TypeOf(int32(0)),
	"uint":       reflect.TypeOf(uint(0)),
	"uint64":     reflect.TypeOf(uint64(0)),
	"string":     reflect.TypeOf(""),
	"bytes":      reflect.TypeOf([]byte(nil)),
	"bool":       reflect.TypeOf(false),
	"float64":    reflect.TypeOf(float64(0)),
	"float32":    reflect.TypeOf(float32(0)),
	"uuid.UUID":  reflect.TypeOf(uuid.UUID{}),
	"decimal":    reflect.TypeOf(decimal.Decimal{}),
	"time.Time":  reflect.TypeOf(time.Time{}),
	"civil.Date": reflect.TypeOf(civil.Date{}),
	"civil.Time": reflect.TypeOf(civil.Time{}),
	"duration":   reflect.TypeOf(time.Duration(0)),
	"path":       reflect.TypeOf(FilePath("")),
}

// TypeAliases maps convenient aliases to their full type names
var TypeAliases = map[string]string{
	"UUID":     "uuid.UUID",
	"uuid":     "uuid.UUID",
	"str":      "string",
	"float":    "float64",
	"double":   "float64",
	"datetime": "time.Time",
	"date":     "civil.Date",
	"time":     "civil.Time",
	"Decimal":  "decimal",
}

// ResolveTypeAlias resolves a type alias to its actual type name
func ResolveTypeAlias(typeName string) string {
	if actualType, isAlias := TypeAliases[typeName]; isAlias {
		return actualType
	}
	return typeName
}

// LookupType returns the builtin type registered under name, checking aliases first
func LookupType(name string) (reflect.Type, bool) {
	t, ok := BuiltinTypes[ResolveTypeAlias(name)]
	return t, ok
}

// IsBuiltinType checks if a type name is known, including aliases
func IsBuiltinType(typeName string) bool {
	_, ok := LookupType(typeName)
	return ok
}

// GetAllBuiltinTypes returns all type names including aliases, sorted
func GetAllBuiltinTypes() []string {
	types := make([]string, 0, len(BuiltinTypes)+len(TypeAliases))
	for typeName := range BuiltinTypes {
		types = append(types, typeName)
	}
	for alias := range TypeAliases {
		types = append(types, alias)
	}
	sort.Strings(types)
	return types
}
