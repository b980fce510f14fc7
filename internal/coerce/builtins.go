package coerce

import (
	"reflect"
)

func exactly(target reflect.Type) func(reflect.Type) bool {
	return func(t reflect.Type) bool { return t == target }
}

func builtinConverters() []Converter {
	return []Converter{
		{Name: "datetime", Match: exactly(timeType), Build: buildDateTime},
		{Name: "date", Match: exactly(dateType), Build: buildDate},
		{Name: "time", Match: exactly(timeOfDay), Build: buildTimeOfDay},
		{Name: "duration", Match: exactly(durationType), Build: buildDuration},
		{Name: "uuid", Match: exactly(uuidType), Build: buildUUID},
		{Name: "decimal", Match: exactly(decimalType), Build: buildDecimal},
		{Name: "path", Match: exactly(filePathType), Build: buildFilePath},
		{Name: "upload", Match: isUploadFile, Build: buildUploadFile},
		{Name: "protobuf", Match: IsProtoMessage, Build: buildProto},
		{Name: "bytes", Match: func(t reflect.Type) bool { return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 }, Build: buildBytes},
		{Name: "text", Match: isTextUnmarshaler, Build: buildTextUnmarshaler},
		{Name: "string", Match: kindIs(reflect.String), Build: buildString},
		{Name: "bool", Match: kindIs(reflect.Bool), Build: buildBool},
		{Name: "int", Match: kindIs(reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64), Build: buildInt},
		{Name: "uint", Match: kindIs(reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64), Build: buildUint},
		{Name: "float", Match: kindIs(reflect.Float32, reflect.Float64), Build: buildFloat},
		{Name: "pointer", Match: kindIs(reflect.Pointer), Build: buildPointer},
		{Name: "slice", Match: kindIs(reflect.Slice), Build: buildSlice},
		{Name: "array", Match: kindIs(reflect.Array), Build: buildArray},
		{Name: "map", Match: kindIs(reflect.Map), Build: buildMap},
		{Name: "struct", Match: kindIs(reflect.Struct), Build: buildStruct},
		{Name: "interface", Match: kindIs(reflect.Interface), Build: buildInterface},
	}
}
