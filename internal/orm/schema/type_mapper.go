package schema

// Mapper is the closed set of value categories a field can be stored as
type Mapper int

const (
	MapperBoolean Mapper = iota
	MapperNumeric
	MapperDecimal
	MapperText
	MapperDate
)

// String returns the string representation of the mapper
func (m Mapper) String() string {
	switch m {
	case MapperBoolean:
		return "boolean"
	case MapperNumeric:
		return "numeric"
	case MapperDecimal:
		return "decimal"
	case MapperText:
		return "text"
	case MapperDate:
		return "date"
	default:
		return "unknown"
	}
}

// Storage returns the storage type values of this category are written as
func (m Mapper) Storage() StorageType {
	switch m {
	case MapperDecimal:
		return StorageReal
	case MapperText:
		return StorageText
	default:
		// booleans as 0/1, dates as epoch milliseconds
		return StorageInteger
	}
}

var mappers = map[string]Mapper{
	"bool":      MapperBoolean,
	"int":       MapperNumeric,
	"int8":      MapperNumeric,
	"int16":     MapperNumeric,
	"int32":     MapperNumeric,
	"int64":     MapperNumeric,
	"uint":      MapperNumeric,
	"uint8":     MapperNumeric,
	"uint16":    MapperNumeric,
	"uint32":    MapperNumeric,
	"uint64":    MapperNumeric,
	"float32":   MapperDecimal,
	"float64":   MapperDecimal,
	"string":    MapperText,
	"char":      MapperText,
	"time.Time": MapperDate,
}

// MapperFor finds the category of a semantic type name
func MapperFor(semantic string) (Mapper, bool) {
	m, ok := mappers[semantic]
	return m, ok
}

// MapType returns the storage type of a semantic type name. Unmatched types are not
// columns.
func MapType(semantic string) (StorageType, bool) {
	m, ok := MapperFor(semantic)
	if !ok {
		return 0, false
	}
	return m.Storage(), true
}
