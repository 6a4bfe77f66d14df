package plainbuffer

import "fmt"

// Value is the wire-level tagged value stored in a CellValue field. It
// covers every ValueType the format can carry; callers (tablestore's codec
// layer) are responsible for only constructing combinations legal for the
// context (primary key vs. attribute).
type Value struct {
	Type  ValueType
	Int   int64   // VTInteger
	Bytes []byte  // VTString, VTBlob
	Bool  bool    // VTBoolean
	Float float64 // VTDouble
}

func IntValue(v int64) Value    { return Value{Type: VTInteger, Int: v} }
func StringValue(v []byte) Value { return Value{Type: VTString, Bytes: v} }
func BlobValue(v []byte) Value   { return Value{Type: VTBlob, Bytes: v} }
func BoolValue(v bool) Value    { return Value{Type: VTBoolean, Bool: v} }
func DoubleValue(v float64) Value { return Value{Type: VTDouble, Float: v} }

var InfMinValue = Value{Type: VTInfMin}
var InfMaxValue = Value{Type: VTInfMax}
var AutoIncrementValue = Value{Type: VTAutoIncrement}

func (v Value) String() string {
	switch v.Type {
	case VTInteger:
		return fmt.Sprintf("int(%d)", v.Int)
	case VTString:
		return fmt.Sprintf("str(%q)", string(v.Bytes))
	case VTBlob:
		return fmt.Sprintf("blob(%x)", v.Bytes)
	case VTBoolean:
		return fmt.Sprintf("bool(%v)", v.Bool)
	case VTDouble:
		return fmt.Sprintf("double(%v)", v.Float)
	case VTInfMin:
		return "inf-min"
	case VTInfMax:
		return "inf-max"
	case VTAutoIncrement:
		return "auto-increment"
	case VTNull:
		return "null"
	default:
		return "unknown"
	}
}

// Cell is one (name, value, optional timestamp, optional delete marker)
// entry. HasValue distinguishes a present-but-absent value (an UpdateRow
// delete-only entry) from a zero Value.
type Cell struct {
	Name         []byte
	Value        Value
	HasValue     bool
	Timestamp    *int64
	DeleteMarker DeleteMarker
}

// Row is the generic decoded/encoded shape of a PlainBuffer row: an ordered
// primary key, an ordered sequence of data cells, and whether a row-level
// delete marker is present.
type Row struct {
	PrimaryKey      []Cell
	Cells           []Cell
	RowDeleteMarker bool
}
