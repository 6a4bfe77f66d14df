// Package plainbuffer implements the self-delimited PlainBuffer row codec
// used on the wire between this client and the TableStore service (spec
// §4.1). It knows nothing about table names, conditions or HTTP; it only
// reads and writes rows.
package plainbuffer

// Header is the fixed little-endian magic that opens every encoded row.
const Header uint32 = 0x75

// Tag identifies a field within an encoded row.
type Tag uint8

const (
	TagRowKey         Tag = 0x01
	TagRowData        Tag = 0x02
	TagCell           Tag = 0x03
	TagCellName       Tag = 0x04
	TagCellValue      Tag = 0x05
	TagCellType       Tag = 0x06
	TagCellTimestamp  Tag = 0x07
	TagRowDeleteMarker Tag = 0x08
	TagRowChecksum    Tag = 0x09
	TagCellChecksum   Tag = 0x0A
)

// ValueType is the type byte written inside a CellValue field.
type ValueType uint8

const (
	VTInteger       ValueType = 0x0
	VTDouble        ValueType = 0x1
	VTBoolean       ValueType = 0x2
	VTString        ValueType = 0x3
	VTNull          ValueType = 0x6
	VTBlob          ValueType = 0x7
	VTInfMin        ValueType = 0x9
	VTInfMax        ValueType = 0xA
	VTAutoIncrement ValueType = 0xB
)

// DeleteMarker tags a cell-level delete entry within an UpdateRow change.
type DeleteMarker uint8

const (
	DeleteMarkerNone         DeleteMarker = 0
	DeleteMarkerAllVersions  DeleteMarker = 0x1
	DeleteMarkerOneVersion   DeleteMarker = 0x3
)
