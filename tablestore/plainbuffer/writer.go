package plainbuffer

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

func putUint32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func putUint64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

// encodeValue writes a Value's on-wire payload (type byte followed by the
// type-specific body) into buf and returns the checksum contribution for the
// whole payload, folded byte by byte.
func encodeValue(buf *bytes.Buffer, v Value) byte {
	crc := crc8(0, byte(v.Type))
	switch v.Type {
	case VTInteger:
		buf.WriteByte(byte(v.Type))
		putUint64(buf, uint64(v.Int))
		crc = crc8U64(crc, uint64(v.Int))
	case VTDouble:
		buf.WriteByte(byte(v.Type))
		bits := math.Float64bits(v.Float)
		putUint64(buf, bits)
		crc = crc8U64(crc, bits)
	case VTBoolean:
		buf.WriteByte(byte(v.Type))
		b := byte(0)
		if v.Bool {
			b = 1
		}
		buf.WriteByte(b)
		crc = crc8(crc, b)
	case VTString, VTBlob:
		buf.WriteByte(byte(v.Type))
		putUint32(buf, uint32(len(v.Bytes)))
		buf.Write(v.Bytes)
		crc = crc8U32(crc, uint32(len(v.Bytes)))
		crc = crc8Bytes(crc, v.Bytes)
	case VTNull, VTInfMin, VTInfMax, VTAutoIncrement:
		buf.WriteByte(byte(v.Type))
	}
	return crc
}

// EncodeValue renders a standalone Value to its wire bytes (type byte plus
// body), with no surrounding cell/row framing. Used where a lone value must
// travel outside of a cell, such as inside a column-condition leaf.
func EncodeValue(v Value) []byte {
	var buf bytes.Buffer
	encodeValue(&buf, v)
	return buf.Bytes()
}

// writeCell appends one Cell (CellName, optional CellValue, optional
// CellType carrying a per-cell delete marker, optional CellTimestamp,
// CellChecksum) and
// returns its checksum so the caller can fold it into the row checksum.
//
// The wire order for an update-change cell diverges from the order its
// checksum is folded in: a per-cell delete marker is written right after
// the value but folded into the checksum last, after the timestamp. Plain
// put/primary-key cells never carry a per-cell delete marker, so the two
// orders coincide for them.
func writeCell(buf *bytes.Buffer, c Cell) byte {
	buf.WriteByte(byte(TagCell))
	buf.WriteByte(byte(TagCellName))
	putUint32(buf, uint32(len(c.Name)))
	buf.Write(c.Name)

	crc := crc8Bytes(0, c.Name)

	var valueCrc byte
	if c.HasValue {
		buf.WriteByte(byte(TagCellValue))
		var vbuf bytes.Buffer
		valueCrc = encodeValue(&vbuf, c.Value)
		putUint32(buf, uint32(vbuf.Len()))
		buf.Write(vbuf.Bytes())
		crc = crc8(crc, valueCrc)
	}

	if c.DeleteMarker != DeleteMarkerNone {
		buf.WriteByte(byte(TagCellType))
		buf.WriteByte(byte(c.DeleteMarker))
	}

	if c.Timestamp != nil {
		buf.WriteByte(byte(TagCellTimestamp))
		putUint64(buf, uint64(*c.Timestamp))
		crc = crc8U64(crc, uint64(*c.Timestamp))
	}

	if c.DeleteMarker != DeleteMarkerNone {
		crc = crc8(crc, byte(c.DeleteMarker))
	}

	buf.WriteByte(byte(TagCellChecksum))
	buf.WriteByte(crc)
	return crc
}

// WriteRow encodes a full row (primary key plus, for put/update changes, a
// RowData section) with its trailing RowChecksum.
func WriteRow(row Row) ([]byte, error) {
	var buf bytes.Buffer
	putUint32(&buf, Header)

	buf.WriteByte(byte(TagRowKey))
	rowCrc := byte(0)
	for _, c := range row.PrimaryKey {
		if c.Value.Type == VTNull {
			return nil, errors.New("plainbuffer: primary key cell must carry a value")
		}
		cellCrc := writeCell(&buf, c)
		rowCrc = crc8(rowCrc, cellCrc)
	}

	if len(row.Cells) > 0 {
		buf.WriteByte(byte(TagRowData))
		for _, c := range row.Cells {
			cellCrc := writeCell(&buf, c)
			rowCrc = crc8(rowCrc, cellCrc)
		}
	}

	deleteByte := byte(0)
	if row.RowDeleteMarker {
		deleteByte = 1
		buf.WriteByte(byte(TagRowDeleteMarker))
		buf.WriteByte(deleteByte)
	}
	rowCrc = crc8(rowCrc, deleteByte)

	buf.WriteByte(byte(TagRowChecksum))
	buf.WriteByte(rowCrc)

	return buf.Bytes(), nil
}

// WritePrimaryKey encodes a standalone primary key (used for GetRow and for
// the primary key half of a BatchGetRow entry): header, RowKey section, and
// a RowChecksum computed as if the row carried no data cells and no
// row-level delete marker.
func WritePrimaryKey(pk []Cell) ([]byte, error) {
	return WriteRow(Row{PrimaryKey: pk})
}
