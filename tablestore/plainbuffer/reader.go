package plainbuffer

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// reader is a minimal cursor over a PlainBuffer-encoded byte slice. It has
// no relation to io.Reader: the format is not streamed, it is parsed as one
// fully-buffered message per row (spec §4.1).
type reader struct {
	p   []byte
	pos int
}

func (r *reader) remaining() int { return len(r.p) - r.pos }

func (r *reader) byte() (byte, error) {
	if r.remaining() < 1 {
		return 0, errors.New("plainbuffer: truncated, expected a tag byte")
	}
	b := r.p[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) peek() (byte, bool) {
	if r.remaining() < 1 {
		return 0, false
	}
	return r.p[r.pos], true
}

func (r *reader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, errors.New("plainbuffer: truncated uint32")
	}
	v := binary.LittleEndian.Uint32(r.p[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if r.remaining() < 8 {
		return 0, errors.New("plainbuffer: truncated uint64")
	}
	v := binary.LittleEndian.Uint64(r.p[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) bytes(n uint32) ([]byte, error) {
	if uint32(r.remaining()) < n {
		return nil, errors.New("plainbuffer: truncated byte string")
	}
	b := r.p[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}

func decodeValue(r *reader) (Value, byte, error) {
	typByte, err := r.byte()
	if err != nil {
		return Value{}, 0, err
	}
	typ := ValueType(typByte)
	crc := crc8(0, typByte)

	switch typ {
	case VTInteger:
		v, err := r.u64()
		if err != nil {
			return Value{}, 0, err
		}
		crc = crc8U64(crc, v)
		return Value{Type: VTInteger, Int: int64(v)}, crc, nil
	case VTDouble:
		bits, err := r.u64()
		if err != nil {
			return Value{}, 0, err
		}
		crc = crc8U64(crc, bits)
		return Value{Type: VTDouble, Float: math.Float64frombits(bits)}, crc, nil
	case VTBoolean:
		b, err := r.byte()
		if err != nil {
			return Value{}, 0, err
		}
		crc = crc8(crc, b)
		return Value{Type: VTBoolean, Bool: b != 0}, crc, nil
	case VTString, VTBlob:
		n, err := r.u32()
		if err != nil {
			return Value{}, 0, err
		}
		b, err := r.bytes(n)
		if err != nil {
			return Value{}, 0, err
		}
		crc = crc8U32(crc, n)
		crc = crc8Bytes(crc, b)
		return Value{Type: typ, Bytes: append([]byte(nil), b...)}, crc, nil
	case VTNull, VTInfMin, VTInfMax, VTAutoIncrement:
		return Value{Type: typ}, crc, nil
	default:
		return Value{}, 0, errors.Errorf("plainbuffer: unknown value type 0x%x", typByte)
	}
}

// DecodeValue parses a standalone Value previously produced by EncodeValue.
func DecodeValue(p []byte) (Value, error) {
	r := &reader{p: p}
	v, _, err := decodeValue(r)
	if err != nil {
		return Value{}, err
	}
	if r.remaining() != 0 {
		return Value{}, errors.Errorf("plainbuffer: %d trailing bytes after value", r.remaining())
	}
	return v, nil
}

// readCell parses one Cell starting at TagCell and verifies its trailing
// CellChecksum, returning the cell and its checksum (for folding into the
// row checksum by the caller).
func readCell(r *reader) (Cell, byte, error) {
	tag, err := r.byte()
	if err != nil {
		return Cell{}, 0, err
	}
	if Tag(tag) != TagCell {
		return Cell{}, 0, errors.Errorf("plainbuffer: expected cell tag, got 0x%x", tag)
	}

	nameTag, err := r.byte()
	if err != nil {
		return Cell{}, 0, err
	}
	if Tag(nameTag) != TagCellName {
		return Cell{}, 0, errors.Errorf("plainbuffer: expected cell-name tag, got 0x%x", nameTag)
	}
	nameLen, err := r.u32()
	if err != nil {
		return Cell{}, 0, err
	}
	name, err := r.bytes(nameLen)
	if err != nil {
		return Cell{}, 0, err
	}
	crc := crc8Bytes(0, name)

	var cell Cell
	cell.Name = append([]byte(nil), name...)

	if b, ok := r.peek(); ok && Tag(b) == TagCellValue {
		r.pos++
		valLen, err := r.u32()
		if err != nil {
			return Cell{}, 0, err
		}
		body, err := r.bytes(valLen)
		if err != nil {
			return Cell{}, 0, err
		}
		vr := &reader{p: body}
		val, valueCrc, err := decodeValue(vr)
		if err != nil {
			return Cell{}, 0, err
		}
		cell.Value = val
		cell.HasValue = true
		crc = crc8(crc, valueCrc)
	}

	if b, ok := r.peek(); ok && Tag(b) == TagCellType {
		r.pos++
		m, err := r.byte()
		if err != nil {
			return Cell{}, 0, err
		}
		cell.DeleteMarker = DeleteMarker(m)
	}

	if b, ok := r.peek(); ok && Tag(b) == TagCellTimestamp {
		r.pos++
		ts, err := r.u64()
		if err != nil {
			return Cell{}, 0, err
		}
		v := int64(ts)
		cell.Timestamp = &v
		crc = crc8U64(crc, ts)
	}

	if cell.DeleteMarker != DeleteMarkerNone {
		crc = crc8(crc, byte(cell.DeleteMarker))
	}

	checksumTag, err := r.byte()
	if err != nil {
		return Cell{}, 0, err
	}
	if Tag(checksumTag) != TagCellChecksum {
		return Cell{}, 0, errors.Errorf("plainbuffer: expected cell checksum tag, got 0x%x", checksumTag)
	}
	wantCrc, err := r.byte()
	if err != nil {
		return Cell{}, 0, err
	}
	if wantCrc != crc {
		return Cell{}, 0, errors.Errorf("plainbuffer: cell checksum mismatch for %q: got 0x%x want 0x%x", name, crc, wantCrc)
	}

	return cell, crc, nil
}

// ReadRow parses a full PlainBuffer-encoded row, validating every cell and
// row level checksum. It fails loudly on any structural or checksum
// mismatch rather than returning a partially decoded row.
func ReadRow(p []byte) (Row, error) {
	r := &reader{p: p}

	header, err := r.u32()
	if err != nil {
		return Row{}, err
	}
	if header != Header {
		return Row{}, errors.Errorf("plainbuffer: bad header 0x%x", header)
	}

	rowKeyTag, err := r.byte()
	if err != nil {
		return Row{}, err
	}
	if Tag(rowKeyTag) != TagRowKey {
		return Row{}, errors.Errorf("plainbuffer: expected row-key tag, got 0x%x", rowKeyTag)
	}

	var row Row
	rowCrc := byte(0)

	for {
		b, ok := r.peek()
		if !ok {
			return Row{}, errors.New("plainbuffer: truncated before row data/checksum")
		}
		if Tag(b) != TagCell {
			break
		}
		cell, cellCrc, err := readCell(r)
		if err != nil {
			return Row{}, err
		}
		row.PrimaryKey = append(row.PrimaryKey, cell)
		rowCrc = crc8(rowCrc, cellCrc)
	}

	if b, ok := r.peek(); ok && Tag(b) == TagRowData {
		r.pos++
		for {
			b, ok := r.peek()
			if !ok {
				return Row{}, errors.New("plainbuffer: truncated row data")
			}
			if Tag(b) != TagCell {
				break
			}
			cell, cellCrc, err := readCell(r)
			if err != nil {
				return Row{}, err
			}
			row.Cells = append(row.Cells, cell)
			rowCrc = crc8(rowCrc, cellCrc)
		}
	}

	deleteByte := byte(0)
	if b, ok := r.peek(); ok && Tag(b) == TagRowDeleteMarker {
		r.pos++
		m, err := r.byte()
		if err != nil {
			return Row{}, err
		}
		deleteByte = m
		row.RowDeleteMarker = m != 0
	}
	rowCrc = crc8(rowCrc, deleteByte)

	checksumTag, err := r.byte()
	if err != nil {
		return Row{}, err
	}
	if Tag(checksumTag) != TagRowChecksum {
		return Row{}, errors.Errorf("plainbuffer: expected row checksum tag, got 0x%x", checksumTag)
	}
	wantCrc, err := r.byte()
	if err != nil {
		return Row{}, err
	}
	if wantCrc != rowCrc {
		return Row{}, errors.Errorf("plainbuffer: row checksum mismatch: got 0x%x want 0x%x", rowCrc, wantCrc)
	}

	if r.remaining() != 0 {
		return Row{}, errors.Errorf("plainbuffer: %d trailing bytes after row checksum", r.remaining())
	}

	return row, nil
}
