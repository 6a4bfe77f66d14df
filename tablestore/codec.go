package tablestore

import (
	"github.com/aliyun/tablestore-go/tablestore/plainbuffer"
	"github.com/pkg/errors"
)

// encodePKValue renders a PrimaryKeyValue as its plainbuffer.Value.
func encodePKValue(v PrimaryKeyValue) (plainbuffer.Value, error) {
	switch {
	case v.IsInfMin():
		return plainbuffer.InfMinValue, nil
	case v.IsInfMax():
		return plainbuffer.InfMaxValue, nil
	case v.IsAutoIncrement():
		return plainbuffer.AutoIncrementValue, nil
	}
	if i, ok := v.AsInt(); ok {
		return plainbuffer.IntValue(i), nil
	}
	if s, ok := v.AsString(); ok {
		return plainbuffer.StringValue([]byte(s)), nil
	}
	if b, ok := v.AsBinary(); ok {
		return plainbuffer.BlobValue(b), nil
	}
	return plainbuffer.Value{}, errors.New("tablestore: primary key value has no encodable kind")
}

func decodePKValue(v plainbuffer.Value) (PrimaryKeyValue, error) {
	switch v.Type {
	case plainbuffer.VTInfMin:
		return InfMin, nil
	case plainbuffer.VTInfMax:
		return InfMax, nil
	case plainbuffer.VTAutoIncrement:
		return AutoIncrementPK, nil
	case plainbuffer.VTInteger:
		return NewPKInt(v.Int), nil
	case plainbuffer.VTString:
		return PrimaryKeyValue{kind: pkString, strVal: v.Bytes}, nil
	case plainbuffer.VTBlob:
		return NewPKBinary(v.Bytes), nil
	default:
		return PrimaryKeyValue{}, errors.Errorf("tablestore: unsupported wire value type 0x%x for a primary key column", v.Type)
	}
}

func encodeAttributeValue(v AttributeValue) (plainbuffer.Value, error) {
	if i, ok := v.AsInt(); ok {
		return plainbuffer.IntValue(i), nil
	}
	if s, ok := v.AsString(); ok {
		return plainbuffer.StringValue([]byte(s)), nil
	}
	if b, ok := v.AsBinary(); ok {
		return plainbuffer.BlobValue(b), nil
	}
	if b, ok := v.AsBool(); ok {
		return plainbuffer.BoolValue(b), nil
	}
	if f, ok := v.AsFloat64(); ok {
		return plainbuffer.DoubleValue(f), nil
	}
	return plainbuffer.Value{}, errors.New("tablestore: attribute value has no encodable kind")
}

func decodeAttributeValue(v plainbuffer.Value) (AttributeValue, error) {
	switch v.Type {
	case plainbuffer.VTInteger:
		return NewAVInt(v.Int), nil
	case plainbuffer.VTString:
		return AttributeValue{kind: avString, strVal: v.Bytes}, nil
	case plainbuffer.VTBlob:
		return NewAVBinary(v.Bytes), nil
	case plainbuffer.VTBoolean:
		return NewAVBool(v.Bool), nil
	case plainbuffer.VTDouble:
		return NewAVFloat64(v.Float), nil
	default:
		return AttributeValue{}, errors.Errorf("tablestore: unsupported wire value type 0x%x for an attribute column", v.Type)
	}
}

// encodePrimaryKey renders a PrimaryKey as a standalone plainbuffer message,
// used for GetRow requests and as the key half of batch entries.
func encodePrimaryKey(pk PrimaryKey) ([]byte, error) {
	cells := make([]plainbuffer.Cell, len(pk))
	for i, col := range pk {
		val, err := encodePKValue(col.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", col.Name)
		}
		cells[i] = plainbuffer.Cell{Name: []byte(col.Name), Value: val, HasValue: true}
	}
	return plainbuffer.WritePrimaryKey(cells)
}

func decodePrimaryKey(p []byte) (PrimaryKey, error) {
	row, err := plainbuffer.ReadRow(p)
	if err != nil {
		return nil, err
	}
	pk := make(PrimaryKey, len(row.PrimaryKey))
	for i, c := range row.PrimaryKey {
		v, err := decodePKValue(c.Value)
		if err != nil {
			return nil, err
		}
		pk[i] = PrimaryKeyColumn{Name: string(c.Name), Value: v}
	}
	return pk, nil
}

// encodeRow renders a full Row (primary key plus attributes) for PutRow.
func encodeRow(pk PrimaryKey, attrs []Attribute) ([]byte, error) {
	row, err := buildPlainBufferRow(pk, attrs)
	if err != nil {
		return nil, err
	}
	return plainbuffer.WriteRow(row)
}

func buildPlainBufferRow(pk PrimaryKey, attrs []Attribute) (plainbuffer.Row, error) {
	pkCells := make([]plainbuffer.Cell, len(pk))
	for i, col := range pk {
		val, err := encodePKValue(col.Value)
		if err != nil {
			return plainbuffer.Row{}, errors.Wrapf(err, "column %q", col.Name)
		}
		pkCells[i] = plainbuffer.Cell{Name: []byte(col.Name), Value: val, HasValue: true}
	}
	cells := make([]plainbuffer.Cell, len(attrs))
	for i, a := range attrs {
		val, err := encodeAttributeValue(a.Value)
		if err != nil {
			return plainbuffer.Row{}, errors.Wrapf(err, "column %q", a.Name)
		}
		cells[i] = plainbuffer.Cell{Name: []byte(a.Name), Value: val, HasValue: true, Timestamp: a.Timestamp}
	}
	return plainbuffer.Row{PrimaryKey: pkCells, Cells: cells}, nil
}

// encodeRowUpdate renders a RowUpdateChange's per-column mutations, each
// tagged with its DeleteMarker/Put kind, in declaration order.
func encodeRowUpdate(pk PrimaryKey, updates []ColumnUpdate) ([]byte, error) {
	pkCells := make([]plainbuffer.Cell, len(pk))
	for i, col := range pk {
		val, err := encodePKValue(col.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", col.Name)
		}
		pkCells[i] = plainbuffer.Cell{Name: []byte(col.Name), Value: val, HasValue: true}
	}
	cells := make([]plainbuffer.Cell, len(updates))
	for i, u := range updates {
		switch u.Kind {
		case UpdatePut:
			val, err := encodeAttributeValue(u.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "column %q", u.Name)
			}
			cells[i] = plainbuffer.Cell{Name: []byte(u.Name), Value: val, HasValue: true, Timestamp: u.Timestamp}
		case UpdateDeleteOneVersion:
			cells[i] = plainbuffer.Cell{Name: []byte(u.Name), DeleteMarker: plainbuffer.DeleteMarkerOneVersion, Timestamp: u.Timestamp}
		case UpdateDeleteAllVersions:
			cells[i] = plainbuffer.Cell{Name: []byte(u.Name), DeleteMarker: plainbuffer.DeleteMarkerAllVersions}
		default:
			return nil, errors.Errorf("tablestore: unknown column update kind %d", u.Kind)
		}
	}
	return plainbuffer.WriteRow(plainbuffer.Row{PrimaryKey: pkCells, Cells: cells})
}

// encodeRowDelete renders a whole-row delete marker alongside the key.
func encodeRowDelete(pk PrimaryKey) ([]byte, error) {
	pkCells := make([]plainbuffer.Cell, len(pk))
	for i, col := range pk {
		val, err := encodePKValue(col.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", col.Name)
		}
		pkCells[i] = plainbuffer.Cell{Name: []byte(col.Name), Value: val, HasValue: true}
	}
	return plainbuffer.WriteRow(plainbuffer.Row{PrimaryKey: pkCells, RowDeleteMarker: true})
}

// decodeRow renders a Row returned by GetRow/GetRange/BatchGetRow from its
// plainbuffer encoding.
func decodeRow(p []byte) (Row, error) {
	raw, err := plainbuffer.ReadRow(p)
	if err != nil {
		return Row{}, err
	}
	pk := make(PrimaryKey, len(raw.PrimaryKey))
	for i, c := range raw.PrimaryKey {
		v, err := decodePKValue(c.Value)
		if err != nil {
			return Row{}, err
		}
		pk[i] = PrimaryKeyColumn{Name: string(c.Name), Value: v}
	}
	attrs := make([]Attribute, 0, len(raw.Cells))
	for _, c := range raw.Cells {
		if !c.HasValue {
			continue
		}
		v, err := decodeAttributeValue(c.Value)
		if err != nil {
			return Row{}, err
		}
		attrs = append(attrs, Attribute{Name: string(c.Name), Value: v, Timestamp: c.Timestamp})
	}
	return Row{PrimaryKey: pk, Attributes: attrs}, nil
}

// encodeRowChange dispatches a RowChange to its plainbuffer encoding.
func encodeRowChange(rc RowChange) ([]byte, error) {
	switch c := rc.(type) {
	case *RowPutChange:
		return encodeRow(c.PrimaryKey, c.Attributes)
	case *RowUpdateChange:
		return encodeRowUpdate(c.PrimaryKey, c.Updates)
	case *RowDeleteChange:
		return encodeRowDelete(c.PrimaryKey)
	default:
		return nil, errors.Errorf("tablestore: unknown row change type %T", rc)
	}
}
