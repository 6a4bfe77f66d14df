package tablestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePrimaryKey_RoundTrip(t *testing.T) {
	pk := PrimaryKey{
		{Name: "a", Value: NewPKInt(42)},
		{Name: "b", Value: NewPKString("hello")},
		{Name: "c", Value: NewPKBinary([]byte{1, 2, 3})},
	}
	enc, err := encodePrimaryKey(pk)
	require.NoError(t, err)

	dec, err := decodePrimaryKey(enc)
	require.NoError(t, err)
	require.Len(t, dec, 3)
	for i, col := range pk {
		assert.Equal(t, col.Name, dec[i].Name)
		v, _ := col.Value.Compare(dec[i].Value)
		assert.Equal(t, 0, v)
	}
}

func TestEncodeDecodePrimaryKey_SpecialValues(t *testing.T) {
	pk := PrimaryKey{
		{Name: "a", Value: InfMin},
	}
	enc, err := encodePrimaryKey(pk)
	require.NoError(t, err)
	dec, err := decodePrimaryKey(enc)
	require.NoError(t, err)
	assert.True(t, dec[0].Value.IsInfMin())
}

func TestEncodeDecodeRow_RoundTrip(t *testing.T) {
	pk := PrimaryKey{{Name: "pk", Value: NewPKString("k1")}}
	ts := int64(1000)
	attrs := []Attribute{
		{Name: "n", Value: NewAVInt(7), Timestamp: &ts},
		{Name: "s", Value: NewAVString("v")},
		{Name: "b", Value: NewAVBool(true)},
		{Name: "f", Value: NewAVFloat64(3.5)},
		{Name: "bin", Value: NewAVBinary([]byte{0xDE, 0xAD})},
	}
	enc, err := encodeRow(pk, attrs)
	require.NoError(t, err)

	row, err := decodeRow(enc)
	require.NoError(t, err)
	require.Len(t, row.PrimaryKey, 1)
	require.Len(t, row.Attributes, 5)
	assert.Equal(t, "k1", mustAsString(t, row.PrimaryKey[0].Value))
	assert.Equal(t, int64(7), mustAsInt(t, row.Attributes[0].Value))
	require.NotNil(t, row.Attributes[0].Timestamp)
	assert.Equal(t, ts, *row.Attributes[0].Timestamp)
}

func TestEncodeRowChange_DispatchesOnConcreteType(t *testing.T) {
	pk := PrimaryKey{{Name: "pk", Value: NewPKString("k1")}}

	put := &RowPutChange{Table: "t", PrimaryKey: pk, Attributes: []Attribute{{Name: "a", Value: NewAVInt(1)}}}
	_, err := encodeRowChange(put)
	assert.NoError(t, err)

	upd := &RowUpdateChange{Table: "t", PrimaryKey: pk, Updates: []ColumnUpdate{{Kind: UpdatePut, Name: "a", Value: NewAVInt(1)}}}
	_, err = encodeRowChange(upd)
	assert.NoError(t, err)

	del := &RowDeleteChange{Table: "t", PrimaryKey: pk}
	_, err = encodeRowChange(del)
	assert.NoError(t, err)
}

func TestEncodeRowUpdate_DeleteMarkers(t *testing.T) {
	pk := PrimaryKey{{Name: "pk", Value: NewPKString("k1")}}
	ts := int64(500)
	updates := []ColumnUpdate{
		{Kind: UpdateDeleteOneVersion, Name: "a", Timestamp: &ts},
		{Kind: UpdateDeleteAllVersions, Name: "b"},
	}
	enc, err := encodeRowUpdate(pk, updates)
	require.NoError(t, err)

	row, err := decodeRow(enc)
	require.NoError(t, err)
	assert.Empty(t, row.Attributes)
}

func mustAsString(t *testing.T, v PrimaryKeyValue) string {
	t.Helper()
	s, ok := v.AsString()
	require.True(t, ok)
	return s
}

func mustAsInt(t *testing.T, v AttributeValue) int64 {
	t.Helper()
	i, ok := v.AsInt()
	require.True(t, ok)
	return i
}
