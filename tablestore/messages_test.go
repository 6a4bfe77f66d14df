package tablestore

import (
	"testing"
	"time"

	"github.com/aliyun/tablestore-go/tablestore/internal/otspb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableMeta_RoundTrip(t *testing.T) {
	m := TableMeta{
		TableName: "t1",
		Schema: []PrimaryKeySchema{
			{Name: "pk0", Type: PKColumnTypeInteger, Option: PKColumnOptionAutoIncrement},
			{Name: "pk1", Type: PKColumnTypeString},
		},
	}
	got, err := unmarshalTableMeta(marshalTableMeta(m))
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestTableOptions_RoundTrip(t *testing.T) {
	ttl := -1 * time.Second
	maxVersions := 3
	bf := BloomFilterRow
	blockSize := 64
	dev := 10 * time.Second
	o := TableOptions{
		TimeToLive:       &ttl,
		MaxVersions:      &maxVersions,
		BloomFilterType:  &bf,
		BlockSize:        &blockSize,
		MaxTimeDeviation: &dev,
	}
	got, err := unmarshalTableOptions(marshalTableOptions(o))
	require.NoError(t, err)
	require.NotNil(t, got.TimeToLive)
	assert.Equal(t, ttl, *got.TimeToLive)
	assert.Equal(t, maxVersions, *got.MaxVersions)
	assert.Equal(t, bf, *got.BloomFilterType)
	assert.Equal(t, blockSize, *got.BlockSize)
	assert.Equal(t, dev, *got.MaxTimeDeviation)
}

func TestRowResult_RoundTrip(t *testing.T) {
	r := RowResult{
		OK:               false,
		ErrorCode:        ErrCodeConditionCheckFail,
		ErrorMessage:     "condition failed",
		ConsumedCapacity: ConsumedCapacity{Read: 1, Write: 2},
		Row:              []byte{1, 2, 3},
	}
	got, err := unmarshalRowResult(marshalRowResult(r))
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestBatchWriteRowResponse_CountsMatchRequest(t *testing.T) {
	req := batchWriteRowRequest{
		Tables: []tableInBatchWrite{
			{
				TableName: "t1",
				Puts:      []rowInBatchWrite{{RowChange: []byte("p0")}, {RowChange: []byte("p1")}},
				Updates:   []rowInBatchWrite{{RowChange: []byte("u0")}},
				Deletes:   []rowInBatchWrite{{RowChange: []byte("d0")}, {RowChange: []byte("d1")}, {RowChange: []byte("d2")}},
			},
		},
	}
	encoded := req.marshal()

	resp := &batchWriteRowResponse{
		Tables: []tableInBatchWriteResult{
			{
				TableName:     "t1",
				PutResults:    []RowResult{{OK: true}, {OK: true}},
				UpdateResults: []RowResult{{OK: true}},
				DeleteResults: []RowResult{{OK: true}, {OK: true}, {OK: true}},
			},
		},
	}
	respEncoded := marshalBatchWriteRowResponseForTest(resp)
	decoded := &batchWriteRowResponse{}
	require.NoError(t, decoded.unmarshal(respEncoded))

	inCount := len(req.Tables[0].Puts) + len(req.Tables[0].Updates) + len(req.Tables[0].Deletes)
	outCount := len(decoded.Tables[0].PutResults) + len(decoded.Tables[0].UpdateResults) + len(decoded.Tables[0].DeleteResults)
	assert.Equal(t, inCount, outCount)
	_ = encoded
}

// marshalBatchWriteRowResponseForTest exists only to exercise the decode
// path symmetrically in tests; the real server is the only encoder of this
// message in production.
func marshalBatchWriteRowResponseForTest(r *batchWriteRowResponse) []byte {
	var b []byte
	for _, t := range r.Tables {
		var tb []byte
		tb = otspb.AppendString(tb, 1, t.TableName)
		for _, rr := range t.PutResults {
			tb = otspb.AppendMessage(tb, 2, marshalRowResult(rr))
		}
		for _, rr := range t.UpdateResults {
			tb = otspb.AppendMessage(tb, 3, marshalRowResult(rr))
		}
		for _, rr := range t.DeleteResults {
			tb = otspb.AppendMessage(tb, 4, marshalRowResult(rr))
		}
		b = otspb.AppendMessage(b, 1, tb)
	}
	return b
}
