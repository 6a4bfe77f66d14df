package tablestore

import (
	"net"
	"strconv"
	"testing"

	"github.com/aliyun/tablestore-go/tablestore/internal/otspb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeBatchWriteRowResponseForTest hand-encodes a batchWriteRowResponse
// the same way the server would, mirroring (*batchWriteRowResponse).unmarshal's
// field tags. There's no production marshal for this type since the client
// never sends one, only decodes one.
func encodeBatchWriteRowResponseForTest(resp batchWriteRowResponse) []byte {
	var b []byte
	for _, t := range resp.Tables {
		var tb []byte
		tb = otspb.AppendString(tb, 1, t.TableName)
		for _, r := range t.PutResults {
			tb = otspb.AppendMessage(tb, 2, marshalRowResult(r))
		}
		for _, r := range t.UpdateResults {
			tb = otspb.AppendMessage(tb, 3, marshalRowResult(r))
		}
		for _, r := range t.DeleteResults {
			tb = otspb.AppendMessage(tb, 4, marshalRowResult(r))
		}
		b = otspb.AppendMessage(b, 1, tb)
	}
	return b
}

// TestClient_BatchWriteRow_PreservesOrderAndUserDataAcrossTables pins down
// the bug comment 3 flagged: the server groups a batch's rows into
// PutResults/UpdateResults/DeleteResults per table, and returns tables in
// whatever order it likes - not necessarily the order the client submitted
// them in. The response below deliberately lists "t2" before "t1", the
// reverse of submission order, to prove the client matches by table name
// and per-kind index rather than assuming submission order survives.
func TestClient_BatchWriteRow_PreservesOrderAndUserDataAcrossTables(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	resp := batchWriteRowResponse{
		Tables: []tableInBatchWriteResult{
			{
				TableName:     "t2",
				PutResults:    []RowResult{{OK: true}},
				DeleteResults: []RowResult{{OK: true}},
			},
			{
				TableName:     "t1",
				PutResults:    []RowResult{{OK: true}},
				UpdateResults: []RowResult{{OK: false, ErrorCode: "SomeError", ErrorMessage: "boom"}},
			},
		},
	}
	body := encodeBatchWriteRowResponseForTest(resp)
	raw := "HTTP/1.1 200 OK\r\nContent-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + string(body)
	serveOnce(t, ln, raw)

	cfg := DefaultConfig()
	cfg.Endpoint = "http://" + host + ":" + port
	cfg.InstanceName = "inst"
	cfg.AccessKeyID = "id"
	cfg.AccessKeySecret = "secret"
	// One connection only, so the pool's single dial is exactly the one
	// connection serveOnce accepts and responds on.
	cfg.MaxConnections = 1
	c, err := NewClient(cfg)
	require.NoError(t, err)
	defer c.Close()

	pk := func(v string) PrimaryKey { return PrimaryKey{{Name: "pk", Value: NewPKString(v)}} }

	items := []BatchWriteRowItem{
		{Change: &RowPutChange{Table: "t1", PrimaryKey: pk("a"), Attributes: []Attribute{{Name: "c", Value: NewAVInt(1)}}}, UserData: "item-0-put-t1"},
		{Change: &RowPutChange{Table: "t2", PrimaryKey: pk("b"), Attributes: []Attribute{{Name: "c", Value: NewAVInt(2)}}}, UserData: "item-1-put-t2"},
		{Change: &RowUpdateChange{Table: "t1", PrimaryKey: pk("c"), Updates: []ColumnUpdate{{Kind: UpdatePut, Name: "c", Value: NewAVInt(3)}}}, UserData: "item-2-update-t1"},
		{Change: &RowDeleteChange{Table: "t2", PrimaryKey: pk("d")}, UserData: "item-3-delete-t2"},
	}

	done := make(chan struct{})
	var results []BatchWriteRowResult
	var callErr error
	c.BatchWriteRow(items, func(r []BatchWriteRowResult, err error) {
		results, callErr = r, err
		close(done)
	})
	<-done

	require.NoError(t, callErr)
	require.Len(t, results, 4)

	assert.Equal(t, "item-0-put-t1", results[0].UserData)
	assert.True(t, results[0].OK)

	assert.Equal(t, "item-1-put-t2", results[1].UserData)
	assert.True(t, results[1].OK)

	assert.Equal(t, "item-2-update-t1", results[2].UserData)
	assert.False(t, results[2].OK)
	assert.Equal(t, "SomeError", results[2].ErrorCode)

	assert.Equal(t, "item-3-delete-t2", results[3].UserData)
	assert.True(t, results[3].OK)
}
