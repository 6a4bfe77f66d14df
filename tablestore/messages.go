package tablestore

import (
	"time"

	"github.com/aliyun/tablestore-go/tablestore/internal/otspb"
	"github.com/aliyun/tablestore-go/tablestore/plainbuffer"
)

// This file defines the wire shape of every request/response pair in spec
// §3's closed verb set. Each message owns its field numbers and marshals
// itself directly against internal/otspb's tag/varint/bytes primitives;
// there is no generated .proto schema to reflect over.

// --- shared sub-messages ---

func marshalCapacityUnit(read, write int64) []byte {
	var b []byte
	b = otspb.AppendVarint(b, 1, uint64(read))
	b = otspb.AppendVarint(b, 2, uint64(write))
	return b
}

func unmarshalCapacityUnit(raw []byte) (read, write int64, err error) {
	fields, err := otspb.ConsumeAll(raw)
	if err != nil {
		return 0, 0, err
	}
	if f, ok := otspb.Find(fields, 1); ok {
		read = int64(f.Varint)
	}
	if f, ok := otspb.Find(fields, 2); ok {
		write = int64(f.Varint)
	}
	return read, write, nil
}

// ConsumedCapacity is the capacity-unit cost the server reports for one
// operation.
type ConsumedCapacity struct {
	Read  int64
	Write int64
}

func marshalConsumedCapacity(c ConsumedCapacity) []byte {
	return otspb.AppendMessage(nil, 1, marshalCapacityUnit(c.Read, c.Write))
}

func unmarshalConsumedCapacityField(f otspb.Field) (ConsumedCapacity, error) {
	fields, err := otspb.ConsumeAll(f.Bytes)
	if err != nil {
		return ConsumedCapacity{}, err
	}
	cu, ok := otspb.Find(fields, 1)
	if !ok {
		return ConsumedCapacity{}, nil
	}
	r, w, err := unmarshalCapacityUnit(cu.Bytes)
	if err != nil {
		return ConsumedCapacity{}, err
	}
	return ConsumedCapacity{Read: r, Write: w}, nil
}

func marshalPKSchema(s PrimaryKeySchema) []byte {
	var b []byte
	b = otspb.AppendString(b, 1, s.Name)
	b = otspb.AppendVarint(b, 2, uint64(s.Type))
	b = otspb.AppendVarint(b, 3, uint64(s.Option))
	return b
}

func unmarshalPKSchema(raw []byte) (PrimaryKeySchema, error) {
	fields, err := otspb.ConsumeAll(raw)
	if err != nil {
		return PrimaryKeySchema{}, err
	}
	var s PrimaryKeySchema
	if f, ok := otspb.Find(fields, 1); ok {
		s.Name = string(f.Bytes)
	}
	if f, ok := otspb.Find(fields, 2); ok {
		s.Type = PKColumnType(f.Varint)
	}
	if f, ok := otspb.Find(fields, 3); ok {
		s.Option = PKColumnOption(f.Varint)
	}
	return s, nil
}

func marshalTableMeta(m TableMeta) []byte {
	var b []byte
	b = otspb.AppendString(b, 1, m.TableName)
	for _, s := range m.Schema {
		b = otspb.AppendMessage(b, 2, marshalPKSchema(s))
	}
	return b
}

func unmarshalTableMeta(raw []byte) (TableMeta, error) {
	fields, err := otspb.ConsumeAll(raw)
	if err != nil {
		return TableMeta{}, err
	}
	var m TableMeta
	if f, ok := otspb.Find(fields, 1); ok {
		m.TableName = string(f.Bytes)
	}
	for _, f := range otspb.FindAll(fields, 2) {
		s, err := unmarshalPKSchema(f.Bytes)
		if err != nil {
			return TableMeta{}, err
		}
		m.Schema = append(m.Schema, s)
	}
	return m, nil
}

func marshalTableOptions(o TableOptions) []byte {
	var b []byte
	if o.TimeToLive != nil {
		b = otspb.AppendSint(b, 1, int64(o.TimeToLive.Seconds()))
	}
	if o.MaxVersions != nil {
		b = otspb.AppendVarint(b, 2, uint64(*o.MaxVersions))
	}
	if o.BloomFilterType != nil {
		b = otspb.AppendVarint(b, 3, uint64(*o.BloomFilterType))
	}
	if o.BlockSize != nil {
		b = otspb.AppendVarint(b, 4, uint64(*o.BlockSize))
	}
	if o.MaxTimeDeviation != nil {
		b = otspb.AppendSint(b, 5, int64(o.MaxTimeDeviation.Seconds()))
	}
	return b
}

func unmarshalTableOptions(raw []byte) (TableOptions, error) {
	fields, err := otspb.ConsumeAll(raw)
	if err != nil {
		return TableOptions{}, err
	}
	var o TableOptions
	if f, ok := otspb.Find(fields, 1); ok {
		d := time.Duration(otspb.ConsumeSint(f.Varint)) * time.Second
		o.TimeToLive = &d
	}
	if f, ok := otspb.Find(fields, 2); ok {
		v := int(f.Varint)
		o.MaxVersions = &v
	}
	if f, ok := otspb.Find(fields, 3); ok {
		v := BloomFilterType(f.Varint)
		o.BloomFilterType = &v
	}
	if f, ok := otspb.Find(fields, 4); ok {
		v := int(f.Varint)
		o.BlockSize = &v
	}
	if f, ok := otspb.Find(fields, 5); ok {
		d := time.Duration(otspb.ConsumeSint(f.Varint)) * time.Second
		o.MaxTimeDeviation = &d
	}
	return o, nil
}

func marshalCondition(c Condition) []byte {
	var b []byte
	b = otspb.AppendVarint(b, 1, uint64(c.RowCondition))
	if c.ColumnCondition != nil {
		b = otspb.AppendMessage(b, 2, marshalColumnCondition(c.ColumnCondition))
	}
	return b
}

func marshalColumnCondition(c ColumnCondition) []byte {
	switch v := c.(type) {
	case *SingleColumnCondition:
		var b []byte
		b = otspb.AppendVarint(b, 1, 0) // kind=single
		b = otspb.AppendString(b, 2, v.ColumnName)
		b = otspb.AppendVarint(b, 3, uint64(v.Relation))
		if pbVal, err := encodeSingleValue(v.Value); err == nil {
			b = otspb.AppendBytes(b, 4, pbVal)
		}
		b = otspb.AppendBool(b, 5, v.PassIfMissing)
		b = otspb.AppendBool(b, 6, v.LatestVersionOnly)
		return b
	case *CompositeCondition:
		var b []byte
		b = otspb.AppendVarint(b, 1, 1) // kind=composite
		b = otspb.AppendVarint(b, 7, uint64(v.Operator))
		for _, child := range v.Children {
			b = otspb.AppendMessage(b, 8, marshalColumnCondition(child))
		}
		return b
	default:
		return nil
	}
}

// encodeSingleValue renders a lone AttributeValue as a standalone
// plainbuffer value, for use inside a column-condition leaf.
func encodeSingleValue(v AttributeValue) ([]byte, error) {
	pbVal, err := encodeAttributeValue(v)
	if err != nil {
		return nil, err
	}
	return plainbuffer.EncodeValue(pbVal), nil
}

func marshalReturnContent(rt ReturnType) []byte {
	var b []byte
	b = otspb.AppendVarint(b, 1, uint64(rt))
	return b
}

// RowResult is one per-row outcome within a BatchGetRow or BatchWriteRow
// response.
type RowResult struct {
	OK               bool
	ErrorCode        string
	ErrorMessage     string
	ConsumedCapacity ConsumedCapacity
	Row              []byte // plainbuffer-encoded, present on success
}

func unmarshalRowResult(raw []byte) (RowResult, error) {
	fields, err := otspb.ConsumeAll(raw)
	if err != nil {
		return RowResult{}, err
	}
	var r RowResult
	if f, ok := otspb.Find(fields, 1); ok {
		r.OK = f.Varint != 0
	}
	if f, ok := otspb.Find(fields, 2); ok {
		r.ErrorCode = string(f.Bytes)
	}
	if f, ok := otspb.Find(fields, 3); ok {
		r.ErrorMessage = string(f.Bytes)
	}
	if f, ok := otspb.Find(fields, 4); ok {
		r.ConsumedCapacity, err = unmarshalConsumedCapacityField(f)
		if err != nil {
			return RowResult{}, err
		}
	}
	if f, ok := otspb.Find(fields, 5); ok {
		r.Row = f.Bytes
	}
	return r, nil
}

func marshalRowResult(r RowResult) []byte {
	var b []byte
	b = otspb.AppendBool(b, 1, r.OK)
	if r.ErrorCode != "" {
		b = otspb.AppendString(b, 2, r.ErrorCode)
	}
	if r.ErrorMessage != "" {
		b = otspb.AppendString(b, 3, r.ErrorMessage)
	}
	b = otspb.AppendMessage(b, 4, marshalConsumedCapacity(r.ConsumedCapacity))
	if r.Row != nil {
		b = otspb.AppendBytes(b, 5, r.Row)
	}
	return b
}

// --- CreateTable ---

type createTableRequest struct {
	Meta               TableMeta
	ReservedThroughput ReservedThroughput
	Options            TableOptions
}

func (r createTableRequest) marshal() []byte {
	var b []byte
	b = otspb.AppendMessage(b, 1, marshalTableMeta(r.Meta))
	b = otspb.AppendMessage(b, 2, marshalCapacityUnit(r.ReservedThroughput.Read, r.ReservedThroughput.Write))
	b = otspb.AppendMessage(b, 3, marshalTableOptions(r.Options))
	return b
}

// --- ListTable ---

type listTableResponse struct {
	TableNames []string
}

func (r *listTableResponse) unmarshal(raw []byte) error {
	fields, err := otspb.ConsumeAll(raw)
	if err != nil {
		return err
	}
	for _, f := range otspb.FindAll(fields, 1) {
		r.TableNames = append(r.TableNames, string(f.Bytes))
	}
	return nil
}

// --- DescribeTable / DeleteTable (both take only a table name) ---

type tableNameRequest struct {
	TableName string
}

func (r tableNameRequest) marshal() []byte {
	return otspb.AppendString(nil, 1, r.TableName)
}

// --- UpdateTable ---

type updateTableRequest struct {
	TableName          string
	ReservedThroughput *ReservedThroughput
	Options            *TableOptions
}

func (r updateTableRequest) marshal() []byte {
	var b []byte
	b = otspb.AppendString(b, 1, r.TableName)
	if r.ReservedThroughput != nil {
		b = otspb.AppendMessage(b, 2, marshalCapacityUnit(r.ReservedThroughput.Read, r.ReservedThroughput.Write))
	}
	if r.Options != nil {
		b = otspb.AppendMessage(b, 3, marshalTableOptions(*r.Options))
	}
	return b
}

type updateTableResponse struct {
	ReservedThroughput ReservedThroughput
	Options            TableOptions
}

func (r *updateTableResponse) unmarshal(raw []byte) error {
	fields, err := otspb.ConsumeAll(raw)
	if err != nil {
		return err
	}
	if f, ok := otspb.Find(fields, 1); ok {
		read, write, err := unmarshalCapacityUnit(f.Bytes)
		if err != nil {
			return err
		}
		r.ReservedThroughput = ReservedThroughput{Read: read, Write: write}
	}
	if f, ok := otspb.Find(fields, 2); ok {
		o, err := unmarshalTableOptions(f.Bytes)
		if err != nil {
			return err
		}
		r.Options = o
	}
	return nil
}

// --- DescribeTable ---

type describeTableResponse struct {
	Meta               TableMeta
	ReservedThroughput ReservedThroughput
	Options            TableOptions
}

func (r *describeTableResponse) unmarshal(raw []byte) error {
	fields, err := otspb.ConsumeAll(raw)
	if err != nil {
		return err
	}
	if f, ok := otspb.Find(fields, 1); ok {
		m, err := unmarshalTableMeta(f.Bytes)
		if err != nil {
			return err
		}
		r.Meta = m
	}
	if f, ok := otspb.Find(fields, 2); ok {
		read, write, err := unmarshalCapacityUnit(f.Bytes)
		if err != nil {
			return err
		}
		r.ReservedThroughput = ReservedThroughput{Read: read, Write: write}
	}
	if f, ok := otspb.Find(fields, 3); ok {
		o, err := unmarshalTableOptions(f.Bytes)
		if err != nil {
			return err
		}
		r.Options = o
	}
	return nil
}

// --- GetRow ---

type getRowRequest struct {
	TableName     string
	PrimaryKey    []byte // plainbuffer-encoded
	ColumnsToGet  []string
	MaxVersions   *int32
}

func (r getRowRequest) marshal() []byte {
	var b []byte
	b = otspb.AppendString(b, 1, r.TableName)
	b = otspb.AppendBytes(b, 2, r.PrimaryKey)
	for _, c := range r.ColumnsToGet {
		b = otspb.AppendString(b, 3, c)
	}
	if r.MaxVersions != nil {
		b = otspb.AppendVarint(b, 4, uint64(*r.MaxVersions))
	}
	return b
}

type getRowResponse struct {
	ConsumedCapacity ConsumedCapacity
	Row              []byte // nil if no row matched
}

func (r *getRowResponse) unmarshal(raw []byte) error {
	fields, err := otspb.ConsumeAll(raw)
	if err != nil {
		return err
	}
	if f, ok := otspb.Find(fields, 1); ok {
		r.ConsumedCapacity, err = unmarshalConsumedCapacityField(f)
		if err != nil {
			return err
		}
	}
	if f, ok := otspb.Find(fields, 2); ok {
		r.Row = f.Bytes
	}
	return nil
}

// --- PutRow / UpdateRow / DeleteRow share the same write shape ---

type writeRowRequest struct {
	TableName  string
	RowChange  []byte // plainbuffer-encoded
	Condition  Condition
	ReturnType ReturnType
}

func (r writeRowRequest) marshal() []byte {
	var b []byte
	b = otspb.AppendString(b, 1, r.TableName)
	b = otspb.AppendBytes(b, 2, r.RowChange)
	b = otspb.AppendMessage(b, 3, marshalCondition(r.Condition))
	b = otspb.AppendMessage(b, 4, marshalReturnContent(r.ReturnType))
	return b
}

type writeRowResponse struct {
	ConsumedCapacity ConsumedCapacity
	Row              []byte // present only when ReturnType == ReturnPrimaryKey
}

func (r *writeRowResponse) unmarshal(raw []byte) error {
	fields, err := otspb.ConsumeAll(raw)
	if err != nil {
		return err
	}
	if f, ok := otspb.Find(fields, 1); ok {
		r.ConsumedCapacity, err = unmarshalConsumedCapacityField(f)
		if err != nil {
			return err
		}
	}
	if f, ok := otspb.Find(fields, 2); ok {
		r.Row = f.Bytes
	}
	return nil
}

// --- BatchGetRow ---

type batchGetTable struct {
	TableName    string
	PrimaryKeys  [][]byte
	ColumnsToGet []string
}

func marshalBatchGetTable(t batchGetTable) []byte {
	var b []byte
	b = otspb.AppendString(b, 1, t.TableName)
	for _, pk := range t.PrimaryKeys {
		b = otspb.AppendBytes(b, 2, pk)
	}
	for _, c := range t.ColumnsToGet {
		b = otspb.AppendString(b, 3, c)
	}
	return b
}

type batchGetRowRequest struct {
	Tables []batchGetTable
}

func (r batchGetRowRequest) marshal() []byte {
	var b []byte
	for _, t := range r.Tables {
		b = otspb.AppendMessage(b, 1, marshalBatchGetTable(t))
	}
	return b
}

type batchGetTableResult struct {
	TableName string
	Rows      []RowResult
}

type batchGetRowResponse struct {
	Tables []batchGetTableResult
}

func (r *batchGetRowResponse) unmarshal(raw []byte) error {
	fields, err := otspb.ConsumeAll(raw)
	if err != nil {
		return err
	}
	for _, tf := range otspb.FindAll(fields, 1) {
		tfields, err := otspb.ConsumeAll(tf.Bytes)
		if err != nil {
			return err
		}
		var t batchGetTableResult
		if f, ok := otspb.Find(tfields, 1); ok {
			t.TableName = string(f.Bytes)
		}
		for _, rf := range otspb.FindAll(tfields, 2) {
			rr, err := unmarshalRowResult(rf.Bytes)
			if err != nil {
				return err
			}
			t.Rows = append(t.Rows, rr)
		}
		r.Tables = append(r.Tables, t)
	}
	return nil
}

// --- BatchWriteRow ---

type rowInBatchWrite struct {
	RowChange  []byte
	Condition  Condition
	ReturnType ReturnType
}

func marshalRowInBatchWrite(r rowInBatchWrite) []byte {
	var b []byte
	b = otspb.AppendBytes(b, 1, r.RowChange)
	b = otspb.AppendMessage(b, 2, marshalCondition(r.Condition))
	b = otspb.AppendMessage(b, 3, marshalReturnContent(r.ReturnType))
	return b
}

type tableInBatchWrite struct {
	TableName string
	Puts      []rowInBatchWrite
	Updates   []rowInBatchWrite
	Deletes   []rowInBatchWrite
}

func marshalTableInBatchWrite(t tableInBatchWrite) []byte {
	var b []byte
	b = otspb.AppendString(b, 1, t.TableName)
	for _, r := range t.Puts {
		b = otspb.AppendMessage(b, 2, marshalRowInBatchWrite(r))
	}
	for _, r := range t.Updates {
		b = otspb.AppendMessage(b, 3, marshalRowInBatchWrite(r))
	}
	for _, r := range t.Deletes {
		b = otspb.AppendMessage(b, 4, marshalRowInBatchWrite(r))
	}
	return b
}

type batchWriteRowRequest struct {
	Tables []tableInBatchWrite
}

func (r batchWriteRowRequest) marshal() []byte {
	var b []byte
	for _, t := range r.Tables {
		b = otspb.AppendMessage(b, 1, marshalTableInBatchWrite(t))
	}
	return b
}

type tableInBatchWriteResult struct {
	TableName     string
	PutResults    []RowResult
	UpdateResults []RowResult
	DeleteResults []RowResult
}

type batchWriteRowResponse struct {
	Tables []tableInBatchWriteResult
}

func (r *batchWriteRowResponse) unmarshal(raw []byte) error {
	fields, err := otspb.ConsumeAll(raw)
	if err != nil {
		return err
	}
	for _, tf := range otspb.FindAll(fields, 1) {
		tfields, err := otspb.ConsumeAll(tf.Bytes)
		if err != nil {
			return err
		}
		var t tableInBatchWriteResult
		if f, ok := otspb.Find(tfields, 1); ok {
			t.TableName = string(f.Bytes)
		}
		for _, rf := range otspb.FindAll(tfields, 2) {
			rr, err := unmarshalRowResult(rf.Bytes)
			if err != nil {
				return err
			}
			t.PutResults = append(t.PutResults, rr)
		}
		for _, rf := range otspb.FindAll(tfields, 3) {
			rr, err := unmarshalRowResult(rf.Bytes)
			if err != nil {
				return err
			}
			t.UpdateResults = append(t.UpdateResults, rr)
		}
		for _, rf := range otspb.FindAll(tfields, 4) {
			rr, err := unmarshalRowResult(rf.Bytes)
			if err != nil {
				return err
			}
			t.DeleteResults = append(t.DeleteResults, rr)
		}
		r.Tables = append(r.Tables, t)
	}
	return nil
}

// --- GetRange ---

type rangeDirection uint8

const (
	directionForward rangeDirection = iota
	directionBackward
)

type getRangeRequest struct {
	TableName                string
	Direction                rangeDirection
	ColumnsToGet             []string
	InclusiveStartPrimaryKey []byte
	ExclusiveEndPrimaryKey   []byte
	Limit                    *int64
}

func (r getRangeRequest) marshal() []byte {
	var b []byte
	b = otspb.AppendString(b, 1, r.TableName)
	b = otspb.AppendVarint(b, 2, uint64(r.Direction))
	for _, c := range r.ColumnsToGet {
		b = otspb.AppendString(b, 3, c)
	}
	b = otspb.AppendBytes(b, 4, r.InclusiveStartPrimaryKey)
	b = otspb.AppendBytes(b, 5, r.ExclusiveEndPrimaryKey)
	if r.Limit != nil {
		b = otspb.AppendVarint(b, 6, uint64(*r.Limit))
	}
	return b
}

type getRangeResponse struct {
	ConsumedCapacity    ConsumedCapacity
	Rows                [][]byte
	NextStartPrimaryKey []byte
}

func (r *getRangeResponse) unmarshal(raw []byte) error {
	fields, err := otspb.ConsumeAll(raw)
	if err != nil {
		return err
	}
	if f, ok := otspb.Find(fields, 1); ok {
		r.ConsumedCapacity, err = unmarshalConsumedCapacityField(f)
		if err != nil {
			return err
		}
	}
	for _, f := range otspb.FindAll(fields, 2) {
		r.Rows = append(r.Rows, f.Bytes)
	}
	if f, ok := otspb.Find(fields, 3); ok {
		r.NextStartPrimaryKey = f.Bytes
	}
	return nil
}

// --- ComputeSplitPointsBySize ---

type computeSplitPointsBySizeRequest struct {
	TableName string
	SplitSize int64
}

func (r computeSplitPointsBySizeRequest) marshal() []byte {
	var b []byte
	b = otspb.AppendString(b, 1, r.TableName)
	b = otspb.AppendVarint(b, 2, uint64(r.SplitSize))
	return b
}

type computeSplitPointsBySizeResponse struct {
	Schema      []PrimaryKeySchema
	SplitPoints [][]byte
}

func (r *computeSplitPointsBySizeResponse) unmarshal(raw []byte) error {
	fields, err := otspb.ConsumeAll(raw)
	if err != nil {
		return err
	}
	for _, f := range otspb.FindAll(fields, 1) {
		s, err := unmarshalPKSchema(f.Bytes)
		if err != nil {
			return err
		}
		r.Schema = append(r.Schema, s)
	}
	for _, f := range otspb.FindAll(fields, 2) {
		r.SplitPoints = append(r.SplitPoints, f.Bytes)
	}
	return nil
}
