package tablestore

import (
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Config holds the tunables a Client is built from (spec §6's "Enumerated
// configuration").
type Config struct {
	Endpoint        string
	InstanceName    string
	AccessKeyID     string
	AccessKeySecret string
	SecurityToken   string // optional, STS credential mode

	MaxConnections int
	ConnectTimeout time.Duration
	RequestTimeout time.Duration

	// CompressRequests deflate-compresses the protobuf request body before
	// it's put on the wire (spec §6 content negotiation). Off by default,
	// matching the teacher's default CompressType of "none".
	CompressRequests bool
	// AcceptCompressedResponses tells the service it may deflate-compress
	// the response body; when it does, the response is inflated before
	// being handed to the verb's unmarshal step.
	AcceptCompressedResponses bool

	RetryPolicy RetryPolicy
	Logger      *zap.Logger
}

// DefaultConfig returns a Config with the pack's usual defaults filled in;
// callers still must set Endpoint/InstanceName/AccessKeyID/AccessKeySecret.
func DefaultConfig() Config {
	return Config{
		MaxConnections: 5000,
		ConnectTimeout: 5 * time.Second,
		RequestTimeout: 30 * time.Second,
		RetryPolicy:    NewDefaultRetryPolicy(),
		Logger:         zap.NewNop(),
	}
}

// Client is the core TableStore client: one per (endpoint, instance,
// credentials), sharing one connection pool across every verb.
type Client struct {
	cfg    Config
	host   string
	port   string
	signer *signer
	pool   *connPool
	logger *zap.Logger
	cb     *Actor
}

// NewClient validates cfg and builds a Client with its own connection pool.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, newValidationError("endpoint must not be empty")
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, newValidationError("invalid endpoint %q: %v", cfg.Endpoint, err)
	}
	if u.Path != "" && u.Path != "/" {
		return nil, newValidationError("endpoint path must be empty or \"/\", got %q", u.Path)
	}
	if cfg.InstanceName == "" {
		return nil, newValidationError("instance name must not be empty")
	}
	if cfg.RetryPolicy == nil {
		cfg.RetryPolicy = NewDefaultRetryPolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 1
	}

	useTLS := u.Scheme == "https"
	port := u.Port()
	if port == "" {
		if useTLS {
			port = "443"
		} else {
			port = "80"
		}
	}

	pool := newConnPool(poolConfig{
		Host:           u.Hostname(),
		Port:           port,
		UseTLS:         useTLS,
		MaxConns:       cfg.MaxConnections,
		ConnectTimeout: cfg.ConnectTimeout,
		Logger:         cfg.Logger,
	})

	return &Client{
		cfg:    cfg,
		host:   u.Hostname(),
		port:   port,
		signer: newSigner(cfg.AccessKeyID, cfg.AccessKeySecret, cfg.SecurityToken),
		pool:   pool,
		logger: cfg.Logger,
		cb:     NewActor(256),
	}, nil
}

// Close shuts down the client's connection pool and its callback actor.
func (c *Client) Close() {
	c.pool.Close()
	c.cb.Close()
}

// call runs the full spec §4.6 pipeline for one action: sign, borrow,
// transport, decode, and on failure consult the retry policy before
// recursing into the next attempt. onResult is invoked on the client's
// callback actor.
func (c *Client) call(action Action, body []byte, onResult func(respBody []byte, err error)) {
	c.attempt(action, body, 1, onResult)
}

func (c *Client) attempt(action Action, body []byte, attemptNum int, onResult func([]byte, error)) {
	deadline := time.Now().Add(c.cfg.RequestTimeout)
	respBody, err := c.doOnce(action, body, deadline)
	if err == nil {
		c.cb.Post(func() { onResult(respBody, nil) })
		return
	}

	if c.cfg.RetryPolicy.ShouldRetry(action, err) && attemptNum < c.cfg.RetryPolicy.MaxAttempts() {
		delay := c.cfg.RetryPolicy.NextBackoff(attemptNum)
		c.logger.Warn("retrying request",
			zap.String("action", action.uri()), zap.Int("attempt", attemptNum),
			zap.Duration("backoff", delay), zap.Error(err))
		time.AfterFunc(delay, func() {
			c.attempt(action, body, attemptNum+1, onResult)
		})
		return
	}

	c.cb.Post(func() { onResult(nil, err) })
}

func (c *Client) doOnce(action Action, body []byte, deadline time.Time) ([]byte, error) {
	now := time.Now()

	wireBody := body
	extra := map[string]string{headerInstanceName: c.cfg.InstanceName}
	if c.cfg.CompressRequests && len(body) > 0 {
		compressed, err := deflateCompress(body)
		if err != nil {
			return nil, newValidationError("compress request body: %v", err)
		}
		wireBody = compressed
		extra[headerRequestCompressType] = compressDeflate
		extra[headerRequestCompressSize] = strconv.Itoa(len(body))
	}
	if c.cfg.AcceptCompressedResponses {
		extra[headerResponseCompressType] = compressDeflate
	}
	extra[headerTraceID] = newTraceID()

	headers := c.signer.sign(action.uri(), "POST", wireBody, extra, now)

	conn, err := c.pool.borrow(deadline)
	if err != nil {
		return nil, err
	}

	tr := newTransport(conn, c.logger)
	status, respHeaders, respBody, err := tr.roundTrip(c.host, action.uri(), headers, wireBody, deadline)
	if err != nil {
		conn.destroy()
		return nil, err
	}
	conn.giveBack()

	if err := verifyResponse(respHeaders, respBody, time.Now()); err != nil {
		return nil, err
	}

	decodedBody, err := decompressIfNeeded(respHeaders, respBody)
	if err != nil {
		return nil, err
	}

	if status == 200 {
		return decodedBody, nil
	}
	return nil, parseErrorResponse(status, respHeaders, decodedBody)
}

// decompressIfNeeded inflates body when the response carries a recognized
// x-ots-response-compress-type header, validating the declared size. The
// historical "defalte" misspelling is deliberately not accepted (spec §9
// open question); only the correctly spelled deflate is.
func decompressIfNeeded(headers map[string]string, body []byte) ([]byte, error) {
	compressType, ok := headerLookup(headers, headerResponseCompressType)
	if !ok {
		return body, nil
	}
	if compressType != compressDeflate {
		return nil, newPseudoError(StatusCorruptedResponse, "", "unsupported response compress type %q", compressType)
	}
	sizeStr, ok := headerLookup(headers, headerResponseCompressSize)
	if !ok {
		return nil, newPseudoError(StatusCorruptedResponse, "", "%s missing for compressed response", headerResponseCompressSize)
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil {
		return nil, newPseudoError(StatusCorruptedResponse, "", "invalid %s %q: %v", headerResponseCompressSize, sizeStr, err)
	}
	out, err := deflateDecompress(body, size)
	if err != nil {
		return nil, newPseudoError(StatusCorruptedResponse, "", "%v", err)
	}
	return out, nil
}

// parseErrorResponse builds the typed Error for a non-2xx HTTP response.
// The error body layout ({code, message}) is a json-ish structured payload
// per spec §6; this core keeps only what the retry policy and callers need.
func parseErrorResponse(status int, headers map[string]string, body []byte) error {
	code, message := extractErrorBody(body)
	if status == 403 {
		if authFailed, ok := headerLookup(headers, headerAuthFailed); ok && authFailed != "" {
			return newPseudoError(status, ErrCodeAuthFailed, "%s", authFailed)
		}
	}
	if status == 301 {
		loc, _ := headerLookup(headers, "Location")
		return newPseudoError(status, "", "endpoint moved: %s", loc)
	}
	reqID, _ := headerLookup(headers, headerRequestID)
	return &Error{HTTPStatus: status, Code: code, Message: message, RequestID: reqID}
}

// extractErrorBody parses the minimal "code\nmessage"-shaped error payload.
// A real deployment's error body is small and line-oriented; this avoids
// pulling in a JSON dependency for two fields.
func extractErrorBody(body []byte) (code, message string) {
	for i, b := range body {
		if b == '\n' {
			return string(body[:i]), string(body[i+1:])
		}
	}
	return "", string(body)
}

// --- verb methods ---

// CreateTable creates a table with the given meta, throughput, and options.
func (c *Client) CreateTable(meta TableMeta, throughput ReservedThroughput, opts TableOptions, cb func(error)) {
	if err := meta.validate(); err != nil {
		cb(err)
		return
	}
	if err := throughput.validate(); err != nil {
		cb(err)
		return
	}
	if err := opts.validate(); err != nil {
		cb(err)
		return
	}
	req := createTableRequest{Meta: meta, ReservedThroughput: throughput, Options: opts}
	c.call(ActionCreateTable, req.marshal(), func(_ []byte, err error) { cb(err) })
}

// ListTable lists every table in the instance.
func (c *Client) ListTable(cb func([]string, error)) {
	c.call(ActionListTable, nil, func(body []byte, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		var resp listTableResponse
		if err := resp.unmarshal(body); err != nil {
			cb(nil, newPseudoError(StatusCorruptedResponse, "", "%v", err))
			return
		}
		cb(resp.TableNames, nil)
	})
}

// DescribeTable fetches a table's meta, throughput, and options.
func (c *Client) DescribeTable(tableName string, cb func(TableMeta, ReservedThroughput, TableOptions, error)) {
	req := tableNameRequest{TableName: tableName}
	c.call(ActionDescribeTable, req.marshal(), func(body []byte, err error) {
		if err != nil {
			cb(TableMeta{}, ReservedThroughput{}, TableOptions{}, err)
			return
		}
		var resp describeTableResponse
		if err := resp.unmarshal(body); err != nil {
			cb(TableMeta{}, ReservedThroughput{}, TableOptions{}, newPseudoError(StatusCorruptedResponse, "", "%v", err))
			return
		}
		cb(resp.Meta, resp.ReservedThroughput, resp.Options, nil)
	})
}

// DeleteTable drops a table.
func (c *Client) DeleteTable(tableName string, cb func(error)) {
	req := tableNameRequest{TableName: tableName}
	c.call(ActionDeleteTable, req.marshal(), func(_ []byte, err error) { cb(err) })
}

// UpdateTable adjusts a table's throughput and/or options.
func (c *Client) UpdateTable(tableName string, throughput *ReservedThroughput, opts *TableOptions, cb func(ReservedThroughput, TableOptions, error)) {
	if opts != nil {
		if err := opts.validate(); err != nil {
			cb(ReservedThroughput{}, TableOptions{}, err)
			return
		}
	}
	req := updateTableRequest{TableName: tableName, ReservedThroughput: throughput, Options: opts}
	c.call(ActionUpdateTable, req.marshal(), func(body []byte, err error) {
		if err != nil {
			cb(ReservedThroughput{}, TableOptions{}, err)
			return
		}
		var resp updateTableResponse
		if err := resp.unmarshal(body); err != nil {
			cb(ReservedThroughput{}, TableOptions{}, newPseudoError(StatusCorruptedResponse, "", "%v", err))
			return
		}
		cb(resp.ReservedThroughput, resp.Options, nil)
	})
}

// GetRow fetches a single row by primary key. row is nil if no row matched.
func (c *Client) GetRow(tableName string, pk PrimaryKey, columnsToGet []string, cb func(row *Row, cc ConsumedCapacity, err error)) {
	encodedPK, err := encodePrimaryKey(pk)
	if err != nil {
		cb(nil, ConsumedCapacity{}, err)
		return
	}
	req := getRowRequest{TableName: tableName, PrimaryKey: encodedPK, ColumnsToGet: columnsToGet}
	c.call(ActionGetRow, req.marshal(), func(body []byte, err error) {
		if err != nil {
			cb(nil, ConsumedCapacity{}, err)
			return
		}
		var resp getRowResponse
		if err := resp.unmarshal(body); err != nil {
			cb(nil, ConsumedCapacity{}, newPseudoError(StatusCorruptedResponse, "", "%v", err))
			return
		}
		if resp.Row == nil {
			cb(nil, resp.ConsumedCapacity, nil)
			return
		}
		row, err := decodeRow(resp.Row)
		if err != nil {
			cb(nil, ConsumedCapacity{}, newPseudoError(StatusCorruptedResponse, "", "%v", err))
			return
		}
		cb(&row, resp.ConsumedCapacity, nil)
	})
}

// PutRow, UpdateRow, and DeleteRow share the same request/response shape;
// writeChange does the common work and verb methods supply the encoding.
func (c *Client) writeChange(action Action, tableName string, encodedChange []byte, cond Condition, rt ReturnType, cb func(returnedPK *PrimaryKey, cc ConsumedCapacity, err error)) {
	req := writeRowRequest{TableName: tableName, RowChange: encodedChange, Condition: cond, ReturnType: rt}
	c.call(action, req.marshal(), func(body []byte, err error) {
		if err != nil {
			cb(nil, ConsumedCapacity{}, err)
			return
		}
		var resp writeRowResponse
		if err := resp.unmarshal(body); err != nil {
			cb(nil, ConsumedCapacity{}, newPseudoError(StatusCorruptedResponse, "", "%v", err))
			return
		}
		if resp.Row == nil {
			cb(nil, resp.ConsumedCapacity, nil)
			return
		}
		pk, err := decodePrimaryKey(resp.Row)
		if err != nil {
			cb(nil, ConsumedCapacity{}, newPseudoError(StatusCorruptedResponse, "", "%v", err))
			return
		}
		cb(&pk, resp.ConsumedCapacity, nil)
	})
}

// PutRow writes rc, replacing any existing row at its key.
func (c *Client) PutRow(rc *RowPutChange, cb func(*PrimaryKey, ConsumedCapacity, error)) {
	if err := validateRowChange(rc); err != nil {
		cb(nil, ConsumedCapacity{}, err)
		return
	}
	encoded, err := encodeRowChange(rc)
	if err != nil {
		cb(nil, ConsumedCapacity{}, err)
		return
	}
	c.writeChange(ActionPutRow, rc.Table, encoded, rc.Condition, rc.ReturnType, cb)
}

// UpdateRow applies rc's column mutations.
func (c *Client) UpdateRow(rc *RowUpdateChange, cb func(*PrimaryKey, ConsumedCapacity, error)) {
	if err := validateRowChange(rc); err != nil {
		cb(nil, ConsumedCapacity{}, err)
		return
	}
	encoded, err := encodeRowChange(rc)
	if err != nil {
		cb(nil, ConsumedCapacity{}, err)
		return
	}
	c.writeChange(ActionUpdateRow, rc.Table, encoded, rc.Condition, rc.ReturnType, cb)
}

// DeleteRow removes the row at rc's key.
func (c *Client) DeleteRow(rc *RowDeleteChange, cb func(*PrimaryKey, ConsumedCapacity, error)) {
	if err := validateRowChange(rc); err != nil {
		cb(nil, ConsumedCapacity{}, err)
		return
	}
	encoded, err := encodeRowChange(rc)
	if err != nil {
		cb(nil, ConsumedCapacity{}, err)
		return
	}
	c.writeChange(ActionDeleteRow, rc.Table, encoded, rc.Condition, rc.ReturnType, cb)
}

// BatchGetRowItem requests one row by key within a BatchGetRow call.
type BatchGetRowItem struct {
	TableName string
	Key       PrimaryKey
}

// BatchGetRowResult is one per-row outcome of a BatchGetRow call.
type BatchGetRowResult struct {
	TableName        string
	OK               bool
	ErrorCode        string
	ErrorMessage     string
	Row              *Row
	ConsumedCapacity ConsumedCapacity
}

// BatchGetRow fetches multiple rows, possibly across tables, in one
// round-trip. columnsToGet applies per table, keyed by table name.
func (c *Client) BatchGetRow(items []BatchGetRowItem, columnsToGet map[string][]string, cb func([]BatchGetRowResult, error)) {
	byTable := make(map[string][][]byte)
	order := make([]string, 0)
	for _, it := range items {
		encoded, err := encodePrimaryKey(it.Key)
		if err != nil {
			cb(nil, err)
			return
		}
		if _, ok := byTable[it.TableName]; !ok {
			order = append(order, it.TableName)
		}
		byTable[it.TableName] = append(byTable[it.TableName], encoded)
	}
	req := batchGetRowRequest{}
	for _, name := range order {
		req.Tables = append(req.Tables, batchGetTable{
			TableName:    name,
			PrimaryKeys:  byTable[name],
			ColumnsToGet: columnsToGet[name],
		})
	}

	c.call(ActionBatchGetRow, req.marshal(), func(body []byte, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		var resp batchGetRowResponse
		if err := resp.unmarshal(body); err != nil {
			cb(nil, newPseudoError(StatusCorruptedResponse, "", "%v", err))
			return
		}
		var out []BatchGetRowResult
		for _, t := range resp.Tables {
			for _, r := range t.Rows {
				res := BatchGetRowResult{
					TableName:        t.TableName,
					OK:               r.OK,
					ErrorCode:        r.ErrorCode,
					ErrorMessage:     r.ErrorMessage,
					ConsumedCapacity: r.ConsumedCapacity,
				}
				if r.OK && r.Row != nil {
					row, err := decodeRow(r.Row)
					if err != nil {
						cb(nil, newPseudoError(StatusCorruptedResponse, "", "%v", err))
						return
					}
					res.Row = &row
				}
				out = append(out, res)
			}
		}
		cb(out, nil)
	})
}

// GetRangeDirection selects scan order for GetRange.
type GetRangeDirection uint8

const (
	GetRangeForward GetRangeDirection = iota
	GetRangeBackward
)

// GetRange scans rows between two primary-key bounds.
func (c *Client) GetRange(tableName string, direction GetRangeDirection, start, end PrimaryKey, columnsToGet []string, limit int64, cb func(rows []Row, nextStart *PrimaryKey, cc ConsumedCapacity, err error)) {
	startEnc, err := encodePrimaryKey(start)
	if err != nil {
		cb(nil, nil, ConsumedCapacity{}, err)
		return
	}
	endEnc, err := encodePrimaryKey(end)
	if err != nil {
		cb(nil, nil, ConsumedCapacity{}, err)
		return
	}
	req := getRangeRequest{
		TableName:                tableName,
		Direction:                rangeDirection(direction),
		ColumnsToGet:             columnsToGet,
		InclusiveStartPrimaryKey: startEnc,
		ExclusiveEndPrimaryKey:   endEnc,
	}
	if limit > 0 {
		req.Limit = &limit
	}
	c.call(ActionGetRange, req.marshal(), func(body []byte, err error) {
		if err != nil {
			cb(nil, nil, ConsumedCapacity{}, err)
			return
		}
		var resp getRangeResponse
		if err := resp.unmarshal(body); err != nil {
			cb(nil, nil, ConsumedCapacity{}, newPseudoError(StatusCorruptedResponse, "", "%v", err))
			return
		}
		rows := make([]Row, 0, len(resp.Rows))
		for _, raw := range resp.Rows {
			row, err := decodeRow(raw)
			if err != nil {
				cb(nil, nil, ConsumedCapacity{}, newPseudoError(StatusCorruptedResponse, "", "%v", err))
				return
			}
			rows = append(rows, row)
		}
		var next *PrimaryKey
		if resp.NextStartPrimaryKey != nil {
			pk, err := decodePrimaryKey(resp.NextStartPrimaryKey)
			if err != nil {
				cb(nil, nil, ConsumedCapacity{}, newPseudoError(StatusCorruptedResponse, "", "%v", err))
				return
			}
			next = &pk
		}
		cb(rows, next, resp.ConsumedCapacity, nil)
	})
}

// ComputeSplitPointsBySize asks the service to propose split points for a
// table sized roughly into splitSize-byte chunks.
func (c *Client) ComputeSplitPointsBySize(tableName string, splitSize int64, cb func(schema []PrimaryKeySchema, splitPoints []PrimaryKey, err error)) {
	req := computeSplitPointsBySizeRequest{TableName: tableName, SplitSize: splitSize}
	c.call(ActionComputeSplitPointsBySize, req.marshal(), func(body []byte, err error) {
		if err != nil {
			cb(nil, nil, err)
			return
		}
		var resp computeSplitPointsBySizeResponse
		if err := resp.unmarshal(body); err != nil {
			cb(nil, nil, newPseudoError(StatusCorruptedResponse, "", "%v", err))
			return
		}
		points := make([]PrimaryKey, 0, len(resp.SplitPoints))
		for _, raw := range resp.SplitPoints {
			pk, err := decodePrimaryKey(raw)
			if err != nil {
				cb(nil, nil, newPseudoError(StatusCorruptedResponse, "", "%v", err))
				return
			}
			points = append(points, pk)
		}
		cb(resp.Schema, points, nil)
	})
}

// BatchWriteRowItem is one row-level operation submitted to BatchWriteRow,
// addressed by its RowChange (so a batch can mix Put/Update/Delete).
// UserData is opaque to this package and round-trips unmodified onto the
// BatchWriteRowResult at the same slice index (spec §8).
type BatchWriteRowItem struct {
	Change   RowChange
	UserData interface{}
}

// BatchWriteRowResult is one per-item outcome of a BatchWriteRow call. The
// result slice BatchWriteRow's callback receives has exactly one entry per
// submitted item, at the same index — callers never need to know how the
// wire grouped rows by table and kind.
type BatchWriteRowResult struct {
	UserData         interface{}
	OK               bool
	ErrorCode        string
	ErrorMessage     string
	ReturnedPK       *PrimaryKey
	ConsumedCapacity ConsumedCapacity
}

// tableWriteIndex records, for one table, the original items[] index of
// every row that was filed into that table's Puts/Updates/Deletes list, in
// the same order the rows were appended — the same order the server's
// PutResults/UpdateResults/DeleteResults come back in. This is this port's
// analogue of the C++ original's per-kind callback deques
// (CallbackCarrier): it lets the response be scattered back to its
// originating item by index instead of assuming submission order survives
// the table/kind regrouping, which it doesn't whenever a batch mixes kinds.
type tableWriteIndex struct {
	puts, updates, deletes []int
}

// BatchWriteRow submits a set of row changes, grouped by table and kind on
// the wire (the protocol's required shape), in one round trip. The callback
// receives results in the same order and count as items, regardless of
// wire grouping; BatchWriter is the higher-level aggregator most callers
// should use instead of calling this directly (spec §4.7).
func (c *Client) BatchWriteRow(items []BatchWriteRowItem, cb func([]BatchWriteRowResult, error)) {
	byTable := make(map[string]*tableInBatchWrite)
	indexByTable := make(map[string]*tableWriteIndex)
	order := make([]string, 0)
	for i, it := range items {
		if err := validateRowChange(it.Change); err != nil {
			cb(nil, err)
			return
		}
		encoded, err := encodeRowChange(it.Change)
		if err != nil {
			cb(nil, err)
			return
		}
		name := it.Change.TableName()
		t, ok := byTable[name]
		if !ok {
			t = &tableInBatchWrite{TableName: name}
			byTable[name] = t
			indexByTable[name] = &tableWriteIndex{}
			order = append(order, name)
		}
		idx := indexByTable[name]
		rib := rowInBatchWrite{RowChange: encoded, Condition: it.Change.GetCondition(), ReturnType: it.Change.GetReturnType()}
		switch it.Change.Kind() {
		case RowChangePut:
			t.Puts = append(t.Puts, rib)
			idx.puts = append(idx.puts, i)
		case RowChangeUpdate:
			t.Updates = append(t.Updates, rib)
			idx.updates = append(idx.updates, i)
		case RowChangeDelete:
			t.Deletes = append(t.Deletes, rib)
			idx.deletes = append(idx.deletes, i)
		}
	}

	req := batchWriteRowRequest{}
	for _, name := range order {
		req.Tables = append(req.Tables, *byTable[name])
	}

	c.call(ActionBatchWriteRow, req.marshal(), func(body []byte, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		var resp batchWriteRowResponse
		if err := resp.unmarshal(body); err != nil {
			cb(nil, newPseudoError(StatusCorruptedResponse, "", "%v", err))
			return
		}

		out := make([]BatchWriteRowResult, len(items))
		scatter := func(results []RowResult, positions []int) error {
			n := len(results)
			if len(positions) < n {
				n = len(positions)
			}
			for i := 0; i < n; i++ {
				origIdx := positions[i]
				res, derr := toBatchWriteRowResult(results[i], items[origIdx].UserData)
				if derr != nil {
					return derr
				}
				out[origIdx] = res
			}
			return nil
		}
		for _, t := range resp.Tables {
			idx, ok := indexByTable[t.TableName]
			if !ok {
				continue
			}
			if err := scatter(t.PutResults, idx.puts); err != nil {
				cb(nil, newPseudoError(StatusCorruptedResponse, "", "%v", err))
				return
			}
			if err := scatter(t.UpdateResults, idx.updates); err != nil {
				cb(nil, newPseudoError(StatusCorruptedResponse, "", "%v", err))
				return
			}
			if err := scatter(t.DeleteResults, idx.deletes); err != nil {
				cb(nil, newPseudoError(StatusCorruptedResponse, "", "%v", err))
				return
			}
		}
		cb(out, nil)
	})
}

// toBatchWriteRowResult converts one wire-level RowResult into the public
// BatchWriteRowResult shape, decoding the returned primary key when present.
func toBatchWriteRowResult(r RowResult, userData interface{}) (BatchWriteRowResult, error) {
	res := BatchWriteRowResult{
		UserData:         userData,
		OK:               r.OK,
		ErrorCode:        r.ErrorCode,
		ErrorMessage:     r.ErrorMessage,
		ConsumedCapacity: r.ConsumedCapacity,
	}
	if r.OK && r.Row != nil {
		pk, err := decodePrimaryKey(r.Row)
		if err != nil {
			return BatchWriteRowResult{}, err
		}
		res.ReturnedPK = &pk
	}
	return res, nil
}
