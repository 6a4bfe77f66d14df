package tablestore

// apiVersion is the literal version string required on every request by
// spec §4.2/§6.
const apiVersion = "2015-12-31"

// Request/response header names, spec §6.
const (
	headerAPIVersion            = "x-ots-apiversion"
	headerDate                  = "x-ots-date"
	headerAccessKeyID           = "x-ots-accesskeyid"
	headerInstanceName          = "x-ots-instancename"
	headerContentMD5            = "x-ots-contentmd5"
	headerSignature             = "x-ots-signature"
	headerSecurityToken         = "x-ots-stoken"
	headerRequestID             = "x-ots-requestid"
	headerTraceID               = "x-ots-tracerid"
	headerAuthFailed             = "x-ots-authfailed"
	headerRequestCompressType   = "x-ots-request-compress-type"
	headerRequestCompressSize   = "x-ots-request-compress-size"
	headerResponseCompressType  = "x-ots-response-compress-type"
	headerResponseCompressSize  = "x-ots-response-compress-size"
)

// compressDeflate is the only recognized compression-type header value; the
// historical "defalte" typo is deliberately not accepted (spec §9 open
// question).
const compressDeflate = "deflate"

// dateLayout is the ISO-8601 UTC layout used for x-ots-date.
const dateLayout = "2006-01-02T15:04:05.000Z"

// maxClockSkewSeconds bounds the allowed drift between x-ots-date and the local
// clock before a response is rejected as corrupted (spec §4.2).
const maxClockSkewSeconds = 15 * 60

// Action is the closed set of API verbs this core supports (spec §3).
type Action string

const (
	ActionCreateTable              Action = "CreateTable"
	ActionListTable                Action = "ListTable"
	ActionDescribeTable            Action = "DescribeTable"
	ActionDeleteTable              Action = "DeleteTable"
	ActionUpdateTable              Action = "UpdateTable"
	ActionGetRow                   Action = "GetRow"
	ActionPutRow                   Action = "PutRow"
	ActionUpdateRow                Action = "UpdateRow"
	ActionDeleteRow                Action = "DeleteRow"
	ActionBatchGetRow              Action = "BatchGetRow"
	ActionBatchWriteRow            Action = "BatchWriteRow"
	ActionGetRange                 Action = "GetRange"
	ActionComputeSplitPointsBySize Action = "ComputeSplitPointsBySize"
)

// uri returns the wire path for the action: the literal verb name prefixed
// with '/' (spec §6).
func (a Action) uri() string {
	return "/" + string(a)
}

// idempotent reports whether retrying this action can never cause a
// duplicate side effect, per spec §4.5.
func (a Action) idempotent() bool {
	switch a {
	case ActionListTable, ActionDescribeTable, ActionDeleteTable, ActionCreateTable,
		ActionComputeSplitPointsBySize, ActionGetRow, ActionBatchGetRow, ActionGetRange,
		ActionDeleteRow:
		return true
	case ActionUpdateTable, ActionPutRow, ActionUpdateRow, ActionBatchWriteRow:
		return false
	default:
		return false
	}
}
