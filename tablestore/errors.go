package tablestore

import (
	"fmt"

	"github.com/pkg/errors"
)

// Pseudo-HTTP statuses used for client-side failures that never reach the
// wire. Real HTTP statuses (200, 4xx, 5xx) are always >= 0.
const (
	StatusCouldntResolveHost   = -1
	StatusCouldntConnect       = -2
	StatusWriteRequestFail     = -3
	StatusCorruptedResponse    = -4
	StatusNoConnectionAvailable = -5
	StatusOperationTimeout     = -6
	StatusSSLHandshakeFail     = -7
	StatusClientValidation     = -8
)

// Well-known server error codes referenced by the retry policy (spec §4.5).
const (
	ErrCodeRowOperationConflict             = "OTSRowOperationConflict"
	ErrCodeNotEnoughCapacityUnit             = "OTSNotEnoughCapacityUnit"
	ErrCodeTableNotReady                     = "OTSTableNotReady"
	ErrCodePartitionUnavailable              = "OTSPartitionUnavailable"
	ErrCodeServerBusy                        = "OTSServerBusy"
	ErrCodeCapacityUnitExhausted             = "OTSCapacityUnitExhausted"
	ErrCodeTooFrequentThroughputAdjustment   = "OTSTooFrequentReservedThroughputAdjustment"
	ErrCodeQuotaExhausted                    = "OTSQuotaExhausted"
	ErrCodeTimeout                           = "OTSTimeout"
	ErrCodeInternalServerError               = "OTSInternalServerError"
	ErrCodeServerUnavailable                 = "OTSServerUnavailable"
	ErrCodeRequestTimeout                    = "OTSRequestTimeout"
	ErrCodeConditionCheckFail                = "OTSConditionCheckFail"
	ErrCodeObjectAlreadyExist                = "OTSObjectAlreadyExist"
	ErrCodeObjectNotExist                    = "OTSObjectNotExist"
	ErrCodeInvalidPK                         = "OTSInvalidPK"
	ErrCodeParameterInvalid                  = "OTSParameterInvalid"
	ErrCodeAuthFailed                        = "OTSAuthFailed"

	quotaExhaustedMessage = "Too frequent table operations."
)

// Error is the single error type that crosses the public API boundary. It
// carries the originating request/trace id whenever one is known, per spec
// §3 and §7.
type Error struct {
	HTTPStatus int
	Code       string
	Message    string
	RequestID  string
	TraceID    string
}

func (e *Error) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("tablestore: %s (status=%d, requestId=%s): %s", e.Code, e.HTTPStatus, e.RequestID, e.Message)
	}
	return fmt.Sprintf("tablestore: %s (status=%d): %s", e.Code, e.HTTPStatus, e.Message)
}

// IsNotFound reports whether err is an OTSObjectNotExist application error.
func IsNotFound(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == ErrCodeObjectNotExist
}

// IsConditionCheckFailed reports whether err is a failed write condition.
func IsConditionCheckFailed(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == ErrCodeConditionCheckFail
}

func newValidationError(format string, args ...interface{}) *Error {
	return &Error{
		HTTPStatus: StatusClientValidation,
		Code:       ErrCodeParameterInvalid,
		Message:    fmt.Sprintf(format, args...),
	}
}

func newPseudoError(status int, code, format string, args ...interface{}) *Error {
	return &Error{
		HTTPStatus: status,
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
	}
}

// wrapf annotates a lower-level error (DNS, dial, TLS, io) with context while
// preserving its cause, using pkg/errors the way the rest of the pack does.
func wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

func cause(err error) error {
	return errors.Cause(err)
}
