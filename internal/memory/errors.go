package memory

import "fmt"

// Kind classifies a memory-core error into the taxonomy transports translate
// into status codes / tool-error shapes. It is the kind that is contractual,
// not any particular Go type.
type Kind string

const (
	InvalidArgument      Kind = "invalid_argument"
	NotFound             Kind = "not_found"
	FeatureDisabled      Kind = "feature_disabled"
	StorageError         Kind = "storage_error"
	EmbeddingUnavailable Kind = "embedding_unavailable"
	CorruptLedger        Kind = "corrupt_ledger"
)

// Error pairs a Kind with a human-readable message. Transports inspect Kind
// to pick a status code; the message is safe to surface to callers.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, defaulting to StorageError for anything unrecognized — an
// unclassified failure is treated as the store's fault, not the caller's.
func KindOf(err error) Kind {
	var e *Error
	if asError(err, &e) {
		return e.Kind
	}
	return StorageError
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
