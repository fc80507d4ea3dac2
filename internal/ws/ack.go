package ws

// Ack error codes returned to the originating session on a failed send.
// These never reach the transport as a connection error.
const (
	CodeMissingFields     = "MISSING_FIELDS"
	CodeContentTooLong    = "CONTENT_TOO_LONG"
	CodeAuthRequired      = "AUTH_REQUIRED"
	CodeAuthInvalid       = "AUTH_INVALID"
	CodeSenderMismatch    = "SENDER_MISMATCH"
	CodePersistenceFailed = "PERSISTENCE_FAILED"
)

type AckError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *AckError) Error() string { return e.Code + ": " + e.Message }

func ackErr(code, msg string) *AckError {
	return &AckError{Code: code, Message: msg}
}
