package reconcile

// Reason classifies a terminal pipeline error so the transport layer can
// map it to an HTTP status. The set is closed: a transport handed a Reason
// it does not recognize must treat that as a programmer error.
type Reason string

const (
	// ReasonBadRequest means the payload was not decodable at all.
	ReasonBadRequest Reason = "bad_request"

	// ReasonUnprocessable means the payload decoded but violated the
	// request schema.
	ReasonUnprocessable Reason = "unprocessable_entity"

	// ReasonInternal means a pipeline stage failed against storage.
	ReasonInternal Reason = "internal"
)

// Error is a terminal pipeline error. The first stage to produce one
// short-circuits the rest of the pipeline.
type Error struct {
	Message string
	Reason  Reason
}

func (e *Error) Error() string {
	return e.Message
}

func errBadRequest(msg string) *Error {
	return &Error{Message: msg, Reason: ReasonBadRequest}
}

func errUnprocessable(msg string) *Error {
	return &Error{Message: msg, Reason: ReasonUnprocessable}
}

func errInternal(msg string) *Error {
	return &Error{Message: msg, Reason: ReasonInternal}
}
