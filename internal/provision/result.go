package provision

import (
	"errors"

	"github.com/edvin/mailprov/internal/mailcow"
)

// SuccessMessage is what a successful operation reports to the host.
const SuccessMessage = "success"

// Result is the outcome of a lifecycle operation.
type Result struct {
	ok      bool
	message string
}

func OK() Result {
	return Result{ok: true}
}

func Err(message string) Result {
	return Result{message: message}
}

func (r Result) IsOK() bool {
	return r.ok
}

// String renders the result the way the host expects it: "success" or the
// error message.
func (r Result) String() string {
	if r.ok {
		return SuccessMessage
	}
	return r.message
}

// ConnectionResult is the outcome of TestConnection.
type ConnectionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ValidationError means required local input is missing or malformed. No
// remote call has been made when it is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// errorMessage returns the host-facing message for err. Typed errors report
// their own text without the step context added by wrapping.
func errorMessage(err error) string {
	var (
		validationErr *ValidationError
		transportErr  *mailcow.TransportError
		remoteErr     *mailcow.RemoteError
		protocolErr   *mailcow.ProtocolError
	)
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case errors.As(err, &transportErr):
		return transportErr.Error()
	case errors.As(err, &remoteErr):
		return remoteErr.Error()
	case errors.As(err, &protocolErr):
		return protocolErr.Error()
	}
	return err.Error()
}

func errorKind(err error) string {
	var (
		validationErr *ValidationError
		transportErr  *mailcow.TransportError
		remoteErr     *mailcow.RemoteError
		protocolErr   *mailcow.ProtocolError
	)
	switch {
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &remoteErr):
		return "remote"
	case errors.As(err, &protocolErr):
		return "protocol"
	}
	return "internal"
}
