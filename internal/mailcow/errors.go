package mailcow

import "fmt"

// TransportError means no response was received from the server.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return "connection error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError means mailcow rejected the request, either with an HTTP error
// status or with an error/danger result record.
type RemoteError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.StatusCode >= 400 {
		return fmt.Sprintf("MailCow API error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return "MailCow API error: " + e.Message
}

// ProtocolError means the response did not carry the success record a write
// endpoint must return, or could not be parsed at all.
type ProtocolError struct {
	Endpoint string
	Body     string
}

func (e *ProtocolError) Error() string {
	return "unexpected response from MailCow: " + e.Body
}
