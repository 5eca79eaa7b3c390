package request

import (
	"github.com/edvin/mailprov/internal/mailcow"
)

// TestConnection is the body of a connection test. Only the server
// descriptor is read.
type TestConnection struct {
	Server mailcow.Server `json:"server"`
}
