package mailcow

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Server is the connection descriptor for one mailcow instance. It is
// supplied by the host on every call.
type Server struct {
	Hostname string `json:"hostname" yaml:"hostname" validate:"required"`
	APIKey   string `json:"api_key" yaml:"api_key" validate:"required"`
	Secure   bool   `json:"secure" yaml:"secure"`
}

// BaseURL returns the API root for the server.
func (s Server) BaseURL() string {
	scheme := "http"
	if s.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/api/v1/", scheme, strings.TrimSpace(s.Hostname))
}

// DomainParams is the add/domain payload. Numeric attributes are decimal
// strings on the wire.
type DomainParams struct {
	Domain      string `json:"domain"`
	Description string `json:"description"`
	Aliases     string `json:"aliases"`
	DefQuota    string `json:"defquota"`
	MaxQuota    string `json:"maxquota"`
	Quota       string `json:"quota"`
	Mailboxes   string `json:"mailboxes"`
	Active      string `json:"active"`
}

// DomainAdminParams is the add/domain-admin payload.
type DomainAdminParams struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	Domains   string `json:"domains"`
	Active    string `json:"active"`
}

// EditRequest is the body shared by the edit/* endpoints.
type EditRequest struct {
	Items []string          `json:"items"`
	Attr  map[string]string `json:"attr"`
}

// Mailbox is the subset of a get/mailbox entry used by this module.
type Mailbox struct {
	Username string `json:"username"`
	Domain   string `json:"domain"`
	Name     string `json:"name"`
}

// Result is one record of the array returned by write endpoints.
type Result struct {
	Type string          `json:"type"`
	Msg  json.RawMessage `json:"msg"`
}

// Message renders msg, which mailcow sends either as a string or as a list.
func (r Result) Message() string {
	if len(r.Msg) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(r.Msg, &s); err == nil {
		return s
	}

	var list []any
	if err := json.Unmarshal(r.Msg, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if str, ok := item.(string); ok {
				parts = append(parts, str)
			} else {
				parts = append(parts, fmt.Sprint(item))
			}
		}
		return strings.Join(parts, ", ")
	}

	return string(r.Msg)
}

// Response is a parsed API response. Body keeps the raw bytes; Data is the
// decoded JSON value (nil when the body is empty).
type Response struct {
	StatusCode int
	Body       []byte
	Data       json.RawMessage
}

// IsArray reports whether the decoded payload is a JSON array.
func (r *Response) IsArray() bool {
	return len(r.Data) > 0 && r.Data[0] == '['
}

// Results decodes the payload as a list of result records. Elements that are
// not objects decode as zero Results.
func (r *Response) Results() []Result {
	if !r.IsArray() {
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(r.Data, &raw); err != nil {
		return nil
	}
	results := make([]Result, len(raw))
	for i, item := range raw {
		_ = json.Unmarshal(item, &results[i])
	}
	return results
}

// FirstResult returns the leading result record. A bare object carrying a
// "type" field counts as a single result, which is how mailcow reports
// authentication failures.
func (r *Response) FirstResult() (Result, bool) {
	if r.IsArray() {
		results := r.Results()
		if len(results) == 0 {
			return Result{}, false
		}
		return results[0], true
	}
	if len(r.Data) > 0 && r.Data[0] == '{' {
		var res Result
		if err := json.Unmarshal(r.Data, &res); err == nil && res.Type != "" {
			return res, true
		}
	}
	return Result{}, false
}

// Decode unmarshals the payload into v.
func (r *Response) Decode(v any) error {
	if len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
