package mailcow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/edvin/mailprov/internal/metrics"
)

// DefaultTimeout bounds every API call.
const DefaultTimeout = 30 * time.Second

const userAgent = "mailprov/1.1"

const (
	EndpointAddDomain         = "add/domain"
	EndpointAddDomainAdmin    = "add/domain-admin"
	EndpointEditDomain        = "edit/domain"
	EndpointEditDomainAdmin   = "edit/domain-admin"
	EndpointDeleteDomain      = "delete/domain"
	EndpointDeleteDomainAdmin = "delete/domain-admin"
	EndpointDeleteMailbox     = "delete/mailbox"
	EndpointMailboxesPrefix   = "get/mailbox/all/"
	EndpointVmailStatus       = "get/status/vmail"
)

type Client struct {
	httpClient *http.Client
}

// NewClient returns a client whose calls time out after timeout. A zero
// timeout selects DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// Call sends one request to the mailcow API and interprets the response.
// It makes exactly one attempt.
func (c *Client) Call(ctx context.Context, srv Server, endpoint, method string, payload any) (*Response, error) {
	start := time.Now()
	resp, err := c.call(ctx, srv, endpoint, method, payload)
	metrics.ObserveMailcowCall(endpointLabel(endpoint), outcome(err), time.Since(start))
	return resp, err
}

func (c *Client) call(ctx context.Context, srv Server, endpoint, method string, payload any) (*Response, error) {
	var body io.Reader
	if hasBody(payload) {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, srv.BaseURL()+endpoint, body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("X-API-Key", srv.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("read response: %w", err)}
	}

	out := &Response{StatusCode: resp.StatusCode, Body: raw}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && json.Valid(trimmed) {
		out.Data = trimmed
	}

	first, hasFirst := out.FirstResult()

	if resp.StatusCode >= 400 {
		msg := string(raw)
		if hasFirst {
			if m := first.Message(); m != "" {
				msg = m
			}
		}
		return nil, &RemoteError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: msg}
	}

	if hasFirst && (first.Type == "error" || first.Type == "danger") {
		msg := first.Message()
		if msg == "" {
			msg = "unspecified error"
		}
		return nil, &RemoteError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: msg}
	}

	if isWrite(method, endpoint) {
		if !out.IsArray() || !hasFirst || first.Type != "success" {
			return nil, &ProtocolError{Endpoint: endpoint, Body: string(raw)}
		}
		return out, nil
	}

	if out.Data == nil && len(bytes.TrimSpace(raw)) > 0 {
		return nil, &ProtocolError{Endpoint: endpoint, Body: string(raw)}
	}
	return out, nil
}

// AddDomain creates a mail domain.
func (c *Client) AddDomain(ctx context.Context, srv Server, params DomainParams) error {
	_, err := c.Call(ctx, srv, EndpointAddDomain, http.MethodPost, params)
	return err
}

// AddDomainAdmin creates a domain administrator.
func (c *Client) AddDomainAdmin(ctx context.Context, srv Server, params DomainAdminParams) error {
	_, err := c.Call(ctx, srv, EndpointAddDomainAdmin, http.MethodPost, params)
	return err
}

// EditDomain sets attributes on the given domains.
func (c *Client) EditDomain(ctx context.Context, srv Server, domains []string, attr map[string]string) error {
	_, err := c.Call(ctx, srv, EndpointEditDomain, http.MethodPost, EditRequest{Items: domains, Attr: attr})
	return err
}

// EditDomainAdmin sets attributes on the given domain administrators.
func (c *Client) EditDomainAdmin(ctx context.Context, srv Server, usernames []string, attr map[string]string) error {
	_, err := c.Call(ctx, srv, EndpointEditDomainAdmin, http.MethodPost, EditRequest{Items: usernames, Attr: attr})
	return err
}

// DeleteDomainAdmins removes domain administrators. The body is the bare
// list of usernames.
func (c *Client) DeleteDomainAdmins(ctx context.Context, srv Server, usernames []string) error {
	_, err := c.Call(ctx, srv, EndpointDeleteDomainAdmin, http.MethodPost, usernames)
	return err
}

// DeleteDomains removes mail domains. mailcow refuses a domain that still
// has mailboxes.
func (c *Client) DeleteDomains(ctx context.Context, srv Server, domains []string) error {
	_, err := c.Call(ctx, srv, EndpointDeleteDomain, http.MethodPost, domains)
	return err
}

// DeleteMailboxes removes mailboxes by full address.
func (c *Client) DeleteMailboxes(ctx context.Context, srv Server, usernames []string) error {
	_, err := c.Call(ctx, srv, EndpointDeleteMailbox, http.MethodPost, usernames)
	return err
}

// ListMailboxes returns every mailbox of a domain. mailcow answers with an
// array, a single object, or an empty object when the domain has none.
func (c *Client) ListMailboxes(ctx context.Context, srv Server, domain string) ([]Mailbox, error) {
	resp, err := c.Call(ctx, srv, EndpointMailboxesPrefix+url.PathEscape(domain), http.MethodGet, nil)
	if err != nil {
		return nil, err
	}

	if resp.IsArray() {
		var mailboxes []Mailbox
		if err := resp.Decode(&mailboxes); err != nil {
			return nil, err
		}
		return mailboxes, nil
	}

	var single Mailbox
	if err := resp.Decode(&single); err != nil {
		return nil, err
	}
	if single.Username == "" {
		return nil, nil
	}
	return []Mailbox{single}, nil
}

// VmailStatus returns the vmail volume status. It is the cheapest
// authenticated read the API offers.
func (c *Client) VmailStatus(ctx context.Context, srv Server) (map[string]any, error) {
	resp, err := c.Call(ctx, srv, EndpointVmailStatus, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	status := map[string]any{}
	if resp.IsArray() {
		return status, nil
	}
	if err := resp.Decode(&status); err != nil {
		return nil, err
	}
	return status, nil
}

// isWrite reports whether a call must answer with a success record.
func isWrite(method, endpoint string) bool {
	if method != http.MethodPost && method != http.MethodDelete {
		return false
	}
	return !strings.HasPrefix(endpoint, "get/")
}

// endpointLabel drops the per-domain segment of get/mailbox/all/<domain>.
func endpointLabel(endpoint string) string {
	if strings.HasPrefix(endpoint, EndpointMailboxesPrefix) {
		return strings.TrimSuffix(EndpointMailboxesPrefix, "/")
	}
	return endpoint
}

func outcome(err error) string {
	var (
		transportErr *TransportError
		remoteErr    *RemoteError
		protocolErr  *ProtocolError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &transportErr):
		return "transport_error"
	case errors.As(err, &remoteErr):
		return "remote_error"
	case errors.As(err, &protocolErr):
		return "protocol_error"
	}
	return "error"
}

func hasBody(payload any) bool {
	if payload == nil {
		return false
	}
	v := reflect.ValueOf(payload)
	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return v.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !v.IsNil()
	}
	return true
}
