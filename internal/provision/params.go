package provision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/edvin/mailprov/internal/mailcow"
)

// Config option names as configured on the billing product.
const (
	OptionTotalQuota = "Total Domain Quota"
	OptionMailboxes  = "Max Mailboxes"
	OptionAliases    = "Max Aliases"
)

// Plan defaults applied when an option is absent or empty.
const (
	DefaultQuotaMB   = 5120
	DefaultMailboxes = 5
	DefaultAliases   = 10

	// DefaultMailboxQuotaMB is the per-mailbox quota set on new domains.
	DefaultMailboxQuotaMB = 1024
)

// Params is the parameter bag the host passes with every lifecycle call.
type Params struct {
	ServiceID     int64          `json:"serviceid" validate:"required"`
	UserID        int64          `json:"userid"`
	Domain        string         `json:"domain"`
	Username      string         `json:"username"`
	Password      string         `json:"password,omitempty"`
	ConfigOptions Values         `json:"configoptions"`
	Client        ClientDetails  `json:"clientsdetails"`
	CustomFields  Values         `json:"customfields"`
	Server        mailcow.Server `json:"server"`
}

// UnmarshalJSON accepts the service and user ids as JSON numbers or as
// decimal strings; hosts built on form data send them quoted.
func (p *Params) UnmarshalJSON(data []byte) error {
	type plain Params
	aux := struct {
		*plain
		ServiceID hostInt `json:"serviceid"`
		UserID    hostInt `json:"userid"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.ServiceID = int64(aux.ServiceID)
	p.UserID = int64(aux.UserID)
	return nil
}

// hostInt is an integer sent either unquoted or as a decimal string. null
// and "" decode as zero.
type hostInt int64

func (n *hostInt) UnmarshalJSON(data []byte) error {
	text := string(bytes.TrimSpace(data))
	if text == "null" {
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil
		}
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s", string(data))
	}
	*n = hostInt(v)
	return nil
}

type ClientDetails struct {
	FirstName   string `json:"firstname"`
	LastName    string `json:"lastname"`
	CompanyName string `json:"companyname"`
	Email       string `json:"email"`
}

// Description returns the company name, or "first last" when the client has
// none.
func (c ClientDetails) Description() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return c.FirstName + " " + c.LastName
}

// Values is a string-keyed bag of host values. Hosts send numbers and
// booleans unquoted, so decoding accepts any scalar and keeps its text.
type Values map[string]string

func (v *Values) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	out := make(Values, len(raw))
	for k, item := range raw {
		switch val := item.(type) {
		case nil:
			continue
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			out[k] = "0"
			if val {
				out[k] = "1"
			}
		default:
			return fmt.Errorf("value of %q is not a scalar", k)
		}
	}
	*v = out
	return nil
}

// Limits are the plan limits pushed to a mail domain.
type Limits struct {
	QuotaMB   int
	Mailboxes int
	Aliases   int
}

// LimitsFromOptions reads the plan limits from config options, applying the
// defaults for absent or empty options.
func LimitsFromOptions(opts Values) (Limits, error) {
	quota, err := intOption(opts, OptionTotalQuota, DefaultQuotaMB)
	if err != nil {
		return Limits{}, err
	}
	mailboxes, err := intOption(opts, OptionMailboxes, DefaultMailboxes)
	if err != nil {
		return Limits{}, err
	}
	aliases, err := intOption(opts, OptionAliases, DefaultAliases)
	if err != nil {
		return Limits{}, err
	}
	return Limits{QuotaMB: quota, Mailboxes: mailboxes, Aliases: aliases}, nil
}

// intOption parses the leading integer of an option value, so "10240|10 GB"
// reads as 10240.
func intOption(opts Values, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(opts[name])
	if raw == "" {
		return fallback, nil
	}

	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, &ValidationError{Message: fmt.Sprintf("Invalid value %q for config option %q.", raw, name)}
	}

	n, err := strconv.Atoi(raw[:end])
	if err != nil {
		return 0, &ValidationError{Message: fmt.Sprintf("Invalid value %q for config option %q.", raw, name)}
	}
	return n, nil
}

// DomainAttributes renders the limits as edit/domain attributes.
func (l Limits) DomainAttributes() map[string]string {
	return map[string]string{
		"maxquota":  strconv.Itoa(l.QuotaMB),
		"quota":     strconv.Itoa(l.QuotaMB),
		"mailboxes": strconv.Itoa(l.Mailboxes),
		"aliases":   strconv.Itoa(l.Aliases),
	}
}

// ResolveAdminUsername returns the remote administrator username of a
// service: the shadow field value, or the billing username when the shadow
// field is empty.
func ResolveAdminUsername(p Params, shadowField string) string {
	if shadow := p.CustomFields[shadowField]; shadow != "" {
		return shadow
	}
	return p.Username
}
