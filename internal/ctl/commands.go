package ctl

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/edvin/mailprov/internal/billing"
	"github.com/edvin/mailprov/internal/mailcow"
	"github.com/edvin/mailprov/internal/provision"
)

// MailboxLister is the mailcow client as used by the read commands.
type MailboxLister interface {
	ListMailboxes(ctx context.Context, srv mailcow.Server, domain string) ([]mailcow.Mailbox, error)
	VmailStatus(ctx context.Context, srv mailcow.Server) (map[string]any, error)
}

// Status prints the vmail volume status of a server as YAML.
func Status(ctx context.Context, api MailboxLister, srv mailcow.Server, w io.Writer) error {
	status, err := api.VmailStatus(ctx, srv)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(status)
}

// Mailboxes prints the mailboxes of a domain as a table.
func Mailboxes(ctx context.Context, api MailboxLister, srv mailcow.Server, domain string, w io.Writer) error {
	if domain == "" {
		return fmt.Errorf("domain is required")
	}
	mailboxes, err := api.ListMailboxes(ctx, srv, domain)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tNAME")
	for _, mb := range mailboxes {
		fmt.Fprintf(tw, "%s\t%s\n", mb.Username, mb.Name)
	}
	return tw.Flush()
}

// ServiceReader reads billing service records.
type ServiceReader interface {
	Get(ctx context.Context, serviceID int64) (*billing.Service, error)
}

// Decrypter opens the stored administrator password.
type Decrypter interface {
	Decrypt(encoded string) (string, error)
}

// Credentials prints the administrator login stored on a service.
func Credentials(ctx context.Context, services ServiceReader, cipher Decrypter, serviceID int64, w io.Writer) error {
	svc, err := services.Get(ctx, serviceID)
	if err != nil {
		return err
	}
	if svc.Username == "" {
		return fmt.Errorf("service %d has no administrator", serviceID)
	}

	password := ""
	if svc.Password != "" {
		password, err = cipher.Decrypt(svc.Password)
		if err != nil {
			return fmt.Errorf("decrypt password of service %d: %w", serviceID, err)
		}
	}

	fmt.Fprintf(w, "Domain:   %s\n", svc.Domain)
	fmt.Fprintf(w, "Username: %s\n", svc.Username)
	fmt.Fprintf(w, "Password: %s\n", password)
	return nil
}

// SnapshotReader returns the custom field values of a service.
type SnapshotReader interface {
	Snapshot(ctx context.Context, serviceID int64) (map[string]string, error)
}

// ServiceParams builds the parameter bag the host would send for a service
// from its stored record and custom fields.
func ServiceParams(ctx context.Context, services ServiceReader, fields SnapshotReader, serviceID int64, srv mailcow.Server) (provision.Params, error) {
	svc, err := services.Get(ctx, serviceID)
	if err != nil {
		return provision.Params{}, err
	}
	snapshot, err := fields.Snapshot(ctx, serviceID)
	if err != nil {
		return provision.Params{}, err
	}
	return provision.Params{
		ServiceID:    svc.ID,
		Domain:       svc.Domain,
		Username:     svc.Username,
		CustomFields: snapshot,
		Server:       srv,
	}, nil
}

// ParseOptions turns repeated "Name=value" flags into config options.
func ParseOptions(pairs []string) (provision.Values, error) {
	opts := provision.Values{}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("option %q is not Name=value", pair)
		}
		opts[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return opts, nil
}

// Lifecycle is the set of operations the CLI can invoke by name.
type Lifecycle interface {
	SuspendAccount(ctx context.Context, p provision.Params) provision.Result
	UnsuspendAccount(ctx context.Context, p provision.Params) provision.Result
	TerminateAccount(ctx context.Context, p provision.Params) provision.Result
	ChangePackage(ctx context.Context, p provision.Params) provision.Result
	ChangePassword(ctx context.Context, p provision.Params) provision.Result
	SyncUsername(ctx context.Context, p provision.Params) provision.Result
}

// RunLifecycle invokes the named operation and prints its result. A failed
// operation is returned as an error carrying the result message.
func RunLifecycle(ctx context.Context, m Lifecycle, action string, p provision.Params, w io.Writer) error {
	ops := map[string]func(context.Context, provision.Params) provision.Result{
		"suspend":         m.SuspendAccount,
		"unsuspend":       m.UnsuspendAccount,
		"terminate":       m.TerminateAccount,
		"change-package":  m.ChangePackage,
		"change-password": m.ChangePassword,
		"sync-username":   m.SyncUsername,
	}
	op, ok := ops[action]
	if !ok {
		return fmt.Errorf("unknown action %q", action)
	}

	result := op(ctx, p)
	if !result.IsOK() {
		return fmt.Errorf("%s failed: %s", action, result)
	}
	fmt.Fprintf(w, "%s: %s\n", action, result)
	return nil
}
