package provision

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/edvin/mailprov/internal/mailcow"
	"github.com/edvin/mailprov/internal/platform"
)

// CreateAccount creates the mail domain and its administrator, then records
// the administrator on the service. A failure after the domain exists leaves
// it in place; there is no rollback.
func (m *Module) CreateAccount(ctx context.Context, p Params) Result {
	return m.run(ctx, "CreateAccount", p, func(ctx context.Context, log zerolog.Logger) error {
		if err := requireDomain(p); err != nil {
			return err
		}
		limits, err := LimitsFromOptions(p.ConfigOptions)
		if err != nil {
			return err
		}

		username := AdminUsername(p.UserID)
		password := platform.StrongPassword(platform.PasswordLength)
		encrypted, err := m.cipher.Encrypt(password)
		if err != nil {
			return fmt.Errorf("encrypt admin password: %w", err)
		}

		if err := m.api.AddDomain(ctx, p.Server, mailcow.DomainParams{
			Domain:      p.Domain,
			Description: p.Client.Description(),
			Aliases:     strconv.Itoa(limits.Aliases),
			DefQuota:    strconv.Itoa(DefaultMailboxQuotaMB),
			MaxQuota:    strconv.Itoa(limits.QuotaMB),
			Quota:       strconv.Itoa(limits.QuotaMB),
			Mailboxes:   strconv.Itoa(limits.Mailboxes),
			Active:      "1",
		}); err != nil {
			return fmt.Errorf("add domain: %w", err)
		}

		if err := m.api.AddDomainAdmin(ctx, p.Server, mailcow.DomainAdminParams{
			Username:  username,
			Password:  password,
			Password2: password,
			Domains:   p.Domain,
			Active:    "1",
		}); err != nil {
			log.Warn().Msg("domain created without administrator, manual cleanup required")
			return fmt.Errorf("add domain admin: %w", err)
		}

		if err := m.services.SaveCredentials(ctx, p.ServiceID, p.Domain, username, encrypted); err != nil {
			return err
		}
		m.shadow.Set(ctx, p.ServiceID, username)

		log.Debug().Int("quota_mb", limits.QuotaMB).Int("mailboxes", limits.Mailboxes).Int("aliases", limits.Aliases).Msg("domain provisioned")
		return nil
	})
}

// SuspendAccount deactivates the domain and its administrator.
func (m *Module) SuspendAccount(ctx context.Context, p Params) Result {
	return m.run(ctx, "SuspendAccount", p, func(ctx context.Context, log zerolog.Logger) error {
		return m.setActive(ctx, log, p, false)
	})
}

// UnsuspendAccount reactivates the domain and its administrator.
func (m *Module) UnsuspendAccount(ctx context.Context, p Params) Result {
	return m.run(ctx, "UnsuspendAccount", p, func(ctx context.Context, log zerolog.Logger) error {
		return m.setActive(ctx, log, p, true)
	})
}

// setActive flips the active flag of the domain, then of the administrator
// when one can be resolved.
func (m *Module) setActive(ctx context.Context, log zerolog.Logger, p Params, active bool) error {
	if err := requireDomain(p); err != nil {
		return err
	}

	attr := map[string]string{"active": "0"}
	if active {
		attr["active"] = "1"
	}

	if err := m.api.EditDomain(ctx, p.Server, []string{p.Domain}, attr); err != nil {
		return fmt.Errorf("edit domain: %w", err)
	}

	admin := m.adminUsername(p)
	if admin == "" {
		log.Debug().Msg("no administrator username, skipping administrator update")
		return nil
	}
	if err := m.api.EditDomainAdmin(ctx, p.Server, []string{admin}, attr); err != nil {
		return fmt.Errorf("edit domain admin: %w", err)
	}
	return nil
}

// TerminateAccount deletes the administrator, every mailbox and the domain,
// then clears the login fields and the shadow username. Completed steps are
// not rolled back when a later one fails.
func (m *Module) TerminateAccount(ctx context.Context, p Params) Result {
	return m.run(ctx, "TerminateAccount", p, func(ctx context.Context, log zerolog.Logger) error {
		if err := requireDomain(p); err != nil {
			return err
		}

		if admin := m.adminUsername(p); admin != "" {
			if err := m.api.DeleteDomainAdmins(ctx, p.Server, []string{admin}); err != nil {
				return fmt.Errorf("delete domain admin: %w", err)
			}
		} else {
			log.Debug().Msg("no administrator username, skipping administrator deletion")
		}

		mailboxes, err := m.api.ListMailboxes(ctx, p.Server, p.Domain)
		if err != nil {
			return fmt.Errorf("list mailboxes: %w", err)
		}
		usernames := make([]string, 0, len(mailboxes))
		for _, mb := range mailboxes {
			if mb.Username != "" {
				usernames = append(usernames, mb.Username)
			}
		}
		if len(usernames) > 0 {
			if err := m.api.DeleteMailboxes(ctx, p.Server, usernames); err != nil {
				return fmt.Errorf("delete mailboxes: %w", err)
			}
		}

		if err := m.api.DeleteDomains(ctx, p.Server, []string{p.Domain}); err != nil {
			return fmt.Errorf("delete domain: %w", err)
		}

		if err := m.services.UpdateCredentials(ctx, p.ServiceID, "", ""); err != nil {
			return err
		}
		m.shadow.Set(ctx, p.ServiceID, "")

		log.Debug().Int("mailboxes_deleted", len(usernames)).Msg("domain removed")
		return nil
	})
}

// ChangePackage pushes the current plan limits to the domain. The default
// mailbox quota is left as is.
func (m *Module) ChangePackage(ctx context.Context, p Params) Result {
	return m.run(ctx, "ChangePackage", p, func(ctx context.Context, log zerolog.Logger) error {
		if err := requireDomain(p); err != nil {
			return err
		}
		limits, err := LimitsFromOptions(p.ConfigOptions)
		if err != nil {
			return err
		}
		if err := m.api.EditDomain(ctx, p.Server, []string{p.Domain}, limits.DomainAttributes()); err != nil {
			return fmt.Errorf("edit domain: %w", err)
		}
		return nil
	})
}

// ChangePassword sets a new administrator password on the remote side only.
// The encrypted copy on the service record is not updated.
func (m *Module) ChangePassword(ctx context.Context, p Params) Result {
	return m.run(ctx, "ChangePassword", p, func(ctx context.Context, log zerolog.Logger) error {
		admin := m.adminUsername(p)
		if admin == "" || p.Password == "" {
			return &ValidationError{Message: "Username or new password missing."}
		}
		if err := m.api.EditDomainAdmin(ctx, p.Server, []string{admin}, map[string]string{
			"password":  p.Password,
			"password2": p.Password,
		}); err != nil {
			return fmt.Errorf("edit domain admin: %w", err)
		}
		return nil
	})
}

// SyncUsername renames the remote administrator from the shadow username to
// the billing username, then records the new name in the shadow field.
func (m *Module) SyncUsername(ctx context.Context, p Params) Result {
	return m.run(ctx, "SyncUsername", p, func(ctx context.Context, log zerolog.Logger) error {
		oldName := m.shadow.Get(p.CustomFields)
		newName := p.Username

		if oldName == "" {
			return &ValidationError{Message: "Old (internal) username not found. Unable to sync."}
		}
		if newName == "" {
			return &ValidationError{Message: "New username cannot be empty."}
		}
		if oldName == newName {
			log.Debug().Msg("usernames already in sync")
			return nil
		}

		if err := m.api.EditDomainAdmin(ctx, p.Server, []string{oldName}, map[string]string{
			"username_new": newName,
		}); err != nil {
			return fmt.Errorf("rename domain admin: %w", err)
		}
		m.shadow.Set(ctx, p.ServiceID, newName)
		return nil
	})
}

// TestConnection issues one authenticated read against the server.
func (m *Module) TestConnection(ctx context.Context, p Params) ConnectionResult {
	err := m.execute(ctx, "TestConnection", p, func(ctx context.Context, log zerolog.Logger) error {
		_, err := m.api.VmailStatus(ctx, p.Server)
		return err
	})
	if err != nil {
		return ConnectionResult{Success: false, Error: errorMessage(err)}
	}
	return ConnectionResult{Success: true}
}

// CustomAction runs the operation an admin button triggers. action is the
// operation name or the button label. It reports false for anything else.
func (m *Module) CustomAction(ctx context.Context, action string, p Params) (Result, bool) {
	if op, ok := AdminCustomButtons()[action]; ok {
		action = op
	}
	switch action {
	case "SyncUsername":
		return m.SyncUsername(ctx, p), true
	}
	return Result{}, false
}
