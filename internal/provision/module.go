package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/mailprov/internal/logging"
	"github.com/edvin/mailprov/internal/mailcow"
	"github.com/edvin/mailprov/internal/metrics"
	"github.com/edvin/mailprov/internal/platform"
)

// MailAPI is the subset of the mailcow client the operations call.
// *mailcow.Client satisfies this interface.
type MailAPI interface {
	AddDomain(ctx context.Context, srv mailcow.Server, params mailcow.DomainParams) error
	AddDomainAdmin(ctx context.Context, srv mailcow.Server, params mailcow.DomainAdminParams) error
	EditDomain(ctx context.Context, srv mailcow.Server, domains []string, attr map[string]string) error
	EditDomainAdmin(ctx context.Context, srv mailcow.Server, usernames []string, attr map[string]string) error
	DeleteDomainAdmins(ctx context.Context, srv mailcow.Server, usernames []string) error
	DeleteDomains(ctx context.Context, srv mailcow.Server, domains []string) error
	DeleteMailboxes(ctx context.Context, srv mailcow.Server, usernames []string) error
	ListMailboxes(ctx context.Context, srv mailcow.Server, domain string) ([]mailcow.Mailbox, error)
	VmailStatus(ctx context.Context, srv mailcow.Server) (map[string]any, error)
}

// Shadow stores the last known remote administrator username.
// *customfield.ShadowStore satisfies this interface.
type Shadow interface {
	FieldName() string
	Get(snapshot map[string]string) string
	Set(ctx context.Context, serviceID int64, value string)
}

// ServiceStore persists login fields on the billing service record.
// SaveCredentials creates the record if needed; UpdateCredentials fails when
// the record does not exist. *billing.ServiceStore satisfies this interface.
type ServiceStore interface {
	SaveCredentials(ctx context.Context, serviceID int64, domain, username, encryptedPassword string) error
	UpdateCredentials(ctx context.Context, serviceID int64, username, encryptedPassword string) error
}

// Encrypter seals the generated administrator password before it is stored.
// *crypto.PasswordCipher satisfies this interface.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// Module runs lifecycle operations against a mailcow server. It holds no
// per-service state; the host serializes calls for a service.
type Module struct {
	api      MailAPI
	shadow   Shadow
	services ServiceStore
	cipher   Encrypter
	redactor *logging.Redactor
	logger   zerolog.Logger
}

func NewModule(api MailAPI, shadow Shadow, services ServiceStore, cipher Encrypter, logger zerolog.Logger) *Module {
	return &Module{
		api:      api,
		shadow:   shadow,
		services: services,
		cipher:   cipher,
		redactor: logging.NewRedactor(shadow.FieldName()),
		logger:   logger.With().Str("module", "mailcow").Logger(),
	}
}

// run executes fn as the named operation and converts its error to a Result.
func (m *Module) run(ctx context.Context, operation string, p Params, fn func(ctx context.Context, log zerolog.Logger) error) Result {
	if err := m.execute(ctx, operation, p, fn); err != nil {
		return Err(errorMessage(err))
	}
	return OK()
}

// execute runs fn with an operation-scoped logger, records metrics and logs
// the outcome. Failures are logged with the redacted parameter bag and an
// error text scrubbed of the bag's secret values. A panic in fn is reported
// as a failure.
func (m *Module) execute(ctx context.Context, operation string, p Params, fn func(ctx context.Context, log zerolog.Logger) error) (err error) {
	start := time.Now()
	log := m.logger.With().
		Str("operation", operation).
		Str("operation_id", platform.NewID()).
		Int64("service_id", p.ServiceID).
		Str("domain", p.Domain).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error in %s: %v", operation, r)
		}
		metrics.ObserveLifecycle(operation, err == nil, time.Since(start))
		if err != nil {
			bag := paramsBag(p)
			log.Error().
				Str(zerolog.ErrorFieldName, logging.Scrub(err.Error(), m.redactor.SensitiveValues(bag))).
				Str("error_kind", errorKind(err)).
				Interface("params", m.redactor.Redact(bag)).
				Msg("lifecycle operation failed")
			return
		}
		log.Info().
			Str("admin", logging.Mask(m.adminUsername(p))).
			Dur("duration", time.Since(start)).
			Msg("lifecycle operation succeeded")
	}()

	return fn(ctx, log)
}

// paramsBag returns the parameter bag as the generic map the host sent.
func paramsBag(p Params) map[string]any {
	fallback := map[string]any{"serviceid": p.ServiceID}
	data, err := json.Marshal(p)
	if err != nil {
		return fallback
	}
	var bag map[string]any
	if err := json.Unmarshal(data, &bag); err != nil {
		return fallback
	}
	return bag
}

func (m *Module) adminUsername(p Params) string {
	return ResolveAdminUsername(p, m.shadow.FieldName())
}

func requireDomain(p Params) error {
	if p.Domain == "" {
		return &ValidationError{Message: "Domain missing."}
	}
	return nil
}

// AdminUsername returns a new administrator username for a billing user.
func AdminUsername(userID int64) string {
	return fmt.Sprintf("admin-%s-%d", platform.RandomLowercase(5), userID)
}
