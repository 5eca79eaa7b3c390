package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB defines the database operations used by ServiceStore.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ServiceStore reads and writes the login fields of billing service records.
type ServiceStore struct {
	db DB
}

func NewServiceStore(db DB) *ServiceStore {
	return &ServiceStore{db: db}
}

// ErrServiceNotFound is returned when no service record has the given id.
var ErrServiceNotFound = errors.New("service not found")

// SaveCredentials records the domain, username and encrypted password of a
// service, creating the record when the billing database has none.
func (s *ServiceStore) SaveCredentials(ctx context.Context, serviceID int64, domain, username, encryptedPassword string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO services (id, domain, username, password, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (id) DO UPDATE
		 SET domain = EXCLUDED.domain, username = EXCLUDED.username,
		     password = EXCLUDED.password, updated_at = now()`,
		serviceID, domain, username, encryptedPassword,
	)
	if err != nil {
		return fmt.Errorf("save credentials for service %d: %w", serviceID, err)
	}
	return nil
}

// UpdateCredentials sets the username and encrypted password of an existing
// service. Empty strings clear them.
func (s *ServiceStore) UpdateCredentials(ctx context.Context, serviceID int64, username, encryptedPassword string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE services SET username = $1, password = $2, updated_at = now() WHERE id = $3`,
		username, encryptedPassword, serviceID,
	)
	if err != nil {
		return fmt.Errorf("update credentials for service %d: %w", serviceID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update credentials for service %d: %w", serviceID, ErrServiceNotFound)
	}
	return nil
}

// Service is the part of a billing service record the module touches.
// Password holds the encrypted administrator password.
type Service struct {
	ID       int64
	Domain   string
	Username string
	Password string
}

// Get returns one service record.
func (s *ServiceStore) Get(ctx context.Context, serviceID int64) (*Service, error) {
	var svc Service
	err := s.db.QueryRow(ctx,
		`SELECT id, domain, username, password FROM services WHERE id = $1`, serviceID,
	).Scan(&svc.ID, &svc.Domain, &svc.Username, &svc.Password)
	if err != nil {
		return nil, fmt.Errorf("get service %d: %w", serviceID, err)
	}
	return &svc, nil
}
