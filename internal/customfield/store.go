package customfield

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ScopeService is the field type of custom fields attached to a billing
// service (a "product" field in the host's vocabulary).
const ScopeService = "product"

// FieldStore is the host's custom field storage.
type FieldStore interface {
	// FieldID resolves a field definition by name and scope.
	FieldID(ctx context.Context, name, scope string) (int64, bool, error)
	// ValueID finds the value row of a field for one service.
	ValueID(ctx context.Context, fieldID, serviceID int64) (int64, bool, error)
	InsertValue(ctx context.Context, fieldID, serviceID int64, value string) error
	UpdateValue(ctx context.Context, valueID int64, value string) error
}

// DB defines the database operations used by PostgresStore.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements FieldStore on the custom_fields and
// custom_field_values tables.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FieldID(ctx context.Context, name, scope string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`SELECT id FROM custom_fields WHERE field_name = $1 AND field_type = $2 ORDER BY id LIMIT 1`,
		name, scope,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get custom field %s: %w", name, err)
	}
	return id, true, nil
}

func (s *PostgresStore) ValueID(ctx context.Context, fieldID, serviceID int64) (int64, bool, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`SELECT id FROM custom_field_values WHERE field_id = $1 AND service_id = $2`,
		fieldID, serviceID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get custom field value for service %d: %w", serviceID, err)
	}
	return id, true, nil
}

func (s *PostgresStore) InsertValue(ctx context.Context, fieldID, serviceID int64, value string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO custom_field_values (field_id, service_id, value) VALUES ($1, $2, $3)`,
		fieldID, serviceID, value,
	)
	if err != nil {
		return fmt.Errorf("insert custom field value for service %d: %w", serviceID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateValue(ctx context.Context, valueID int64, value string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE custom_field_values SET value = $1, updated_at = now() WHERE id = $2`,
		value, valueID,
	)
	if err != nil {
		return fmt.Errorf("update custom field value %d: %w", valueID, err)
	}
	return nil
}

// DefineField creates a field definition unless one with the same name and
// scope exists, and returns its id.
func (s *PostgresStore) DefineField(ctx context.Context, name, scope string) (int64, error) {
	id, ok, err := s.FieldID(ctx, name, scope)
	if err != nil {
		return 0, err
	}
	if ok {
		return id, nil
	}

	err = s.db.QueryRow(ctx,
		`INSERT INTO custom_fields (field_name, field_type) VALUES ($1, $2) RETURNING id`,
		name, scope,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert custom field %s: %w", name, err)
	}
	return id, nil
}

// Snapshot returns the service-scoped custom field values of a service keyed
// by field name, in the shape the host passes with lifecycle calls.
func (s *PostgresStore) Snapshot(ctx context.Context, serviceID int64) (map[string]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT f.field_name, v.value
		 FROM custom_field_values v
		 JOIN custom_fields f ON f.id = v.field_id
		 WHERE v.service_id = $1 AND f.field_type = $2
		 ORDER BY f.id`,
		serviceID, ScopeService,
	)
	if err != nil {
		return nil, fmt.Errorf("list custom fields for service %d: %w", serviceID, err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan custom field row: %w", err)
		}
		out[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate custom field rows: %w", err)
	}
	return out, nil
}
