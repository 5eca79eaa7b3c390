package customfield

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// ---------- Mock DB ----------

// mockDB implements the DB interface for testing.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// ---------- Mock Row ----------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// ---------- Mock Rows ----------

// mockRows implements pgx.Rows for testing.
// It iterates through a list of scan functions, one per row.
type mockRows struct {
	callIndex int
	scanFuncs []func(dest ...any) error
	err       error
}

func newMockRows(scanFuncs ...func(dest ...any) error) *mockRows {
	return &mockRows{scanFuncs: scanFuncs}
}

func (m *mockRows) Next() bool {
	return m.callIndex < len(m.scanFuncs)
}

func (m *mockRows) Scan(dest ...any) error {
	if m.callIndex < len(m.scanFuncs) {
		fn := m.scanFuncs[m.callIndex]
		m.callIndex++
		return fn(dest...)
	}
	return nil
}

func (m *mockRows) Err() error                                   { return m.err }
func (m *mockRows) Close()                                       {}
func (m *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockRows) RawValues() [][]byte                          { return nil }
func (m *mockRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                              { return nil }

// ---------- In-memory FieldStore ----------

// memStore is a FieldStore backed by maps, keyed like the real tables.
type memStore struct {
	fields map[string]int64 // name|scope -> field id
	values map[int64]*memValue
	nextID int64
	failOn string
}

type memValue struct {
	fieldID   int64
	serviceID int64
	value     string
}

func newMemStore() *memStore {
	return &memStore{fields: map[string]int64{}, values: map[int64]*memValue{}, nextID: 100}
}

func (s *memStore) define(name, scope string) int64 {
	s.nextID++
	s.fields[name+"|"+scope] = s.nextID
	return s.nextID
}

func (s *memStore) FieldID(_ context.Context, name, scope string) (int64, bool, error) {
	if s.failOn == "FieldID" {
		return 0, false, errors.New("connection reset")
	}
	id, ok := s.fields[name+"|"+scope]
	return id, ok, nil
}

func (s *memStore) ValueID(_ context.Context, fieldID, serviceID int64) (int64, bool, error) {
	if s.failOn == "ValueID" {
		return 0, false, errors.New("connection reset")
	}
	for id, v := range s.values {
		if v.fieldID == fieldID && v.serviceID == serviceID {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (s *memStore) InsertValue(_ context.Context, fieldID, serviceID int64, value string) error {
	if s.failOn == "InsertValue" {
		return errors.New("connection reset")
	}
	s.nextID++
	s.values[s.nextID] = &memValue{fieldID: fieldID, serviceID: serviceID, value: value}
	return nil
}

func (s *memStore) UpdateValue(_ context.Context, valueID int64, value string) error {
	if s.failOn == "UpdateValue" {
		return errors.New("connection reset")
	}
	s.values[valueID].value = value
	return nil
}

// rowsFor returns every stored value for a field/service pair.
func (s *memStore) rowsFor(fieldID, serviceID int64) []string {
	var out []string
	for _, v := range s.values {
		if v.fieldID == fieldID && v.serviceID == serviceID {
			out = append(out, v.value)
		}
	}
	return out
}
