package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/mailprov/internal/mailcow"
)

const testShadowField = "mailcow_admin_username"

type recordedCall struct {
	Method   string
	Endpoint string
	Body     []byte
}

// fakeMailcow is an httptest mailcow API. Write endpoints answer with a
// success record and read endpoints with an empty object unless a response
// is configured.
type fakeMailcow struct {
	mu        sync.Mutex
	calls     []recordedCall
	responses map[string]fakeResponse
	srv       *httptest.Server
}

type fakeResponse struct {
	status int
	body   string
}

func newFakeMailcow(t *testing.T) *fakeMailcow {
	t.Helper()
	f := &fakeMailcow{responses: map[string]fakeResponse{}}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := strings.TrimPrefix(r.URL.Path, "/api/v1/")
		body, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		f.calls = append(f.calls, recordedCall{Method: r.Method, Endpoint: endpoint, Body: body})
		resp, ok := f.responses[endpoint]
		f.mu.Unlock()

		if !ok {
			resp = fakeResponse{status: http.StatusOK, body: `[{"type":"success","msg":["ok"]}]`}
			if strings.HasPrefix(endpoint, "get/") {
				resp.body = `{}`
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.status)
		w.Write([]byte(resp.body))
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeMailcow) respond(endpoint string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[endpoint] = fakeResponse{status: status, body: body}
}

func (f *fakeMailcow) server() mailcow.Server {
	return mailcow.Server{
		Hostname: strings.TrimPrefix(f.srv.URL, "http://"),
		APIKey:   "mailcow-api-key-123",
	}
}

func (f *fakeMailcow) endpoints() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Endpoint
	}
	return out
}

// body decodes the request body of the first call to endpoint into v.
func (f *fakeMailcow) body(t *testing.T, endpoint string, v any) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.Endpoint == endpoint {
			if err := json.Unmarshal(c.Body, v); err != nil {
				t.Fatalf("decode %s body: %v", endpoint, err)
			}
			return
		}
	}
	t.Fatalf("no call to %s", endpoint)
}

// editRequests decodes the bodies of every call to endpoint.
func (f *fakeMailcow) editRequests(t *testing.T, endpoint string) []mailcow.EditRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []mailcow.EditRequest
	for _, c := range f.calls {
		if c.Endpoint != endpoint {
			continue
		}
		var req mailcow.EditRequest
		if err := json.Unmarshal(c.Body, &req); err != nil {
			t.Fatalf("decode %s body: %v", endpoint, err)
		}
		out = append(out, req)
	}
	return out
}

type fakeShadow struct {
	mu   sync.Mutex
	sets []string
}

func (s *fakeShadow) FieldName() string { return testShadowField }

func (s *fakeShadow) Get(snapshot map[string]string) string { return snapshot[testShadowField] }

func (s *fakeShadow) Set(_ context.Context, _ int64, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets = append(s.sets, value)
}

type credentialUpdate struct {
	ServiceID int64
	Domain    string
	Username  string
	Password  string
}

type fakeServices struct {
	updates []credentialUpdate
	err     error
}

func (s *fakeServices) SaveCredentials(_ context.Context, serviceID int64, domain, username, encryptedPassword string) error {
	if s.err != nil {
		return s.err
	}
	s.updates = append(s.updates, credentialUpdate{ServiceID: serviceID, Domain: domain, Username: username, Password: encryptedPassword})
	return nil
}

func (s *fakeServices) UpdateCredentials(_ context.Context, serviceID int64, username, encryptedPassword string) error {
	if s.err != nil {
		return s.err
	}
	s.updates = append(s.updates, credentialUpdate{ServiceID: serviceID, Username: username, Password: encryptedPassword})
	return nil
}

type fakeCipher struct {
	err error
}

func (c fakeCipher) Encrypt(plaintext string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return "enc:" + plaintext, nil
}

type testEnv struct {
	module   *Module
	mailcow  *fakeMailcow
	shadow   *fakeShadow
	services *fakeServices
	logs     *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		mailcow:  newFakeMailcow(t),
		shadow:   &fakeShadow{},
		services: &fakeServices{},
		logs:     &bytes.Buffer{},
	}
	logger := zerolog.New(env.logs)
	env.module = NewModule(mailcow.NewClient(5*time.Second), env.shadow, env.services, fakeCipher{}, logger)
	return env
}

func (e *testEnv) params() Params {
	return Params{
		ServiceID: 7,
		UserID:    42,
		Domain:    "example.com",
		Client:    ClientDetails{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"},
		Server:    e.mailcow.server(),
	}
}

var errBoom = errors.New("boom")
