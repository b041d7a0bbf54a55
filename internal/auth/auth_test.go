package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/securecookie"

	"github.com/example/cafebook/internal/db"
)

type memUsers struct {
	hashes map[string]string
	ids    map[string]int64
}

func newMemUsers() *memUsers {
	return &memUsers{hashes: map[string]string{}, ids: map[string]int64{}}
}

func (m *memUsers) CreateUser(_ context.Context, username, hash string) error {
	if _, ok := m.hashes[username]; ok {
		return errors.New("duplicate username")
	}
	m.hashes[username] = hash
	m.ids[username] = int64(len(m.ids) + 1)
	return nil
}

func (m *memUsers) PasswordHash(_ context.Context, username string) (int64, string, error) {
	h, ok := m.hashes[username]
	if !ok {
		return 0, "", db.ErrNotFound
	}
	return m.ids[username], h, nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(newMemUsers(), securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32))
}

func TestAuthenticate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateUser(ctx, "ash", "pikachu"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	id, err := s.Authenticate(ctx, "ash", "pikachu")
	if err != nil || id != 1 {
		t.Fatalf("Authenticate = %d, %v", id, err)
	}
	if _, err := s.Authenticate(ctx, "ash", "eevee"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := s.Authenticate(ctx, "misty", "pikachu"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v", err)
	}
	if err := s.CreateUser(ctx, "", "x"); err == nil {
		t.Errorf("empty username accepted")
	}
}

func TestSessionCookie(t *testing.T) {
	s := newTestStore(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	if err := s.SetSession(rec, req, 42); err != nil {
		t.Fatalf("SetSession: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != cookieName {
		t.Fatalf("cookies = %v", cookies)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	sess, ok := s.GetSession(req)
	if !ok || sess.UserID != 42 {
		t.Errorf("GetSession = %+v, %v", sess, ok)
	}

	// A cookie from another key pair must not decode.
	other := newTestStore(t)
	if _, ok := other.GetSession(req); ok {
		t.Errorf("foreign cookie accepted")
	}
}

func TestRequireAuth(t *testing.T) {
	s := newTestStore(t)
	var seen int64
	h := s.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Errorf("anonymous: code %d location %q", rec.Code, rec.Header().Get("Location"))
	}

	login := httptest.NewRecorder()
	if err := s.SetSession(login, httptest.NewRequest(http.MethodPost, "/login", nil), 7); err != nil {
		t.Fatalf("SetSession: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(login.Result().Cookies()[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || seen != 7 {
		t.Errorf("authed: code %d uid %d", rec.Code, seen)
	}
}
