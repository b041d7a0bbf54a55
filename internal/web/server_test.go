package web

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/example/cafebook/internal/auth"
	"github.com/example/cafebook/internal/db"
	"github.com/example/cafebook/internal/runs"
)

type fakeUsers struct{ hash string }

func (f *fakeUsers) CreateUser(_ context.Context, _, hash string) error {
	f.hash = hash
	return nil
}

func (f *fakeUsers) PasswordHash(_ context.Context, username string) (int64, string, error) {
	if username != "ash" || f.hash == "" {
		return 0, "", db.ErrNotFound
	}
	return 1, f.hash, nil
}

type fakeRuns struct {
	runs  []runs.Run
	ticks map[int64][]runs.Tick
}

func (f *fakeRuns) ListRecent(_ context.Context, limit int) ([]runs.Run, error) {
	if len(f.runs) > limit {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func (f *fakeRuns) Get(_ context.Context, id int64) (runs.Run, error) {
	for _, r := range f.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return runs.Run{}, db.ErrNotFound
}

func (f *fakeRuns) Ticks(_ context.Context, runID int64) ([]runs.Tick, error) {
	return f.ticks[runID], nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := auth.NewStore(&fakeUsers{}, securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32))
	if err := store.CreateUser(context.Background(), "ash", "pikachu"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	started := time.Date(2026, 1, 29, 17, 59, 0, 0, time.UTC)
	lastErr := "browser session lost: target closed"
	rs := &fakeRuns{
		runs: []runs.Run{
			{ID: 2, Venue: "osaka", Guests: 4, ReservationDate: started.AddDate(0, 1, 1), Status: runs.StatusSessionLost, LastError: &lastErr, StartedAt: started},
			{ID: 1, Venue: "tokyo", Guests: 2, ReservationDate: started.AddDate(0, 1, 1), Status: runs.StatusCompleted, TickCount: 2, StartedAt: started},
		},
		ticks: map[int64][]runs.Tick{
			1: {
				{RunID: 1, Seq: 1, State: "congested", ActionKind: "reload", Action: "reload", Note: "site congested, reloading", At: started},
				{RunID: 1, Seq: 2, State: "reservation_pending_completion", ActionKind: "terminate", Action: "terminate", At: started},
			},
		},
	}
	s := &Server{Auth: store, Runs: rs}
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, c *http.Client, u string) (int, string, string) {
	t.Helper()
	resp, err := c.Get(u)
	if err != nil {
		t.Fatalf("GET %s: %v", u, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header.Get("Location"), string(b)
}

func login(t *testing.T, c *http.Client, base, password string) int {
	t.Helper()
	resp, err := c.PostForm(base+"/login", url.Values{"username": {"ash"}, "password": {password}})
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	code, _, body := get(t, newClient(t), ts.URL+"/healthz")
	if code != http.StatusOK || body != "ok\n" {
		t.Errorf("healthz: %d %q", code, body)
	}
}

func TestAnonymousRedirectsToLogin(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)
	for _, p := range []string{"/", "/runs/1"} {
		code, loc, _ := get(t, c, ts.URL+p)
		if code != http.StatusFound || loc != "/login" {
			t.Errorf("%s: %d -> %q", p, code, loc)
		}
	}
	code, _, body := get(t, c, ts.URL+"/login")
	if code != http.StatusOK || !strings.Contains(body, `name="password"`) {
		t.Errorf("login page: %d", code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)
	if code := login(t, c, ts.URL, "eevee"); code != http.StatusUnauthorized {
		t.Errorf("wrong password: got %d", code)
	}
	if code, _, _ := get(t, c, ts.URL+"/"); code != http.StatusFound {
		t.Errorf("still anonymous after failed login: got %d", code)
	}
}

func TestRunsPages(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)
	if code := login(t, c, ts.URL, "pikachu"); code != http.StatusFound {
		t.Fatalf("login: got %d", code)
	}

	code, _, body := get(t, c, ts.URL+"/")
	if code != http.StatusOK {
		t.Fatalf("runs: got %d", code)
	}
	for _, want := range []string{`href="/runs/1"`, `href="/runs/2"`, "session_lost", "first available"} {
		if !strings.Contains(body, want) {
			t.Errorf("runs page missing %q", want)
		}
	}

	code, _, body = get(t, c, ts.URL+"/runs/1")
	if code != http.StatusOK {
		t.Fatalf("run detail: got %d", code)
	}
	for _, want := range []string{"Run #1", "site congested, reloading", "reservation_pending_completion"} {
		if !strings.Contains(body, want) {
			t.Errorf("run page missing %q", want)
		}
	}

	code, _, body = get(t, c, ts.URL+"/runs/2")
	if code != http.StatusOK || !strings.Contains(body, "target closed") {
		t.Errorf("run 2: %d, error shown = %v", code, strings.Contains(body, "target closed"))
	}

	for _, p := range []string{"/runs/99", "/runs/abc"} {
		if code, _, _ := get(t, c, ts.URL+p); code != http.StatusNotFound {
			t.Errorf("%s: got %d", p, code)
		}
	}

	if code, loc, _ := get(t, c, ts.URL+"/logout"); code != http.StatusFound || loc != "/login" {
		t.Errorf("logout: %d -> %q", code, loc)
	}
	if code, _, _ := get(t, c, ts.URL+"/"); code != http.StatusFound {
		t.Errorf("after logout: got %d", code)
	}
}

func TestStatic(t *testing.T) {
	ts := newTestServer(t)
	code, _, body := get(t, newClient(t), ts.URL+"/static/style.css")
	if code != http.StatusOK || !strings.Contains(body, "table") {
		t.Errorf("static: %d", code)
	}
}
