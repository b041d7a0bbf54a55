package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/example/cafebook/internal/booking"
	"github.com/example/cafebook/internal/loop"
	"github.com/example/cafebook/internal/runs"
)

func TestRunFlagsRequest(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, booking.CafeTZ)
	cases := []struct {
		name    string
		flags   runFlags
		wantErr bool
		check   func(*testing.T, booking.Request)
	}{
		{
			name:  "minimal",
			flags: runFlags{venue: "Tokyo", guests: 2, date: "2026-11-20"},
			check: func(t *testing.T, r booking.Request) {
				if r.Venue != booking.VenueTokyo || r.Guests != 2 || r.MinTime != nil || r.MaxTime != nil {
					t.Errorf("got %+v", r)
				}
			},
		},
		{
			name:  "bounds",
			flags: runFlags{venue: "osaka", guests: 6, date: "2026-11-20", start: "10:30", end: "12:00"},
			check: func(t *testing.T, r booking.Request) {
				if r.MinTime == nil || r.MinTime.String() != "10:30" || r.MaxTime == nil || r.MaxTime.String() != "12:00" {
					t.Errorf("bounds = %v %v", r.MinTime, r.MaxTime)
				}
			},
		},
		{name: "unknown venue", flags: runFlags{venue: "kyoto", guests: 2, date: "2026-11-20"}, wantErr: true},
		{name: "too many guests", flags: runFlags{venue: "tokyo", guests: 7, date: "2026-11-20"}, wantErr: true},
		{name: "bad date", flags: runFlags{venue: "tokyo", guests: 2, date: "20/11/2026"}, wantErr: true},
		{name: "past date", flags: runFlags{venue: "tokyo", guests: 2, date: "2026-10-15"}, wantErr: true},
		{name: "bad start", flags: runFlags{venue: "tokyo", guests: 2, date: "2026-11-20", start: "10h30"}, wantErr: true},
		{name: "start after end", flags: runFlags{venue: "tokyo", guests: 2, date: "2026-11-20", start: "12:00", end: "10:00"}, wantErr: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := c.flags.request(now)
			if c.wantErr {
				if !errors.Is(err, booking.ErrInvalidRequest) {
					t.Errorf("got %v, want ErrInvalidRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			c.check(t, r)
		})
	}
}

type fakeCloser struct{ closed bool }

func (f *fakeCloser) Close() { f.closed = true }

func TestFinish(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name       string
		err        error
		stdin      string
		wantErr    error
		wantClosed bool
	}{
		{name: "completed leaves browser open", err: nil},
		{name: "session lost releases", err: fmt.Errorf("snapshot: %w", loop.ErrSessionLost), wantClosed: true},
		{name: "interrupt then enter closes", err: context.Canceled, stdin: "\n", wantClosed: true},
		{name: "interrupt then eof leaves open", err: context.Canceled, stdin: ""},
		{name: "other error", err: boom, wantErr: boom, wantClosed: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			root := NewRootCmd()
			root.SetIn(strings.NewReader(c.stdin))
			root.SetErr(io.Discard)
			sess := &fakeCloser{}
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			err := finish(root, logger, sess, c.err)
			if !errors.Is(err, c.wantErr) || (c.wantErr == nil && err != nil) {
				t.Errorf("err = %v, want %v", err, c.wantErr)
			}
			if sess.closed != c.wantClosed {
				t.Errorf("closed = %v, want %v", sess.closed, c.wantClosed)
			}
		})
	}
}

func TestPrintRuns(t *testing.T) {
	now := time.Date(2026, 1, 29, 18, 5, 0, 0, time.UTC)
	var buf bytes.Buffer
	if err := printRuns(&buf, nil, now); err != nil {
		t.Fatalf("printRuns: %v", err)
	}
	if buf.String() != "no runs recorded\n" {
		t.Errorf("empty: %q", buf.String())
	}

	buf.Reset()
	rs := []runs.Run{{
		ID: 3, Venue: "tokyo", Guests: 2, Status: runs.StatusCompleted, TickCount: 12,
		ReservationDate: time.Date(2026, 3, 1, 0, 0, 0, 0, booking.CafeTZ),
		StartedAt:       now.Add(-5 * time.Minute),
	}}
	if err := printRuns(&buf, rs, now); err != nil {
		t.Fatalf("printRuns: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	for _, want := range []string{"2026-03-01", "first available", "completed", "12", "5 minutes ago"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("row %q missing %q", lines[1], want)
		}
	}
}

func TestVersionAndKeys(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out.String(), "cafebook dev") {
		t.Errorf("version output %q", out.String())
	}

	out.Reset()
	root = NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"keys"})
	if err := root.Execute(); err != nil {
		t.Fatalf("keys: %v", err)
	}
	if !strings.Contains(out.String(), "export CAFEBOOK_COOKIE_HASH_KEY=") ||
		!strings.Contains(out.String(), "export CAFEBOOK_COOKIE_BLOCK_KEY=") {
		t.Errorf("keys output %q", out.String())
	}
}

func TestRunRequiresFlags(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"run", "--venue", "tokyo"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "required flag") {
		t.Errorf("got %v, want required flag error", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "warn")
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("log output %q", buf.String())
	}
}

func TestRunURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://localhost:8080", "http://localhost:8080/runs/7"},
		{"https://cafe.example.com/", "https://cafe.example.com/runs/7"},
	}
	for _, c := range cases {
		if got := runURL(c.base, 7); got != c.want {
			t.Errorf("runURL(%q) = %q, want %q", c.base, got, c.want)
		}
	}
}

func TestRunsListDoesNotMigrateByDefault(t *testing.T) {
	c := newRunsListCmd(&rootOptions{})
	f := c.Flags().Lookup("migrate")
	if f == nil {
		t.Fatal("runs list has no --migrate flag")
	}
	if f.DefValue != "false" {
		t.Errorf("--migrate default = %s, want false", f.DefValue)
	}
}
