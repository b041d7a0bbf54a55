// Package loop drives the reservation workflow: snapshot the page, classify
// it, decide an action, execute it, repeat.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/cafebook/internal/booking"
	"github.com/example/cafebook/internal/page"
	"github.com/example/cafebook/internal/plan"
	"github.com/example/cafebook/internal/waiter"
)

// DefaultInterval is the fixed pause between ticks that do not mutate the page.
const DefaultInterval = 2 * time.Second

// ErrSessionLost is returned (wrapped) by a Session whose browser went away.
var ErrSessionLost = errors.New("browser session lost")

// Session is the browser the loop drives. Calls block until done.
type Session interface {
	Snapshot(ctx context.Context) (*page.Snapshot, error)
	Click(ctx context.Context, selector string, index int) error
	SetSelect(ctx context.Context, name, value string) error
	Reload(ctx context.Context) error
}

// Tick is what one iteration observed and decided.
type Tick struct {
	Seq    int
	State  page.State
	Action plan.Action
	At     time.Time
}

// Journal records ticks. Failures are logged and otherwise ignored.
type Journal interface {
	Record(ctx context.Context, t Tick) error
}

type Loop struct {
	Session  Session
	Request  booking.Request
	Interval time.Duration
	Journal  Journal
	Logger   *slog.Logger
	Clock    waiter.Clock

	last page.State
	// settling is the mutation just executed and the markup it was executed
	// on, until the next tick has looked at the page.
	settling *settle
}

type settle struct {
	action plan.Action
	html   string
}

// Run ticks until the reservation reaches the completion step (nil), the
// session is lost (ErrSessionLost) or ctx is canceled (ctx.Err()).
// Cancellation is only observed between browser calls.
func (l *Loop) Run(ctx context.Context) error {
	if l.Interval <= 0 {
		l.Interval = DefaultInterval
	}
	if l.Clock == nil {
		l.Clock = waiter.System
	}
	if l.Logger == nil {
		l.Logger = slog.Default()
	}
	l.Logger = l.Logger.With("component", "loop")
	l.last = -1

	for seq := 1; ; seq++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := l.tick(ctx, seq)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (l *Loop) tick(ctx context.Context, seq int) (bool, error) {
	snap, err := l.Session.Snapshot(ctx)
	if err != nil {
		if errors.Is(err, ErrSessionLost) {
			return false, err
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		l.Logger.Warn("snapshot failed", "tick", seq, "error", err)
		return false, l.sleep(ctx)
	}

	state := page.Classify(snap, l.Request)
	action := plan.Decide(state, snap, l.Request)
	l.report(ctx, seq, state, action)
	l.last = state

	prev := l.settling
	l.settling = nil
	if prev != nil && prev.action == action && prev.html == snap.HTML {
		// The page has not moved since the same action ran; a navigation may
		// not have committed yet.
		l.Logger.Debug("page unchanged after action, waiting", "tick", seq, "action", action.String())
		return false, l.sleep(ctx)
	}

	return l.execute(ctx, action, snap.HTML)
}

func (l *Loop) execute(ctx context.Context, a plan.Action, html string) (bool, error) {
	switch a.Kind {
	case plan.Terminate:
		return true, nil
	case plan.Sleep:
		return false, l.sleep(ctx)
	case plan.Reload:
		if err := l.sleep(ctx); err != nil {
			return false, err
		}
		return false, l.reload(ctx)
	}

	// An interrupt must not cut a click in half.
	mctx := context.WithoutCancel(ctx)
	var err error
	switch a.Kind {
	case plan.Click:
		err = l.Session.Click(mctx, a.Selector, a.Index)
	case plan.Select:
		err = l.Session.SetSelect(mctx, a.Name, a.Value)
	}
	if err != nil {
		if errors.Is(err, ErrSessionLost) {
			return false, err
		}
		l.Logger.Warn("action failed", "action", a.String(), "error", err)
		return false, l.sleep(ctx)
	}
	if a.ReloadAfter {
		if err := l.sleep(ctx); err != nil {
			return false, err
		}
		return false, l.reload(ctx)
	}
	l.settling = &settle{action: a, html: html}
	return false, nil
}

func (l *Loop) sleep(ctx context.Context) error {
	return l.Clock.Sleep(ctx, l.Interval)
}

func (l *Loop) reload(ctx context.Context) error {
	err := l.Session.Reload(context.WithoutCancel(ctx))
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSessionLost) {
		return err
	}
	l.Logger.Warn("reload failed", "error", err)
	return nil
}

func (l *Loop) report(ctx context.Context, seq int, state page.State, a plan.Action) {
	attrs := []any{"tick", seq, "state", state.String(), "action", a.String()}
	switch {
	case a.Warn:
		l.Logger.Warn(a.Note, attrs...)
	case state == l.last && !a.Mutates():
		l.Logger.Debug(a.Note, attrs...)
	default:
		l.Logger.Info(a.Note, attrs...)
	}
	if l.Journal == nil {
		return
	}
	t := Tick{Seq: seq, State: state, Action: a, At: l.Clock.Now()}
	if err := l.Journal.Record(context.WithoutCancel(ctx), t); err != nil {
		l.Logger.Warn("journal write failed", "tick", seq, "error", err)
	}
}
