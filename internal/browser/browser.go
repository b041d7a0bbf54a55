// Package browser implements the loop's Session on top of chromedp.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/example/cafebook/internal/loop"
	"github.com/example/cafebook/internal/page"
)

// ErrNoElement means a selector matched fewer nodes than the requested index.
var ErrNoElement = errors.New("element not found")

const actionTimeout = 30 * time.Second

// navigationGrace is how long a click has to start a navigation before it is
// treated as an in-page action.
const navigationGrace = 500 * time.Millisecond

type Options struct {
	// RemoteURL attaches to a running Chrome's DevTools endpoint instead of
	// launching one.
	RemoteURL string
	ExecPath  string
	Headless  bool
	Logger    *slog.Logger
}

// Session owns one browser tab.
type Session struct {
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	remote      bool
	closed      atomic.Bool
	log         *slog.Logger
}

// Start launches or attaches to Chrome and opens a tab. parent should not be
// the interrupt-aware context: the browser outlives an interrupt.
func Start(parent context.Context, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "browser")

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(parent, opts.RemoteURL)
	} else {
		o := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.ModifyCmdFunc(detachCmd),
		)
		if opts.ExecPath != "" {
			o = append(o, chromedp.ExecPath(opts.ExecPath))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(parent, o...)
	}

	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) { logger.Debug(fmt.Sprintf(format, args...)) }),
		chromedp.WithErrorf(func(format string, args ...any) { logger.Debug(fmt.Sprintf(format, args...)) }),
	)
	s := &Session{allocCancel: allocCancel, ctx: ctx, cancel: cancel, remote: opts.RemoteURL != "", log: logger}

	// The first Run starts the browser.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	tab := chromedp.FromContext(ctx).Target.TargetID
	chromedp.ListenBrowser(ctx, func(ev any) {
		if e, ok := ev.(*target.EventTargetDestroyed); ok && e.TargetID == tab {
			s.closed.Store(true)
		}
	})
	logger.Info("browser started", "remote", s.remote, "headless", opts.Headless)
	return s, nil
}

// Open navigates the tab to url.
func (s *Session) Open(ctx context.Context, url string) error {
	s.log.Info("opening", "url", url)
	return s.run(ctx, chromedp.Navigate(url))
}

// serializeJS returns the document markup with live checkbox state copied
// into the checked attribute, which static markup does not track.
const serializeJS = `(() => {
	if (!document.documentElement) return '';
	const sel = 'input[type=checkbox],input[type=radio]';
	const live = document.querySelectorAll(sel);
	const root = document.documentElement.cloneNode(true);
	const copies = root.querySelectorAll(sel);
	live.forEach((el, i) => {
		if (!copies[i]) return;
		if (el.checked) copies[i].setAttribute('checked', 'checked');
		else copies[i].removeAttribute('checked');
	});
	return root.outerHTML;
})()`

func (s *Session) Snapshot(ctx context.Context) (*page.Snapshot, error) {
	var title, html string
	if err := s.run(ctx, chromedp.Title(&title), chromedp.Evaluate(serializeJS, &html)); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return page.NewSnapshot(title, html)
}

// Click clicks the index-th node matching selector.
func (s *Session) Click(ctx context.Context, selector string, index int) error {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return fmt.Errorf("query %s: %w", selector, err)
	}
	if index >= len(nodes) {
		return fmt.Errorf("%s[%d]: %w", selector, index, ErrNoElement)
	}

	// Listen before clicking so a fast navigation is not missed.
	started := make(chan struct{}, 1)
	loaded := make(chan struct{}, 1)
	lctx, stop := context.WithCancel(s.ctx)
	defer stop()
	defer context.AfterFunc(ctx, stop)()
	chromedp.ListenTarget(lctx, func(ev any) {
		switch ev.(type) {
		case *cdppage.EventFrameStartedLoading, *cdppage.EventFrameNavigated:
			signal(started)
		case *cdppage.EventLoadEventFired:
			signal(loaded)
		}
	})

	if err := s.run(ctx, chromedp.MouseClickNode(nodes[index])); err != nil {
		return fmt.Errorf("click %s[%d]: %w", selector, index, err)
	}
	res := awaitNavigation(lctx, started, loaded, navigationGrace, actionTimeout)
	if s.closed.Load() || s.ctx.Err() != nil {
		return loop.ErrSessionLost
	}
	switch res {
	case navTimedOut:
		s.log.Warn("navigation after click did not finish", "selector", selector, "index", index)
	case navAborted:
		return fmt.Errorf("click %s[%d]: %w", selector, index, ctx.Err())
	}
	return nil
}

type navResult int

const (
	navNone navResult = iota
	navLoaded
	navTimedOut
	navAborted
)

// awaitNavigation waits up to grace for a navigation to start and, once one
// has, up to timeout for its load event.
func awaitNavigation(ctx context.Context, started, loaded <-chan struct{}, grace, timeout time.Duration) navResult {
	gt := time.NewTimer(grace)
	defer gt.Stop()
	select {
	case <-started:
	case <-loaded:
		return navLoaded
	case <-gt.C:
		return navNone
	case <-ctx.Done():
		return navAborted
	}

	lt := time.NewTimer(timeout)
	defer lt.Stop()
	select {
	case <-loaded:
		return navLoaded
	case <-lt.C:
		return navTimedOut
	case <-ctx.Done():
		return navAborted
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// SetSelect sets <select name=name> to value and fires change so the page
// reacts as it would to a user.
func (s *Session) SetSelect(ctx context.Context, name, value string) error {
	n, _ := json.Marshal(name)
	v, _ := json.Marshal(value)
	js := fmt.Sprintf(`(() => {
	const s = document.querySelector('select[name=' + CSS.escape(%s) + ']');
	if (!s) return false;
	s.value = %s;
	s.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
})()`, n, v)
	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return fmt.Errorf("select %s: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("select %s: %w", name, ErrNoElement)
	}
	return nil
}

func (s *Session) Reload(ctx context.Context) error {
	return s.run(ctx, chromedp.Reload())
}

// Close shuts the tab, and the browser if this session launched it.
func (s *Session) Close() {
	if err := chromedp.Cancel(s.ctx); err != nil && !s.remote {
		s.log.Debug("closing tab", "error", err)
	}
	s.cancel()
	s.allocCancel()
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.closed.Load() || s.ctx.Err() != nil {
		return loop.ErrSessionLost
	}
	rctx, cancel := context.WithTimeout(s.ctx, actionTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return s.wrap(chromedp.Run(rctx, actions...))
}

// wrap marks errors that mean the tab or browser is gone.
func (s *Session) wrap(err error) error {
	if err == nil {
		return nil
	}
	if s.closed.Load() || s.ctx.Err() != nil || isDeadTarget(err) {
		return fmt.Errorf("%w: %v", loop.ErrSessionLost, err)
	}
	return err
}

func isDeadTarget(err error) bool {
	if errors.Is(err, chromedp.ErrInvalidContext) || errors.Is(err, chromedp.ErrInvalidTarget) || errors.Is(err, chromedp.ErrChannelClosed) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "No target with given id") || strings.Contains(msg, "target closed")
}
