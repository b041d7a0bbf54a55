// Package plan decides what to do for each page state. Decisions are pure
// and returned as Action values; the loop executes them.
package plan

import "fmt"

type Kind int

const (
	// Sleep waits one interval and polls again without reloading.
	Sleep Kind = iota
	// Reload waits one interval and reloads the page.
	Reload
	// Click clicks the Index-th element matching Selector.
	Click
	// Select sets the <select name=Name> to Value.
	Select
	// Terminate stops the loop.
	Terminate
)

func (k Kind) String() string {
	switch k {
	case Sleep:
		return "sleep"
	case Reload:
		return "reload"
	case Click:
		return "click"
	case Select:
		return "select"
	case Terminate:
		return "terminate"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Action struct {
	Kind Kind

	Selector string
	Index    int

	Name  string
	Value string

	// ReloadAfter makes a Click wait one interval and reload afterwards.
	ReloadAfter bool

	// Note is the operator-facing log line. Warn marks it as a warning.
	Note string
	Warn bool
}

// Mutates reports whether the action changes the page; the loop polls again
// right away after one.
func (a Action) Mutates() bool { return a.Kind == Click || a.Kind == Select }

func (a Action) String() string {
	switch a.Kind {
	case Click:
		s := fmt.Sprintf("click %s[%d]", a.Selector, a.Index)
		if a.ReloadAfter {
			s += " then reload"
		}
		return s
	case Select:
		return fmt.Sprintf("select %s=%s", a.Name, a.Value)
	}
	return a.Kind.String()
}

func click(sel, note string) Action {
	return Action{Kind: Click, Selector: sel, Note: note}
}

func clickNth(sel string, i int, note string) Action {
	return Action{Kind: Click, Selector: sel, Index: i, Note: note}
}

func sleep(note string) Action { return Action{Kind: Sleep, Note: note} }

func reload(note string) Action { return Action{Kind: Reload, Note: note} }

// missing is the fallback when an element the state implies is not there.
func missing(what string) Action {
	return Action{Kind: Sleep, Note: what + " not found", Warn: true}
}
