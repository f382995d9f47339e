// Package outcome maps how a session ended to the value handed back to the
// caller.
package outcome

// Kind is how a session ended.
type Kind int

const (
	// Aborted means the user left without choosing. It is never the same
	// as choosing nothing.
	Aborted Kind = iota
	// Selected means the default accept key ended the session.
	Selected
	// SelectedWithAction means one of the configured accept keys ended it.
	SelectedWithAction
)

func (k Kind) String() string {
	switch k {
	case Aborted:
		return "aborted"
	case Selected:
		return "selected"
	case SelectedWithAction:
		return "selected_with_action"
	default:
		return "unknown"
	}
}

// Outcome is what the chooser reports at the end of a session.
type Outcome struct {
	Kind     Kind
	Action   string
	Payloads []any
}

// Abort returns the aborted outcome.
func Abort() Outcome { return Outcome{Kind: Aborted} }

// Select returns a default-accept outcome.
func Select(payloads ...any) Outcome {
	return Outcome{Kind: Selected, Payloads: payloads}
}

// SelectWithAction returns an outcome ended by the accept key action.
func SelectWithAction(action string, payloads ...any) Outcome {
	return Outcome{Kind: SelectedWithAction, Action: action, Payloads: payloads}
}

// Shape is the form of a translated result.
type Shape int

const (
	Empty Shape = iota
	Single
	Collection
	Record
)

func (s Shape) String() string {
	switch s {
	case Empty:
		return "empty"
	case Single:
		return "single"
	case Collection:
		return "collection"
	case Record:
		return "record"
	default:
		return "unknown"
	}
}

// Result is the value returned to the caller. Value holds the payload for
// Single, a []any for Collection, and the selected part of a Record (a
// payload, nil, or a []any).
type Result struct {
	Shape  Shape
	Value  any
	Action string
}

// Translate maps o to a result. Every combination of mode, accept keys and
// selection size has exactly one shape:
//
//   - aborted sessions are Empty;
//   - with accept keys configured the result is a Record whose selected
//     part is a collection in multi mode and the first payload (or nil) in
//     single mode;
//   - multi mode returns a Collection, empty when nothing was chosen;
//   - single mode returns the first payload, or Empty when nothing was.
func Translate(o Outcome, multi bool, expect []string) Result {
	if o.Kind == Aborted {
		return Result{Shape: Empty}
	}

	if len(expect) > 0 {
		var selected any
		if multi {
			selected = collection(o.Payloads)
		} else if len(o.Payloads) > 0 {
			selected = o.Payloads[0]
		}
		action := ""
		if o.Kind == SelectedWithAction {
			action = o.Action
		}
		return Result{Shape: Record, Action: action, Value: selected}
	}

	if multi {
		return Result{Shape: Collection, Value: collection(o.Payloads)}
	}
	if len(o.Payloads) == 0 {
		return Result{Shape: Empty}
	}
	return Result{Shape: Single, Value: o.Payloads[0]}
}

func collection(payloads []any) []any {
	if payloads == nil {
		return []any{}
	}
	return payloads
}
