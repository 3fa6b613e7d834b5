package engine

import "strings"

// State is the complete calculator state. It is a plain value: transitions
// return a new State and never alias the old one.
type State struct {
	Current    string   // operand being typed or the last raw result
	Previous   string   // left operand of the pending operation, "" if none
	Pending    Operator // operator awaiting its right operand
	ResetInput bool     // next digit starts a fresh operand
	Expression string
	Result     string
	Err        error // set after a failed computation until Clear
}

// Idle returns the state of a freshly cleared calculator.
func Idle() State {
	return State{Current: "0", Result: "0"}
}

// View is the renderable snapshot handed to the UI.
type View struct {
	Expression      string    `json:"expression"`
	Result          string    `json:"result"`
	ActiveOperator  string    `json:"active_operator"`
	ResultSizeClass SizeClass `json:"result_size_class"`
}

// View derives the snapshot. The active operator always mirrors the
// pending one.
func (s State) View() View {
	return View{
		Expression:      s.Expression,
		Result:          s.Result,
		ActiveOperator:  s.Pending.String(),
		ResultSizeClass: SizeClassFor(s.Result),
	}
}

// Apply returns the state that follows s after key t. While the result line
// shows the error marker only Clear is honoured.
func Apply(s State, t Token) State {
	if s.Err != nil && t.Kind != KindClear {
		return s
	}

	switch t.Kind {
	case KindDigit:
		return inputDigit(s, t.Digit)
	case KindPoint:
		return inputPoint(s)
	case KindOperator:
		return inputOperator(s, t.Op)
	case KindEquals:
		return equals(s)
	case KindClear:
		return Idle()
	case KindNegate:
		return negate(s)
	case KindPercent:
		return percent(s)
	default:
		return s
	}
}

func startOperand(s State) State {
	if s.ResetInput {
		s.Current = "0"
		s.ResetInput = false
	}
	return s
}

func inputDigit(s State, d byte) State {
	s = startOperand(s)

	if countDigits(s.Current) >= MaxInputLength {
		return s
	}

	if s.Current == "0" {
		s.Current = string(d)
	} else {
		s.Current += string(d)
	}

	s.Result = displayOperand(s.Current)
	return s
}

func inputPoint(s State) State {
	s = startOperand(s)

	if strings.Contains(s.Current, ".") {
		return s
	}

	s.Current += "."
	s.Result = displayOperand(s.Current)
	return s
}

func inputOperator(s State, op Operator) State {
	switch {
	case s.Previous != "" && s.Pending != OpNone && !s.ResetInput:
		v, err := Calculate(s.Previous, s.Current, s.Pending)
		if err != nil {
			return failed(s, err)
		}

		formatted := FormatResult(v)
		s.Previous = formatted
		s.Current = "0"
		s.Result = formatted
		s.Expression = formatted + " " + op.String()

	case s.Previous != "" && s.Pending != OpNone:
		// No operand typed since the last operator: the new one replaces it.
		s.Expression = formatOperand(s.Previous) + " " + op.String()

	default:
		s.Previous = s.Current
		s.Current = "0"
		s.Result = formatOperand(s.Previous)
		s.Expression = s.Result + " " + op.String()
	}

	s.Pending = op
	s.ResetInput = true
	return s
}

func equals(s State) State {
	if s.Previous == "" || s.Pending == OpNone {
		return s
	}

	v, err := Calculate(s.Previous, s.Current, s.Pending)
	if err != nil {
		return failed(s, err)
	}

	return State{
		Current:    rawString(v),
		Result:     FormatResult(v),
		Expression: formatOperand(s.Previous) + " " + s.Pending.String() + " " + formatOperand(s.Current),
		ResetInput: true,
	}
}

// failed keeps the attempted expression visible and resets everything else.
func failed(s State, err error) State {
	return State{
		Current:    "0",
		Result:     ErrorMarker,
		Expression: s.Previous + " " + s.Pending.String() + " " + s.Current,
		Err:        err,
	}
}

func negate(s State) State {
	if s.Current == "0" {
		return s
	}

	if strings.HasPrefix(s.Current, "-") {
		s.Current = s.Current[1:]
	} else {
		s.Current = "-" + s.Current
	}

	s.Result = displayOperand(s.Current)
	return s
}

func percent(s State) State {
	v := roundDecimal(parseOperand(s.Current) / 100)
	s.Current = rawString(v)
	s.Result = FormatResult(v)
	return s
}
