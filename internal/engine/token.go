package engine

// Operator is one of the four binary keys. OpNone means no operation is pending.
type Operator int

const (
	OpNone Operator = iota
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
)

// String returns the key glyph shown on the keypad, or "" for OpNone.
func (o Operator) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "×"
	case OpDivide:
		return "÷"
	default:
		return ""
	}
}

// Kind classifies a key press.
type Kind int

const (
	KindDigit Kind = iota + 1
	KindPoint
	KindOperator
	KindEquals
	KindClear
	KindNegate
	KindPercent
)

func (k Kind) String() string {
	switch k {
	case KindDigit:
		return "digit"
	case KindPoint:
		return "point"
	case KindOperator:
		return "operator"
	case KindEquals:
		return "equals"
	case KindClear:
		return "clear"
	case KindNegate:
		return "negate"
	case KindPercent:
		return "percent"
	default:
		return "unknown"
	}
}

// Token is a single parsed key press.
type Token struct {
	Kind  Kind
	Digit byte     // '0'..'9', set for KindDigit
	Op    Operator // set for KindOperator
}

// String returns the canonical keypad label of the token.
func (t Token) String() string {
	switch t.Kind {
	case KindDigit:
		return string(t.Digit)
	case KindPoint:
		return "."
	case KindOperator:
		return t.Op.String()
	case KindEquals:
		return "="
	case KindClear:
		return "C"
	case KindNegate:
		return "±"
	case KindPercent:
		return "%"
	default:
		return ""
	}
}

// ParseToken maps a key label to a Token. Besides the keypad glyphs it
// accepts the ASCII spellings "*", "x", "/", "AC", "+/-" and "neg".
// Unknown labels report ok == false.
func ParseToken(s string) (Token, bool) {
	if len(s) == 1 && s[0] >= '0' && s[0] <= '9' {
		return Token{Kind: KindDigit, Digit: s[0]}, true
	}

	switch s {
	case ".":
		return Token{Kind: KindPoint}, true
	case "+":
		return Token{Kind: KindOperator, Op: OpAdd}, true
	case "-", "−":
		return Token{Kind: KindOperator, Op: OpSubtract}, true
	case "×", "*", "x":
		return Token{Kind: KindOperator, Op: OpMultiply}, true
	case "÷", "/":
		return Token{Kind: KindOperator, Op: OpDivide}, true
	case "=":
		return Token{Kind: KindEquals}, true
	case "C", "AC":
		return Token{Kind: KindClear}, true
	case "±", "+/-", "neg":
		return Token{Kind: KindNegate}, true
	case "%":
		return Token{Kind: KindPercent}, true
	}

	return Token{}, false
}
