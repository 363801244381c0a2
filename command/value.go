package command

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

type ValueKind int

const (
	NullKind ValueKind = iota
	BoolKind
	IntKind
	StringKind
)

func (k ValueKind) String() string {
	switch k {
	case BoolKind:
		return "bool"
	case IntKind:
		return "int"
	case StringKind:
		return "string"
	default:
		return "null"
	}
}

// Value is a single argument produced by the parser.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	s    string
}

func Null() Value           { return Value{kind: NullKind} }
func Bool(b bool) Value     { return Value{kind: BoolKind, b: b} }
func Int(i int64) Value     { return Value{kind: IntKind, i: i} }
func String(s string) Value { return Value{kind: StringKind, s: s} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == NullKind }

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == BoolKind
}

func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == IntKind
}

func (v Value) AsString() (string, bool) {
	return v.s, v.kind == StringKind
}

// String renders the value the way it would be written in a definition file.
func (v Value) String() string {
	switch v.kind {
	case BoolKind:
		if v.b {
			return "True"
		}
		return "False"
	case IntKind:
		return strconv.FormatInt(v.i, 10)
	case StringKind:
		return v.s
	default:
		return "None"
	}
}

var (
	octalPattern   = regexp.MustCompile(`^0[oO]?[0-7]+$`)
	hexPattern     = regexp.MustCompile(`^0[xX][0-9a-fA-F]+$`)
	decimalPattern = regexp.MustCompile(`^[0-9]+$`)
)

// Interpret types an unquoted token. Anything that is not a literal or an
// integer that fits in 64 bits stays a string.
func Interpret(raw string) Value {
	switch raw {
	case "None":
		return Null()
	case "True":
		return Bool(true)
	case "False":
		return Bool(false)
	}

	var (
		digits string
		base   int
	)
	switch {
	case hexPattern.MatchString(raw):
		digits, base = raw[2:], 16
	case octalPattern.MatchString(raw):
		digits, base = raw[1:], 8
		if digits[0] == 'o' || digits[0] == 'O' {
			digits = digits[1:]
		}
	case decimalPattern.MatchString(raw):
		digits, base = raw, 10
	default:
		return String(raw)
	}
	i, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		return String(raw)
	}
	return Int(i)
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case BoolKind:
		return json.Marshal(v.b)
	case IntKind:
		return json.Marshal(v.i)
	case StringKind:
		return json.Marshal(v.s)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = Null()
	case bool:
		*v = Bool(t)
	case string:
		*v = String(t)
	case float64:
		i, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return fmt.Errorf("decoding integer value %s: %w", b, err)
		}
		*v = Int(i)
	default:
		return fmt.Errorf("unsupported value %s", b)
	}
	return nil
}
