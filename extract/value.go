package extract

import (
	"errors"
	"strconv"
	"strings"
)

// Kind is the numeric kind of one value series. A series is homogeneous:
// every value in it is parsed and printed with the same kind.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
)

func (k Kind) String() string {
	if k == KindInt {
		return "int"
	}
	return "float"
}

// ParseKind maps a config token to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "float":
		return KindFloat, nil
	case "int":
		return KindInt, nil
	}
	return KindFloat, errors.New("unknown value kind: " + s)
}

// Value is one parsed series element.
type Value struct {
	Kind Kind
	F    float64
	I    int64
}

func FloatValue(f float64) Value { return Value{Kind: KindFloat, F: f} }
func IntValue(i int64) Value     { return Value{Kind: KindInt, I: i} }

// ParseValue parses element text as the given kind. Text that does not
// parse (or overflows the kind's width) is an error for the caller to
// drop; it never aborts processing.
func ParseValue(kind Kind, text string) (Value, error) {
	text = strings.TrimSpace(text)
	if kind == KindInt {
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return IntValue(i), nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Value{}, err
	}
	return FloatValue(f), nil
}

// String renders the value in a general decimal form that round-trips
// exactly for the value's width and is locale-independent.
func (v Value) String() string {
	if v.Kind == KindInt {
		return strconv.FormatInt(v.I, 10)
	}
	return strconv.FormatFloat(v.F, 'g', -1, 64)
}
