package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/flokli/monitor-agent/vcp"
)

// Value is a setting supplied by a caller: a raw integer, a symbolic name,
// or a constant of one of the enumerations. Build one with Int, Name, the
// Value method of ColorPreset, PowerMode and InputSource, or ValueOf.
//
// The zero Value is not a valid setting.
type Value struct {
	kind valueKind
	n    int
	name string
	enum *enumeration
}

type valueKind uint8

const (
	kindUnset valueKind = iota
	kindInt
	kindName
	kindEnum
	kindUnsupported
)

// Int returns a Value holding a raw wire integer.
func Int(n int) Value {
	return Value{kind: kindInt, n: n}
}

// Name returns a Value holding a symbolic name such as "standby" or "HDMI1".
func Name(name string) Value {
	return Value{kind: kindName, name: name}
}

// Value returns c as a setting.
func (c ColorPreset) Value() Value {
	return Value{kind: kindEnum, n: int(c), enum: colorPresets}
}

// Value returns p as a setting.
func (p PowerMode) Value() Value {
	return Value{kind: kindEnum, n: int(p), enum: powerModes}
}

// Value returns s as a setting.
func (s InputSource) Value() Value {
	return Value{kind: kindEnum, n: int(s), enum: inputSources}
}

// ValueOf converts decoded data (from JSON with UseNumber, or YAML) into a
// Value. Integers of any kind, integral json.Numbers, strings and the enumeration
// constants are supported. Any other type yields a Value that setters reject
// with ErrUnsupportedValueType.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case Value:
		return x
	case json.Number:
		if n, ok := vcp.AsInt(x); ok {
			return Int(n)
		}
		return Value{kind: kindUnsupported, name: "json.Number " + x.String()}
	case string:
		return Name(x)
	case ColorPreset:
		return x.Value()
	case PowerMode:
		return x.Value()
	case InputSource:
		return x.Value()
	default:
		if n, ok := vcp.AsInt(v); ok {
			return Int(n)
		}
		return Value{kind: kindUnsupported, name: fmt.Sprintf("%T", v)}
	}
}

// IsZero reports whether v was never set.
func (v Value) IsZero() bool {
	return v.kind == kindUnset
}

func (v Value) String() string {
	switch v.kind {
	case kindInt:
		return fmt.Sprintf("%d", v.n)
	case kindName:
		return v.name
	case kindEnum:
		if name, ok := v.enumName(); ok {
			return name
		}
		return fmt.Sprintf("0x%02x", v.n)
	case kindUnsupported:
		return "<unsupported " + v.name + ">"
	default:
		return "<unset>"
	}
}

func (v Value) enumName() (string, bool) {
	for name, n := range v.enum.names {
		if n == v.n {
			return name, true
		}
	}
	return "", false
}

// wire normalizes v into the wire value of enumeration e.
func (v Value) wire(e *enumeration) (int, error) {
	switch v.kind {
	case kindInt:
		if !e.validWire(v.n) {
			return 0, fmt.Errorf("%w: %d is not a valid %s", ErrInvalidValue, v.n, e.kind)
		}
		return v.n, nil
	case kindName:
		n, ok := e.lookup(v.name)
		if !ok {
			return 0, fmt.Errorf("%w: %q is not a %s", ErrUnknownName, v.name, e.kind)
		}
		return n, nil
	case kindEnum:
		if v.enum != e {
			return 0, fmt.Errorf("%w: %s given for %s", ErrUnsupportedValueType, v.enum.kind, e.kind)
		}
		return v.n, nil
	case kindUnsupported:
		return 0, fmt.Errorf("%w: %s for %s", ErrUnsupportedValueType, v.name, e.kind)
	default:
		return 0, fmt.Errorf("%w: no value given for %s", ErrUnsupportedValueType, e.kind)
	}
}

// Matches reports whether v and other select the same wire value. An
// enumeration constant is compared by resolving the other side against its
// enumeration, so Name("standby") matches PowerStandby.Value().
func (v Value) Matches(other Value) bool {
	if v.kind == kindEnum {
		n, err := other.wire(v.enum)
		return err == nil && n == v.n
	}
	if other.kind == kindEnum {
		return other.Matches(v)
	}
	return v == other
}

// MarshalJSON encodes enumeration constants by name where they have one,
// and everything else as a number or string.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindInt:
		return json.Marshal(v.n)
	case kindName:
		return json.Marshal(v.name)
	case kindEnum:
		if name, ok := v.enumName(); ok {
			return json.Marshal(name)
		}
		return json.Marshal(v.n)
	default:
		return nil, fmt.Errorf("%w: cannot encode %s", ErrUnsupportedValueType, v)
	}
}

// UnmarshalJSON accepts a number or a string. Other JSON types decode into
// an unsupported Value rather than failing, so the error surfaces from the
// setter that receives it.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = ValueOf(raw)
	return nil
}
