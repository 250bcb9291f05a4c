package vcp

import (
	"encoding/json"
	"fmt"
	"math"
)

// Key selects a feature code in a Registry, either by name or by value.
// The zero Key selects nothing and is rejected with ErrInvalidKeyType.
type Key struct {
	kind  keyKind
	name  string
	value int
}

type keyKind uint8

const (
	keyInvalid keyKind = iota
	keyName
	keyValue
)

// ByName returns a Key matching a feature code name exactly.
func ByName(name string) Key {
	return Key{kind: keyName, name: name}
}

// ByValue returns a Key matching a feature code opcode.
func ByValue(value int) Key {
	return Key{kind: keyValue, value: value}
}

// KeyOf builds a Key from decoded configuration or payload data.
// Strings become name keys, integers of any kind (and integral json.Numbers)
// value keys. Anything else yields an invalid Key.
func KeyOf(v any) Key {
	if s, ok := v.(string); ok {
		return ByName(s)
	}
	if n, ok := AsInt(v); ok {
		return ByValue(n)
	}
	return Key{}
}

// AsInt converts any Go integer type, or an integral json.Number, to int.
// Unsigned values beyond the int range are clamped to math.MaxInt, which
// is neither a feature code nor a valid wire value.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return clampInt64(n), true
	case uint:
		return clampUint64(uint64(n)), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return clampUint64(uint64(n)), true
	case uint64:
		return clampUint64(n), true
	case uintptr:
		return clampUint64(uint64(n)), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return clampInt64(i), true
		}
	}
	return 0, false
}

func clampInt64(n int64) int {
	if n > math.MaxInt {
		return math.MaxInt
	}
	if n < math.MinInt {
		return math.MinInt
	}
	return int(n)
}

func clampUint64(n uint64) int {
	if n > math.MaxInt {
		return math.MaxInt
	}
	return int(n)
}

func (k Key) String() string {
	switch k.kind {
	case keyName:
		return k.name
	case keyValue:
		return fmt.Sprintf("0x%02x", k.value)
	default:
		return "<invalid key>"
	}
}

// Registry is a table of known feature codes.
//
// A Registry is filled during startup and then only read. Register is not
// synchronized: finish registering (and call Freeze) before sharing the
// registry between goroutines.
type Registry struct {
	codes  []FeatureCode
	frozen bool
}

// NewRegistry returns a registry holding the standard MCCS codes.
func NewRegistry() *Registry {
	codes := make([]FeatureCode, len(standardCodes))
	copy(codes, standardCodes)
	return &Registry{codes: codes}
}

// Lookup returns the feature code matching key.
func (r *Registry) Lookup(key Key) (FeatureCode, error) {
	switch key.kind {
	case keyName:
		for _, c := range r.codes {
			if c.Name == key.name {
				return c, nil
			}
		}
	case keyValue:
		for _, c := range r.codes {
			if int(c.Value) == key.value {
				return c, nil
			}
		}
	default:
		return FeatureCode{}, ErrInvalidKeyType
	}
	return FeatureCode{}, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// LookupName is a shortcut for Lookup(ByName(name)).
func (r *Registry) LookupName(name string) (FeatureCode, error) {
	return r.Lookup(ByName(name))
}

// LookupValue is a shortcut for Lookup(ByValue(value)).
func (r *Registry) LookupValue(value int) (FeatureCode, error) {
	return r.Lookup(ByValue(value))
}

// Register adds a feature code. Names and values must be unique; on a
// collision the registry is left unchanged.
func (r *Registry) Register(code FeatureCode) error {
	if r.frozen {
		return fmt.Errorf("%w: cannot register %s", ErrRegistryFrozen, code)
	}
	for _, c := range r.codes {
		if c.Name == code.Name {
			return fmt.Errorf("%w: %s", ErrDuplicateName, code.Name)
		}
		if c.Value == code.Value {
			return fmt.Errorf("%w: 0x%02x is %s", ErrDuplicateValue, code.Value, c.Name)
		}
	}
	r.codes = append(r.codes, code)
	return nil
}

// Freeze ends the registration phase.
func (r *Registry) Freeze() {
	r.frozen = true
}

// Codes returns all registered codes in registration order.
func (r *Registry) Codes() []FeatureCode {
	codes := make([]FeatureCode, len(r.codes))
	copy(codes, r.codes)
	return codes
}
