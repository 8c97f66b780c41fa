package model

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Flag is a boolean field that is either a literal value or a reference to
// a named game-state flag resolved at read time. The zero value is the
// literal false.
//
// In JSON and YAML a literal is written as true/false and a reference as
// the flag name string.
type Flag struct {
	name  string
	value bool
}

// Literal returns a flag with a fixed value.
func Literal(v bool) Flag { return Flag{value: v} }

// FlagRef returns a flag resolved through the named-flag lookup.
func FlagRef(name string) Flag { return Flag{name: name} }

// IsRef reports whether the flag names a game-state flag.
func (f Flag) IsRef() bool { return f.name != "" }

// Name returns the referenced flag name, or "" for a literal.
func (f Flag) Name() string { return f.name }

// Value returns the literal value. Meaningless for references.
func (f Flag) Value() bool { return f.value }

// IsZero reports whether f is the literal false.
func (f Flag) IsZero() bool { return f.name == "" && !f.value }

func (f Flag) String() string {
	if f.IsRef() {
		return "flag(" + f.name + ")"
	}
	return fmt.Sprintf("%t", f.value)
}

// MarshalJSON implements json.Marshaler.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f.IsRef() {
		return json.Marshal(f.name)
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*f = Flag{}
	case bool:
		*f = Literal(x)
	case string:
		*f = ParseFlag(x)
	default:
		return fmt.Errorf("flag: want bool or string, got %s", string(b))
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (f Flag) MarshalYAML() (interface{}, error) {
	if f.IsRef() {
		return f.name, nil
	}
	return f.value, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("flag: line %d: want bool or string", node.Line)
	}
	if node.Tag == "!!bool" {
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*f = Literal(b)
		return nil
	}
	if node.Tag == "!!null" {
		*f = Flag{}
		return nil
	}
	*f = ParseFlag(node.Value)
	return nil
}

// ParseFlag reads a flag from text: "" is the zero flag, "true" and "false"
// are literals, anything else names a flag. Values round-tripped through
// text stores keep their meaning.
func ParseFlag(s string) Flag {
	switch s {
	case "":
		return Flag{}
	case "true":
		return Literal(true)
	case "false":
		return Literal(false)
	}
	return FlagRef(s)
}
