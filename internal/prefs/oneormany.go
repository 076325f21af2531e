package prefs

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// OneOrMany is a value written either as a single item or as a sequence.
// The zero value holds no items.
type OneOrMany[T any] struct {
	items []T
}

// One wraps a single item.
func One[T any](v T) OneOrMany[T] {
	return OneOrMany[T]{items: []T{v}}
}

// Many wraps an ordered list of items.
func Many[T any](vs ...T) OneOrMany[T] {
	return OneOrMany[T]{items: append([]T(nil), vs...)}
}

// Items returns the normalized, ordered list of items.
func (o OneOrMany[T]) Items() []T {
	return append([]T(nil), o.items...)
}

// Len returns the number of items.
func (o OneOrMany[T]) Len() int {
	return len(o.items)
}

// UnmarshalYAML accepts either a scalar/mapping decoded as T or a sequence of T.
func (o *OneOrMany[T]) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var many []T
		if err := node.Decode(&many); err != nil {
			return err
		}
		o.items = many
	default:
		if node.Tag == "!!null" {
			o.items = nil
			return nil
		}
		var one T
		if err := node.Decode(&one); err != nil {
			return err
		}
		o.items = []T{one}
	}
	return nil
}

// MarshalYAML writes a single item as a scalar and anything else as a sequence.
func (o OneOrMany[T]) MarshalYAML() (any, error) {
	if len(o.items) == 1 {
		return o.items[0], nil
	}
	return o.items, nil
}

// Strings normalizes a decoded preference value into a OneOrMany[string].
// nil yields no items, a scalar yields one item and a sequence of scalars
// yields one item per element. Mappings are rejected.
func Strings(v any) (OneOrMany[string], error) {
	switch vv := v.(type) {
	case nil:
		return OneOrMany[string]{}, nil
	case string:
		return One(vv), nil
	case []string:
		return Many(vv...), nil
	case []any:
		out := make([]string, 0, len(vv))
		for i, item := range vv {
			s, err := scalarString(item)
			if err != nil {
				return OneOrMany[string]{}, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, s)
		}
		return Many(out...), nil
	default:
		s, err := scalarString(vv)
		if err != nil {
			return OneOrMany[string]{}, err
		}
		return One(s), nil
	}
}

// StringsAt looks up path in p and normalizes it with Strings. An absent key
// yields no items.
func (p Prefs) StringsAt(path string) ([]string, error) {
	v, ok := p.Lookup(path)
	if !ok {
		return nil, nil
	}
	list, err := Strings(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list.Items(), nil
}

func scalarString(v any) (string, error) {
	switch vv := v.(type) {
	case string:
		return vv, nil
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(vv), nil
	default:
		return "", fmt.Errorf("expected a string or a list of strings, got %T", v)
	}
}
