// Package params expands parameter sets whose values may list comma separated
// alternatives into every concrete combination.
package params

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Combination assigns exactly one resolved value to every name of the Set it
// was expanded from, in the same order.
type Combination struct {
	keys   []string
	values map[string]Value
}

// Expand returns the Cartesian product of the candidate values of every
// non-absent parameter in s. The last declared parameter varies fastest.
// Absent parameters are carried as absent in every combination.
func Expand(s *Set) []Combination {
	var present []string
	for _, k := range s.keys {
		if !s.values[k].IsAbsent() {
			present = append(present, k)
		}
	}

	lists := make([][]Value, len(present))
	total := 1
	for i, k := range present {
		lists[i] = s.values[k].candidates()
		total *= len(lists[i])
	}

	out := make([]Combination, 0, total)
	idx := make([]int, len(present))
	for n := 0; n < total; n++ {
		c := Combination{keys: s.Keys(), values: make(map[string]Value, len(s.keys))}
		for i, k := range present {
			c.values[k] = lists[i][idx[i]]
		}
		for _, k := range s.keys {
			if _, ok := c.values[k]; !ok {
				c.values[k] = Absent()
			}
		}
		out = append(out, c)

		// odometer step, rightmost first
		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(lists[i]) {
				break
			}
			idx[i] = 0
		}
	}
	return out
}

func splitTokens(s string) []string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Keys returns the parameter names in declaration order.
func (c Combination) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Get returns the value resolved for name.
func (c Combination) Get(name string) (Value, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Set converts the combination back into a parameter Set of scalars and
// absence markers.
func (c Combination) Set() *Set {
	s := NewSet()
	for _, k := range c.keys {
		s.Put(k, c.values[k])
	}
	return s
}

// Map returns the payloads keyed by name, nil for absent values.
func (c Combination) Map() map[string]any {
	m := make(map[string]any, len(c.keys))
	for _, k := range c.keys {
		m[k] = c.values[k].Interface()
	}
	return m
}

// String reports the resolved value of name as text. ok is false when the
// name is unknown or absent.
func (c Combination) String(name string) (string, bool) {
	v, ok := c.values[name]
	if !ok || v.IsAbsent() {
		return "", false
	}
	if s, isStr := v.Interface().(string); isStr {
		return s, true
	}
	return fmt.Sprint(v.Interface()), true
}

// Int parses the value of name as an integer. ok is false when the value is
// absent.
func (c Combination) Int(name string) (n int, ok bool, err error) {
	v, present := c.values[name]
	if !present || v.IsAbsent() {
		return 0, false, nil
	}
	switch t := v.Interface().(type) {
	case int:
		return t, true, nil
	case int64:
		return int(t), true, nil
	case float64:
		if t != float64(int(t)) {
			return 0, true, fmt.Errorf("parameter %q: %w: %v is not an integer", name, ErrInvalidParameterValue, t)
		}
		return int(t), true, nil
	}
	s, _ := c.String(name)
	n, err = strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, true, fmt.Errorf("parameter %q: %w: %q is not an integer", name, ErrInvalidParameterValue, s)
	}
	return n, true, nil
}

// Float parses the value of name as a float. ok is false when the value is
// absent.
func (c Combination) Float(name string) (f float64, ok bool, err error) {
	v, present := c.values[name]
	if !present || v.IsAbsent() {
		return 0, false, nil
	}
	switch t := v.Interface().(type) {
	case float64:
		return finite(name, t)
	case float32:
		return finite(name, float64(t))
	case int:
		return float64(t), true, nil
	}
	s, _ := c.String(name)
	f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, true, fmt.Errorf("parameter %q: %w: %q is not a number", name, ErrInvalidParameterValue, s)
	}
	return finite(name, f)
}

func finite(name string, f float64) (float64, bool, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true, fmt.Errorf("parameter %q: %w: %v is not a finite number", name, ErrInvalidParameterValue, f)
	}
	return f, true, nil
}
