package params

import "fmt"

// Set is an ordered mapping from parameter name to Value. Names are unique;
// setting an existing name replaces its value without moving it.
type Set struct {
	keys   []string
	values map[string]Value
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{values: make(map[string]Value)}
}

// Put assigns v to name.
func (s *Set) Put(name string, v Value) *Set {
	if s.values == nil {
		s.values = make(map[string]Value)
	}
	if _, ok := s.values[name]; !ok {
		s.keys = append(s.keys, name)
	}
	s.values[name] = v
	return s
}

// PutAny resolves raw with FromAny and assigns it to name.
func (s *Set) PutAny(name string, raw any) error {
	v, err := FromAny(raw)
	if err != nil {
		return fmt.Errorf("parameter %q: %w", name, err)
	}
	s.Put(name, v)
	return nil
}

// Get returns the value stored under name.
func (s *Set) Get(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Keys returns the names in declaration order.
func (s *Set) Keys() []string {
	return append([]string(nil), s.keys...)
}

func (s *Set) Len() int { return len(s.keys) }
