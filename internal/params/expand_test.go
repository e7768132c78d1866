package params

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maps(combos []Combination) []map[string]any {
	out := make([]map[string]any, len(combos))
	for i, c := range combos {
		out[i] = c.Map()
	}
	return out
}

func TestExpand(t *testing.T) {
	tests := map[string]struct {
		set  func() *Set
		want []map[string]any
	}{
		"single list": {
			set:  func() *Set { return NewSet().Put("steps", List("1,2,3")) },
			want: []map[string]any{{"steps": "1"}, {"steps": "2"}, {"steps": "3"}},
		},
		"last key varies fastest": {
			set: func() *Set {
				return NewSet().Put("a", List("a,b")).Put("b", List("x,y"))
			},
			want: []map[string]any{
				{"a": "a", "b": "x"},
				{"a": "a", "b": "y"},
				{"a": "b", "b": "x"},
				{"a": "b", "b": "y"},
			},
		},
		"tokens are trimmed": {
			set:  func() *Set { return NewSet().Put("w", List(" 1 , 2 ")) },
			want: []map[string]any{{"w": "1"}, {"w": "2"}},
		},
		"empty string yields one empty token": {
			set:  func() *Set { return NewSet().Put("w", List("")) },
			want: []map[string]any{{"w": ""}},
		},
		"scalars pass through unsplit": {
			set: func() *Set {
				return NewSet().Put("n", Scalar(42)).Put("hr", Scalar(true))
			},
			want: []map[string]any{{"n": 42, "hr": true}},
		},
		"only absent": {
			set: func() *Set {
				return NewSet().Put("a", Absent()).Put("b", Absent())
			},
			want: []map[string]any{{"a": nil, "b": nil}},
		},
		"empty set": {
			set:  NewSet,
			want: []map[string]any{{}},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := maps(Expand(tt.set()))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Expand() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExpandMixed(t *testing.T) {
	s := NewSet().
		Put("steps", List("20, 30")).
		Put("seed", Scalar(7)).
		Put("negative", Absent()).
		Put("weight", Scalar(1.5)).
		Put("hr", Absent())

	combos := Expand(s)
	require.Len(t, combos, 2)

	for i, c := range combos {
		assert.Equal(t, []string{"steps", "seed", "negative", "weight", "hr"}, c.Keys())
		seed, ok := c.Get("seed")
		require.True(t, ok)
		assert.Equal(t, 7, seed.Interface())
		neg, _ := c.Get("negative")
		assert.True(t, neg.IsAbsent())
		hr, _ := c.Get("hr")
		assert.True(t, hr.IsAbsent())
		steps, _ := c.String("steps")
		assert.Equal(t, []string{"20", "30"}[i], steps)
	}
}

func TestExpandCount(t *testing.T) {
	s := NewSet().
		Put("a", List("1,2,3")).
		Put("b", Absent()).
		Put("c", List("x,y")).
		Put("d", Scalar("not split, ever"))

	assert.Len(t, Expand(s), 6)
	for _, c := range Expand(s) {
		d, _ := c.String("d")
		assert.Equal(t, "not split, ever", d)
	}
}

func TestExpandIdempotent(t *testing.T) {
	s := NewSet().
		Put("steps", List("10,20")).
		Put("weight", List("0.5, 1.0")).
		Put("seed", Scalar(-1)).
		Put("model", Absent())

	for _, c := range Expand(s) {
		again := Expand(c.Set())
		require.Len(t, again, 1)
		if diff := cmp.Diff(c.Map(), again[0].Map()); diff != "" {
			t.Errorf("re-expansion changed combination (-want +got):\n%s", diff)
		}
		assert.Equal(t, c.Keys(), again[0].Keys())
	}
}

func TestExpandDoesNotMutateInput(t *testing.T) {
	s := NewSet().Put("a", List("1,2")).Put("b", Absent())
	_ = Expand(s)

	v, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, KindList, v.Kind())
	assert.Equal(t, "1,2", v.Interface())
	assert.Equal(t, []string{"a", "b"}, s.Keys())
}

func TestSetPutKeepsPosition(t *testing.T) {
	s := NewSet().Put("a", List("1")).Put("b", List("2")).Put("a", List("3,4"))
	assert.Equal(t, []string{"a", "b"}, s.Keys())
	assert.Equal(t, 2, s.Len())

	got := maps(Expand(s))
	assert.Equal(t, []map[string]any{{"a": "3", "b": "2"}, {"a": "4", "b": "2"}}, got)
}

func TestFromAny(t *testing.T) {
	tests := map[string]struct {
		in       any
		wantKind Kind
		wantErr  bool
	}{
		"nil is absent":      {in: nil, wantKind: KindAbsent},
		"string is list":     {in: "1,2", wantKind: KindList},
		"int is scalar":      {in: 3, wantKind: KindScalar},
		"float is scalar":    {in: 0.75, wantKind: KindScalar},
		"bool is scalar":     {in: false, wantKind: KindScalar},
		"value passes as is": {in: Absent(), wantKind: KindAbsent},
		"slice is rejected":  {in: []string{"a"}, wantErr: true},
		"map is rejected":    {in: map[string]int{}, wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			v, err := FromAny(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidParameterValue))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, v.Kind())
		})
	}
}

func TestPutAnyWrapsName(t *testing.T) {
	err := NewSet().PutAny("steps", struct{}{})
	require.ErrorIs(t, err, ErrInvalidParameterValue)
	assert.Contains(t, err.Error(), `"steps"`)
}

func TestCombinationNumbers(t *testing.T) {
	s := NewSet().
		Put("steps", List("20")).
		Put("weight", List("1.25")).
		Put("bad", List("abc")).
		Put("n", Scalar(5)).
		Put("none", Absent())
	c := Expand(s)[0]

	n, ok, err := c.Int("steps")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 20, n)

	f, ok, err := c.Float("weight")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 1.25, f, 1e-9)

	n, ok, err = c.Int("n")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	_, ok, err = c.Int("none")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = c.Int("bad")
	assert.ErrorIs(t, err, ErrInvalidParameterValue)
	_, _, err = c.Float("bad")
	assert.ErrorIs(t, err, ErrInvalidParameterValue)
}

func TestCombinationFloatRejectsNonFinite(t *testing.T) {
	s := NewSet().
		Put("weight", List("NaN,+Inf")).
		Put("scalar", Scalar(math.NaN()))
	for _, c := range Expand(s) {
		_, ok, err := c.Float("weight")
		assert.True(t, ok)
		assert.ErrorIs(t, err, ErrInvalidParameterValue)

		_, _, err = c.Float("scalar")
		assert.ErrorIs(t, err, ErrInvalidParameterValue)

		_, _, err = c.Int("weight")
		assert.ErrorIs(t, err, ErrInvalidParameterValue)
	}
}
