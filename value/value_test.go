package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinhphatfsg/rulemorph/value"
)

func TestEqual_StrictVariant(t *testing.T) {
	assert.True(t, value.Equal(int64(1), int64(1)))
	assert.False(t, value.Equal(int64(1), float64(1.0)), "int and float must never be equal even when numerically identical")
	assert.True(t, value.Equal(value.Missing, value.Missing))
	assert.False(t, value.Equal(value.Missing, nil), "missing is distinct from null")
	assert.True(t, value.Equal(nil, nil))
	assert.True(t, value.Equal("a", "a"))
	assert.False(t, value.Equal("1", int64(1)))
}

func TestEqual_Array(t *testing.T) {
	a := []any{int64(1), "x", nil}
	b := []any{int64(1), "x", nil}
	c := []any{int64(1), "x"}
	assert.True(t, value.Equal(a, b))
	assert.False(t, value.Equal(a, c))
}

func TestEqual_Object(t *testing.T) {
	a := map[string]any{"a": int64(1), "b": "x"}
	b := value.ObjectFromMap(map[string]any{"b": "x", "a": int64(1)})
	assert.True(t, value.Equal(a, b), "object equality ignores key order")
}

func TestCompare_Numeric(t *testing.T) {
	c, err := value.Compare(int64(1), int64(2))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = value.Compare("3", int64(2))
	require.NoError(t, err)
	assert.Equal(t, 1, c, "numeric-looking strings compare numerically")
}

func TestCompare_Lexicographic(t *testing.T) {
	c, err := value.Compare("apple", "banana")
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestCompare_TypeMismatch(t *testing.T) {
	_, err := value.Compare(true, int64(1))
	assert.Error(t, err)
	_, err = value.Compare("abc", int64(1))
	assert.Error(t, err, "non-numeric string vs numeric is a mismatch")
}

func TestArith_IntVsFloatPromotion(t *testing.T) {
	r, err := value.Add(int64(1), int64(2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), r)

	r, err = value.Add(int64(1), float64(2))
	require.NoError(t, err)
	assert.Equal(t, float64(3), r)
}

func TestDiv_IntegralStaysInt(t *testing.T) {
	r, err := value.Div(int64(10), int64(2))
	require.NoError(t, err)
	assert.Equal(t, int64(5), r)

	r, err = value.Div(int64(10), int64(3))
	require.NoError(t, err)
	assert.Equal(t, float64(10)/float64(3), r)
}

func TestDiv_ByZero(t *testing.T) {
	_, err := value.Div(int64(1), int64(0))
	assert.Error(t, err)
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	r, err := value.Round(float64(2.5), 0)
	require.NoError(t, err)
	assert.Equal(t, float64(3), r)

	r, err = value.Round(float64(-2.5), 0)
	require.NoError(t, err)
	assert.Equal(t, float64(-3), r)

	r, err = value.Round(float64(1.005), 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.01, r, 0.0001)
}

func TestCastInt_RejectsNonCleanStrings(t *testing.T) {
	_, err := value.CastInt("3.2")
	assert.Error(t, err, `"3.2" |> int must fail rather than truncate`)
}

func TestCastInt_TruncatesFloatTowardZero(t *testing.T) {
	r, err := value.CastInt(float64(3.7))
	require.NoError(t, err)
	assert.Equal(t, int64(3), r)

	r, err = value.CastInt(float64(-3.7))
	require.NoError(t, err)
	assert.Equal(t, int64(-3), r)
}

func TestCastBool_StringRules(t *testing.T) {
	r, err := value.CastBool("")
	require.NoError(t, err)
	assert.False(t, r)

	r, err = value.CastBool("true")
	require.NoError(t, err)
	assert.True(t, r)

	_, err = value.CastBool("yes")
	assert.Error(t, err, "non-canonical strings must fail rather than guess")
}

func TestObject_PreservesInsertionOrder(t *testing.T) {
	o := value.NewObject()
	o.Set("z", 1)
	o.Set("a", 2)
	o.Set("m", 3)
	assert.Equal(t, []string{"z", "a", "m"}, o.Keys())

	b, err := o.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":2,"m":3}`, string(b))
}
