package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_PrintOrder(t *testing.T) {
	c := New(0)
	require.NoError(t, c.Print("one"))
	require.NoError(t, c.Print("two"))
	require.NoError(t, c.SetFinal("3"))

	out := c.Result()
	assert.Equal(t, []string{"one", "two"}, out.PrintedLines)
	require.NotNil(t, out.FinalValue)
	assert.Equal(t, "3", *out.FinalValue)
	assert.False(t, out.Truncated)
}

func TestCapture_WriteSplitsLines(t *testing.T) {
	c := New(0)
	require.NoError(t, c.Write("a"))
	require.NoError(t, c.Write("b\nc\n"))
	require.NoError(t, c.Write("d"))

	assert.Equal(t, []string{"ab", "c", "d"}, c.Result().PrintedLines)
}

func TestCapture_EmptyLinesAreKept(t *testing.T) {
	c := New(0)
	require.NoError(t, c.Print(""))
	require.NoError(t, c.Print("x"))

	assert.Equal(t, []string{"", "x"}, c.Result().PrintedLines)
}

func TestCapture_NothingEmitted(t *testing.T) {
	out := New(0).Result()
	assert.Empty(t, out.PrintedLines)
	assert.Nil(t, out.FinalValue)
}

func TestCapture_OutputAfterFinalIsRejected(t *testing.T) {
	c := New(0)
	require.NoError(t, c.SetFinal("1"))

	assert.ErrorIs(t, c.Print("late"), ErrFinalized)
	assert.ErrorIs(t, c.SetFinal("2"), ErrFinalized)
	assert.Equal(t, "1", *c.Result().FinalValue)
	assert.Empty(t, c.Result().PrintedLines)
}

func TestCapture_Truncation(t *testing.T) {
	c := New(10)
	require.NoError(t, c.Print("12345"))
	require.NoError(t, c.Print("67890abc"))
	require.NoError(t, c.Print("dropped"))

	out := c.Result()
	assert.True(t, out.Truncated)
	assert.Equal(t, []string{"12345", "6789"}, out.PrintedLines)
}

func TestCapture_TruncationCountsRunes(t *testing.T) {
	c := New(4)
	require.NoError(t, c.Write("h\u00e9llo"))

	out := c.Result()
	assert.True(t, out.Truncated)
	assert.Equal(t, []string{"h\u00e9ll"}, out.PrintedLines)
}

func TestCapture_Reset(t *testing.T) {
	c := New(0)
	require.NoError(t, c.Print("gone"))
	require.NoError(t, c.SetFinal("gone"))
	c.Reset()

	out := c.Result()
	assert.Empty(t, out.PrintedLines)
	assert.Nil(t, out.FinalValue)
}

func TestCapture_ResultIsACopy(t *testing.T) {
	c := New(0)
	require.NoError(t, c.Print("a"))
	out := c.Result()
	require.NoError(t, c.Print("b"))

	assert.Equal(t, []string{"a"}, out.PrintedLines)
}
