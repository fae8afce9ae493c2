package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEmptyTokenIsFirstPage(t *testing.T) {
	c, err := Decode("")
	require.NoError(t, err)
	assert.True(t, c.IsZero())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("not-base64!!")
	assert.Error(t, err)

	_, err = Decode("bm90IGpzb24=") // "not json"
	assert.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	token, err := Encode(Cursor{UserID: 42, SinceUnix: 1700000000000})
	require.NoError(t, err)

	c, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), c.UserID)
	assert.Equal(t, int64(1700000000000), c.SinceUnix)
}

func TestCursorAfter(t *testing.T) {
	c := Cursor{UserID: 10, SinceUnix: 100}

	assert.True(t, c.After(101, 1))
	assert.True(t, c.After(100, 11))
	assert.False(t, c.After(100, 10))
	assert.False(t, c.After(99, 50))
}
