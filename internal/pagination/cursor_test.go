package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 20, 9, 15, 0, 123456789, time.UTC)

	cursor, err := Decode(Encode(ts, "le_0a1b2c"))
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.True(t, ts.Equal(cursor.CreatedAt))
	assert.Equal(t, "le_0a1b2c", cursor.ID)
}

func TestDecodeEmptyMeansNewest(t *testing.T) {
	cursor, err := Decode("")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, in := range []string{
		"%%%not-base64%%%",
		base64.URLEncoding.EncodeToString([]byte("no-separator")),
		base64.URLEncoding.EncodeToString([]byte("not-a-number|le_1")),
	} {
		_, err := Decode(in)
		assert.ErrorIs(t, err, ErrInvalidCursor, "input %q", in)
	}
}

func TestComputePageUnderLimit(t *testing.T) {
	items := []string{"le_1", "le_2"}
	page, next, hasMore := ComputePage(items, 5, func(s string) (time.Time, string) {
		return time.Now(), s
	})
	assert.Len(t, page, 2)
	assert.Empty(t, next)
	assert.False(t, hasMore)
}

func TestComputePageOverfetch(t *testing.T) {
	// Four items fetched for a page of three: the extra one signals more.
	items := []string{"le_1", "le_2", "le_3", "le_4"}
	page, next, hasMore := ComputePage(items, 3, func(s string) (time.Time, string) {
		return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), s
	})
	assert.Len(t, page, 3)
	assert.True(t, hasMore)

	cursor, err := Decode(next)
	require.NoError(t, err)
	assert.Equal(t, "le_3", cursor.ID, "cursor should point at the last item served")
}

func TestComputePageExactLimit(t *testing.T) {
	items := []string{"le_1", "le_2", "le_3"}
	page, next, hasMore := ComputePage(items, 3, func(s string) (time.Time, string) {
		return time.Now(), s
	})
	assert.Len(t, page, 3)
	assert.Empty(t, next)
	assert.False(t, hasMore)
}
