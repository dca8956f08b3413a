package pagination

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

func TestParseSortOrder(t *testing.T) {
	require.Equal(t, SortPopular, ParseSortOrder("Popular"))
	require.Equal(t, SortTitle, ParseSortOrder("TITLE"))
	require.Equal(t, SortNewest, ParseSortOrder("bogus"))
	require.Equal(t, SortNewest, ParseSortOrder(""))
}

func TestCursorEncodeDecode_RoundTrip(t *testing.T) {
	cases := []Cursor{
		NewNewestCursor(1700000000000, "abc-123"),
		NewTitleCursor("Couch to 5K", "def-456"),
		NewPopularCursor(42, 1700000000000, "ghi-789"),
	}
	for _, c := range cases {
		encoded := c.Encode()
		decoded, err := Decode(encoded, c.SortBy)
		require.NoError(t, err)
		require.Equal(t, c, decoded)
	}
}

func TestDecode_RejectsMismatchedSort(t *testing.T) {
	encoded := NewNewestCursor(1, "x").Encode()
	_, err := Decode(encoded, SortTitle)
	require.Equal(t, pierreerr.KindInvalidCursor, pierreerr.KindOf(err))
}

func TestDecode_RejectsInvalidBase64(t *testing.T) {
	_, err := Decode("not base64!!!", SortNewest)
	require.Equal(t, pierreerr.KindInvalidCursor, pierreerr.KindOf(err))
}

func TestDecode_RejectsMalformedParts(t *testing.T) {
	_, err := Decode(encodeRaw("newest|only-one-part"), SortNewest)
	require.Equal(t, pierreerr.KindInvalidCursor, pierreerr.KindOf(err))
}

func TestDecode_RejectsNonNumericTimestamp(t *testing.T) {
	_, err := Decode(encodeRaw("newest|not-a-number|abc"), SortNewest)
	require.Equal(t, pierreerr.KindInvalidCursor, pierreerr.KindOf(err))
}

func encodeRaw(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}
