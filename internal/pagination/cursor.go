// Package pagination implements the opaque, sort-tagged pagination
// cursor described in spec §3/§4.2/§9: a single bytewise representation
// that encodes the sort order alongside the position values, so a cursor
// minted for one sort is rejected if replayed against another.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// SortOrder is the closed set of list sorts the core exposes cursors for.
type SortOrder string

const (
	SortNewest  SortOrder = "newest"
	SortPopular SortOrder = "popular" // reserved, see SPEC_FULL.md §13.1
	SortTitle   SortOrder = "title"
)

// ParseSortOrder parses a case-insensitive sort name, defaulting to
// SortNewest for anything unrecognized.
func ParseSortOrder(s string) SortOrder {
	switch strings.ToLower(s) {
	case "popular":
		return SortPopular
	case "title":
		return SortTitle
	default:
		return SortNewest
	}
}

// Cursor is a sort-aware pagination position. SortBy selects which value
// fields are meaningful: CreatedAtMs for newest, Title for title, and
// InstallCount plus CreatedAtMs for popular.
type Cursor struct {
	SortBy        SortOrder
	ID            string
	CreatedAtMs   int64
	InstallCount  uint32
	Title         string
}

// NewNewestCursor builds a cursor for the `created_at DESC, id DESC` sort.
func NewNewestCursor(createdAtMs int64, id string) Cursor {
	return Cursor{SortBy: SortNewest, CreatedAtMs: createdAtMs, ID: id}
}

// NewTitleCursor builds a cursor for the `title ASC, id ASC` sort.
func NewTitleCursor(title, id string) Cursor {
	return Cursor{SortBy: SortTitle, Title: title, ID: id}
}

// NewPopularCursor builds a cursor for the `install_count DESC,
// created_at DESC, id DESC` sort. See SPEC_FULL.md §13.1 — not wired to a
// live store today, kept for forward compatibility.
func NewPopularCursor(installCount uint32, createdAtMs int64, id string) Cursor {
	return Cursor{SortBy: SortPopular, InstallCount: installCount, CreatedAtMs: createdAtMs, ID: id}
}

// Encode renders the cursor as `sort-tag|v1|v2|...|id`, base64 URL-safe,
// unpadded.
func (c Cursor) Encode() string {
	var raw string
	switch c.SortBy {
	case SortNewest:
		raw = fmt.Sprintf("newest|%d|%s", c.CreatedAtMs, c.ID)
	case SortPopular:
		raw = fmt.Sprintf("popular|%d|%d|%s", c.InstallCount, c.CreatedAtMs, c.ID)
	case SortTitle:
		raw = fmt.Sprintf("title|%s|%s", c.Title, c.ID)
	default:
		raw = fmt.Sprintf("newest|%d|%s", c.CreatedAtMs, c.ID)
	}
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses an opaque cursor string, verifying it was minted for
// expected. A cursor minted under a different sort, or malformed, fails
// with an InvalidCursor domain error (spec invariant #6).
func Decode(encoded string, expected SortOrder) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Cursor{}, pierreerr.New(pierreerr.KindInvalidCursor, "cursor is not valid base64")
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) == 0 {
		return Cursor{}, pierreerr.New(pierreerr.KindInvalidCursor, "cursor is empty")
	}

	sortTag := SortOrder(parts[0])
	if sortTag != expected {
		return Cursor{}, pierreerr.New(pierreerr.KindInvalidCursor, "cursor sort tag does not match requested sort")
	}

	switch sortTag {
	case SortNewest:
		if len(parts) != 3 {
			return Cursor{}, pierreerr.New(pierreerr.KindInvalidCursor, "malformed newest cursor")
		}
		ms, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return Cursor{}, pierreerr.New(pierreerr.KindInvalidCursor, "malformed newest cursor timestamp")
		}
		return Cursor{SortBy: SortNewest, CreatedAtMs: ms, ID: parts[2]}, nil

	case SortPopular:
		if len(parts) != 4 {
			return Cursor{}, pierreerr.New(pierreerr.KindInvalidCursor, "malformed popular cursor")
		}
		count, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return Cursor{}, pierreerr.New(pierreerr.KindInvalidCursor, "malformed popular cursor count")
		}
		ms, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return Cursor{}, pierreerr.New(pierreerr.KindInvalidCursor, "malformed popular cursor timestamp")
		}
		return Cursor{SortBy: SortPopular, InstallCount: uint32(count), CreatedAtMs: ms, ID: parts[3]}, nil

	case SortTitle:
		if len(parts) != 3 {
			return Cursor{}, pierreerr.New(pierreerr.KindInvalidCursor, "malformed title cursor")
		}
		return Cursor{SortBy: SortTitle, Title: parts[1], ID: parts[2]}, nil

	default:
		return Cursor{}, pierreerr.New(pierreerr.KindInvalidCursor, "unknown sort tag")
	}
}

// Direction selects which way a cursor-based query walks from its cursor.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// Params bundles the inputs to a cursor-paginated list query.
type Params struct {
	Cursor    *Cursor
	Limit     int
	Direction Direction
}

// Page is the cursor-paginated result envelope.
type Page[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"next_cursor,omitempty"`
	PrevCursor *string `json:"prev_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
	Count      int     `json:"count"`
}
