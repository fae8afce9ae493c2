package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Cursor is the opaque keyset position we encode/decode.
// SinceUnix (in millis) + UserID establish a stable order over searching users.
type Cursor struct {
	UserID    int64 `json:"user_id"`
	SinceUnix int64 `json:"since_unix,omitempty"`
}

// IsZero reports whether c points at the first page.
func (c Cursor) IsZero() bool {
	return c.UserID == 0 && c.SinceUnix == 0
}

// After reports whether the row (since, id) sorts after c.
func (c Cursor) After(since, id int64) bool {
	return since > c.SinceUnix || (since == c.SinceUnix && id > c.UserID)
}

// Encode converts a Cursor into a Base64 string.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a Base64 string into a Cursor.
// Empty token → empty cursor (first page).
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token")
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token")
	}
	return c, nil
}
