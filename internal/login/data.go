package login

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Key is the single storage key holding the login record.
const Key = "login_data"

// AvatarDecoration is the overlay drawn around a Discord avatar.
type AvatarDecoration struct {
	Asset     string `json:"asset"`
	SKUID     string `json:"sku_id"`
	ExpiresAt int64  `json:"expires_at"`
}

// Data is the persisted record of the currently authenticated user. Field
// names match what the auth redirect service writes.
type Data struct {
	UserID           int64             `json:"userid"`
	Username         string            `json:"username"`
	Name             string            `json:"name"`
	Avatar           string            `json:"avatar"`
	Banner           *string           `json:"banner"`
	AccentColor      int               `json:"accent_color"`
	AvatarDecoration *AvatarDecoration `json:"avatar_decoration_data"`
	Verified         bool              `json:"verified"`
	AuthAt           string            `json:"authAt"`
}

// requiredKeys are the non-nullable fields a stored record must carry.
var requiredKeys = []string{"userid", "username", "name", "accent_color", "verified", "authAt"}

// Encode serialises d into the text stored under Key.
func Encode(d *Data) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encoding login data: %w", err)
	}
	return string(b), nil
}

// Decode parses raw stored text. Any failure wraps ErrMalformed.
func Decode(raw string) (*Data, error) {
	var fields map[string]json.RawMessage
	if err := decodeSingle(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}

	for _, k := range requiredKeys {
		v, ok := fields[k]
		if !ok || bytes.Equal(v, []byte("null")) {
			return nil, fmt.Errorf("%w: missing %s", ErrMalformed, k)
		}
	}

	var d Data
	if err := decodeSingle(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return &d, nil
}

func decodeSingle(raw string, dst any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("trailing data")
	}
	return nil
}
