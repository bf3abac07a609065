package login

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEncodeUsesStorageFieldNames(t *testing.T) {
	raw, err := Encode(testData())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	for _, key := range []string{
		"userid", "username", "name", "avatar", "banner", "accent_color",
		"avatar_decoration_data", "verified", "authAt",
	} {
		if _, ok := fields[key]; !ok {
			t.Errorf("encoded record missing %q: %s", key, raw)
		}
	}
	if len(fields) != 9 {
		t.Errorf("encoded record has %d fields, want 9", len(fields))
	}

	var deco map[string]json.RawMessage
	if err := json.Unmarshal(fields["avatar_decoration_data"], &deco); err != nil {
		t.Fatalf("json.Unmarshal(decoration) error = %v", err)
	}
	for _, key := range []string{"asset", "sku_id", "expires_at"} {
		if _, ok := deco[key]; !ok {
			t.Errorf("decoration missing %q", key)
		}
	}
}

func TestDecodeReportsMalformed(t *testing.T) {
	_, err := Decode("not json")
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("Decode() error = %v, want ErrMalformed", err)
	}
}

func TestDecodeRecordWrittenByAuthService(t *testing.T) {
	raw := `{"userid":852141234567890123,"username":"dreamer","name":"Dreamer","avatar":"a_1f2e","banner":null,` +
		`"accent_color":16711680,"avatar_decoration_data":{"asset":"a_x","sku_id":"1","expires_at":0},` +
		`"verified":false,"authAt":"2024-05-01T12:00:00.000Z"}`

	d, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if d.UserID != 852141234567890123 {
		t.Fatalf("UserID = %d, want 852141234567890123", d.UserID)
	}
	if d.Banner != nil {
		t.Fatalf("Banner = %q, want nil", *d.Banner)
	}
	if d.AvatarDecoration == nil || d.AvatarDecoration.Asset != "a_x" {
		t.Fatalf("AvatarDecoration = %+v, want asset a_x", d.AvatarDecoration)
	}
}
