package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testRecord = `{"userid":123,"username":"dreamer","name":"Dreamer","avatar":"abc","banner":null,"accent_color":5793266,"avatar_decoration_data":null,"verified":true,"authAt":"2024-05-01T12:00:00.000Z"}`

func writeConfig(t *testing.T, driver string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := `
server:
  base_url: "http://portal.test"
auth:
  callback_secret: "0123456789abcdef0123456789abcdef"
backend:
  base_url: "https://verify.example.com"
storage:
  driver: ` + driver + `
  path: "` + filepath.ToSlash(filepath.Join(dir, "slots")) + `"
  cookie_secret: "fedcba9876543210fedcba9876543210"
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func writeRecord(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "record.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestLifecycle(t *testing.T) {
	cfg := writeConfig(t, "file")
	record := writeRecord(t, testRecord)

	steps := []struct {
		args []string
		want string
	}{
		{args: []string{"-config", cfg, "status"}, want: "inactive"},
		{args: []string{"-config", cfg, "set", "-file", record}, want: "stored login for dreamer (123)"},
		{args: []string{"-config", cfg, "status"}, want: "active"},
		{args: []string{"-config", cfg, "show"}, want: `"username": "dreamer"`},
		{args: []string{"-config", cfg, "logout"}, want: "logged out"},
		{args: []string{"-config", cfg, "show"}, want: "no login stored"},
	}

	for _, step := range steps {
		out, err := runCmd(t, step.args...)
		if err != nil {
			t.Fatalf("%v: error = %v", step.args, err)
		}
		if !strings.Contains(out, step.want) {
			t.Fatalf("%v: output = %q, want containing %q", step.args, out, step.want)
		}
	}
}

func TestDeviceSlotsAreSeparate(t *testing.T) {
	cfg := writeConfig(t, "bolt")
	record := writeRecord(t, testRecord)
	device := "6f1c1d56-7f0e-4a5b-9a57-2b8f4f3f3c11"

	if _, err := runCmd(t, "-config", cfg, "-device", device, "set", "-file", record); err != nil {
		t.Fatalf("set error = %v", err)
	}

	out, err := runCmd(t, "-config", cfg, "status")
	if err != nil || strings.TrimSpace(out) != "inactive" {
		t.Fatalf("unprefixed status = %q, %v, want inactive", out, err)
	}
	out, err = runCmd(t, "-config", cfg, "-device", device, "status")
	if err != nil || strings.TrimSpace(out) != "active" {
		t.Fatalf("device status = %q, %v, want active", out, err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := writeConfig(t, "file")
	record := writeRecord(t, testRecord)

	out, err := runCmd(t, "-config", cfg, "token", "-file", record)
	if err != nil {
		t.Fatalf("token error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "http://portal.test/auth/callback?token=") {
		t.Fatalf("token output = %q", out)
	}

	if _, err := runCmd(t, "-config", cfg, "set", "-token", lines[0]); err != nil {
		t.Fatalf("set -token error = %v", err)
	}
	out, _ = runCmd(t, "-config", cfg, "status")
	if strings.TrimSpace(out) != "active" {
		t.Fatalf("status = %q, want active", out)
	}
}

func TestSetRejectsMalformedRecord(t *testing.T) {
	cfg := writeConfig(t, "file")
	record := writeRecord(t, `{"userid":123}`)

	if _, err := runCmd(t, "-config", cfg, "set", "-file", record); err == nil {
		t.Fatal("set error = nil, want malformed record error")
	}
}

func TestUsageErrors(t *testing.T) {
	cfg := writeConfig(t, "file")

	for _, args := range [][]string{
		{},
		{"-config", cfg, "frobnicate"},
		{"-config", cfg, "set"},
	} {
		if _, err := runCmd(t, args...); !errors.Is(err, errUsage) {
			t.Fatalf("%v: error = %v, want errUsage", args, err)
		}
	}
}

func TestCookieDriverHasNothingToManage(t *testing.T) {
	cfg := writeConfig(t, "cookie")

	if _, err := runCmd(t, "-config", cfg, "status"); err == nil {
		t.Fatal("status error = nil, want error for cookie driver")
	}
}
