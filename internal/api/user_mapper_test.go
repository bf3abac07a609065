package api

import (
	"testing"

	"portal/internal/backend"
	"portal/internal/login"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Tom & Jerry <3", want: "Tom & Jerry <3"},
		{in: "tom&jerry", want: "tom&jerry"},
		{in: "Dreamer's Land", want: "Dreamer's Land"},
		{in: `<b>bold</b> "quoted"`, want: `bold "quoted"`},
		{in: "<script>alert(1)</script>hi", want: "hi"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := plainText(tt.in); got != tt.want {
			t.Fatalf("plainText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestModelUserKeepsDisplayText(t *testing.T) {
	user := modelUserFromLogin(&login.Data{UserID: 1, Username: "tom&jerry", Name: "Tom & Jerry <3", AuthAt: "t"})

	if user.Username != "tom&jerry" {
		t.Fatalf("username = %q, want %q", user.Username, "tom&jerry")
	}
	if user.Name != "Tom & Jerry <3" {
		t.Fatalf("name = %q, want %q", user.Name, "Tom & Jerry <3")
	}
}

func TestModelInfoKeepsDisplayText(t *testing.T) {
	info := modelInfoFromBackend(&backend.Info{
		Discord: backend.DiscordStats{ServerName: "Cats & Dogs"},
		YouTube: backend.YouTubeStats{ChannelName: "<i>R&D</i>"},
	})

	if info.DiscordServerName != "Cats & Dogs" || info.YouTubeChannelName != "R&D" {
		t.Fatalf("info names = %q, %q", info.DiscordServerName, info.YouTubeChannelName)
	}
}
