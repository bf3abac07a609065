package models

import "time"

// Portal is everything the portal page renders in one response.
type Portal struct {
	ServerName    string `json:"serverName"`
	User          *User  `json:"user"`
	LoginURL      string `json:"loginUrl"`
	LogoutURL     string `json:"logoutUrl"`
	VerifyURL     string `json:"verifyUrl"`
	Info          *Info  `json:"info"`
	InfoLoading   bool   `json:"infoLoading"`
	InfoError     string `json:"infoError,omitempty"`
	InfoConnected bool   `json:"infoConnected"`
}

type Info struct {
	DiscordServerName  string    `json:"discordServerName"`
	DiscordMembers     int       `json:"discordMembers"`
	DiscordOnline      int       `json:"discordOnline"`
	DiscordVerified    int       `json:"discordVerified"`
	YouTubeChannelName string    `json:"youtubeChannelName"`
	YouTubeChannelURL  string    `json:"youtubeChannelUrl,omitempty"`
	YouTubeSubscribers int64     `json:"youtubeSubscribers"`
	YouTubeVideos      int64     `json:"youtubeVideos"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Verification is the account shown on the verify page before the user
// connects YouTube.
type Verification struct {
	DiscordID   string `json:"discordId"`
	DisplayName string `json:"displayName"`
	DiscordTag  string `json:"discordTag"`
	AvatarURL   string `json:"avatarUrl"`
	ConnectURL  string `json:"connectUrl"`
}
