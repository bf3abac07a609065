package models

// User is the public view of a login record, with CDN URLs resolved.
type User struct {
	ID              string  `json:"id"`
	Username        string  `json:"username"`
	Name            string  `json:"name"`
	AvatarURL       string  `json:"avatarUrl"`
	BannerURL       *string `json:"bannerUrl,omitempty"`
	AccentColor     string  `json:"accentColor"`
	DecorationURL   *string `json:"decorationUrl,omitempty"`
	Verified        bool    `json:"verified"`
	AuthenticatedAt string  `json:"authAt"`
}

type Session struct {
	LoggedIn bool  `json:"loggedIn"`
	User     *User `json:"user"`
}
