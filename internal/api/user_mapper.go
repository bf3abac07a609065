package api

import (
	"html"
	"strconv"

	"github.com/microcosm-cc/bluemonday"

	"portal/internal/backend"
	"portal/internal/cdn"
	"portal/internal/login"
	"portal/internal/models"
)

var textPolicy = bluemonday.StrictPolicy()

// plainText strips markup from display text. The result goes out as JSON, so
// the entities StrictPolicy leaves behind are decoded again: "Tom & Jerry"
// stays "Tom & Jerry" and the page escapes it when rendering.
func plainText(s string) string {
	return html.UnescapeString(textPolicy.Sanitize(s))
}

func modelUserFromLogin(d *login.Data) *models.User {
	if d == nil {
		return nil
	}

	user := &models.User{
		ID:              strconv.FormatInt(d.UserID, 10),
		Username:        plainText(d.Username),
		Name:            plainText(d.Name),
		AvatarURL:       cdn.Avatar(d.UserID, d.Avatar),
		AccentColor:     cdn.AccentHex(d.AccentColor),
		Verified:        d.Verified,
		AuthenticatedAt: d.AuthAt,
	}
	if banner := cdn.Banner(d.UserID, d.Banner); banner != "" {
		user.BannerURL = &banner
	}
	if d.AvatarDecoration != nil {
		if deco := cdn.Decoration(d.AvatarDecoration.Asset); deco != "" {
			user.DecorationURL = &deco
		}
	}
	return user
}

func modelInfoFromBackend(info *backend.Info) *models.Info {
	if info == nil {
		return nil
	}
	return &models.Info{
		DiscordServerName:  plainText(info.Discord.ServerName),
		DiscordMembers:     info.Discord.MemberCount,
		DiscordOnline:      info.Discord.OnlineCount,
		DiscordVerified:    info.Discord.VerifiedCount,
		YouTubeChannelName: plainText(info.YouTube.ChannelName),
		YouTubeChannelURL:  info.YouTube.ChannelURL,
		YouTubeSubscribers: info.YouTube.Subscribers,
		YouTubeVideos:      info.YouTube.Videos,
		UpdatedAt:          info.UpdatedAt,
	}
}
