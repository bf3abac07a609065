// Package cdn builds Discord CDN asset URLs from the hashes stored in a
// login record.
package cdn

import (
	"net/url"
	"strconv"
	"strings"
)

const BaseURL = "https://cdn.discordapp.com"

const defaultAvatarSize = 256

// Avatar returns the avatar image URL, or the default avatar when the user
// has no custom one.
func Avatar(userID int64, hash string) string {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		// Default avatar index for migrated usernames is (id >> 22) % 6.
		index := (uint64(userID) >> 22) % 6
		return BaseURL + "/embed/avatars/" + strconv.FormatUint(index, 10) + ".png"
	}
	return BaseURL + "/avatars/" + strconv.FormatInt(userID, 10) + "/" + url.PathEscape(hash) + ".webp?size=" + strconv.Itoa(defaultAvatarSize)
}

// AvatarForID is Avatar for callers holding the id as text, as the
// verification backend sends it.
func AvatarForID(userID, hash string) string {
	id, err := strconv.ParseInt(strings.TrimSpace(userID), 10, 64)
	if err != nil {
		return BaseURL + "/embed/avatars/0.png"
	}
	return Avatar(id, hash)
}

func Decoration(asset string) string {
	if asset == "" {
		return ""
	}
	return BaseURL + "/avatar-decoration-presets/" + url.PathEscape(asset) + ".png"
}

// Banner returns "" when the user has no banner.
func Banner(userID int64, hash *string) string {
	if hash == nil || *hash == "" {
		return ""
	}
	ext := ".png"
	if strings.HasPrefix(*hash, "a_") {
		ext = ".gif"
	}
	return BaseURL + "/banners/" + strconv.FormatInt(userID, 10) + "/" + url.PathEscape(*hash) + ext + "?size=600"
}

// AccentHex formats a packed RGB accent color as #rrggbb.
func AccentHex(color int) string {
	if color < 0 {
		return ""
	}
	s := strconv.FormatInt(int64(color&0xFFFFFF), 16)
	return "#" + strings.Repeat("0", 6-len(s)) + s
}
