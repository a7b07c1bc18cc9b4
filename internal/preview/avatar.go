package preview

import "strings"

// DefaultAvatarIcon is the icon used for steps without an avatar.
const DefaultAvatarIcon = "user.svg"

const resourcePrefix = "/resource/"

// ResolveAvatar turns an avatar reference into a URL. Absolute http(s) URLs
// and resource paths pass through; bare names are resolved under iconBase.
func ResolveAvatar(ref, iconBase string) string {
	base := strings.TrimRight(iconBase, "/")
	if ref == "" {
		return base + "/" + DefaultAvatarIcon
	}
	if strings.HasPrefix(ref, resourcePrefix) || strings.HasPrefix(ref, "http") {
		return ref
	}
	return base + "/" + ref
}
