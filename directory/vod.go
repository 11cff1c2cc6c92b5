package directory

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"github.com/vodsync/vodsync/constant"
	"github.com/vodsync/vodsync/util"
)

var twitchVideo = regexp.MustCompile(`/videos/(?P<id>\d+)`)

// ParseVOD accepts "platform id", "platform:id" or a twitch / youtube watch URL.
func ParseVOD(args ...string) (platform, vodID string, err error) {
	switch len(args) {
	case 2:
		platform, vodID = strings.ToLower(args[0]), args[1]
	case 1:
		if before, after, ok := strings.Cut(args[0], ":"); ok && !strings.HasPrefix(after, "//") {
			platform, vodID = strings.ToLower(before), after
		} else {
			platform, vodID, err = parseVODURL(args[0])
			if err != nil {
				return "", "", err
			}
		}
	default:
		return "", "", fmt.Errorf("expected PLATFORM VODID, PLATFORM:VODID or a video URL")
	}

	if !lo.Contains(constant.Platforms, platform) {
		return "", "", fmt.Errorf("unknown platform %q (want one of %s)", platform, strings.Join(constant.Platforms, ", "))
	}
	if vodID == "" {
		return "", "", fmt.Errorf("empty vod id")
	}
	return platform, vodID, nil
}

func parseVODURL(raw string) (platform, vodID string, err error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("not a video URL: %q", raw)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch {
	case strings.HasSuffix(host, "twitch.tv"):
		id := util.ReGroups(twitchVideo, u.Path)["id"]
		return constant.Twitch, id, nil
	case host == "youtu.be":
		return constant.YouTube, strings.Trim(u.Path, "/"), nil
	case strings.HasSuffix(host, "youtube.com"):
		return constant.YouTube, u.Query().Get("v"), nil
	}
	return "", "", fmt.Errorf("unsupported video host %q", u.Host)
}
