package constant

// Primary stream platforms recognized by the log directory.
const (
	Twitch  = "twitch"
	YouTube = "youtube"
)

// Platforms lists every primary stream platform in directory key order.
var Platforms = []string{Twitch, YouTube}

// YouTubeWatchURL is the template used to open a resolved track in a separate player.
const YouTubeWatchURL = "https://www.youtube.com/watch?v=%s"
