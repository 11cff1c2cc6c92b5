package cmd

import (
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/muesli/reflow/truncate"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vodsync/vodsync/color"
	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/style"
	"github.com/vodsync/vodsync/util"
)

func init() {
	rootCmd.AddCommand(tracksCmd)

	tracksCmd.Flags().StringP("log", "l", "", "Read the event log from a file instead of the directory")
	tracksCmd.Flags().StringP("filter", "f", "", "Only show tracks fuzzily matching this text")
}

// filterTracks keeps tracks whose "title - artist" fuzzily contains query.
func filterTracks(tracks []eventlog.Track, query string) []eventlog.Track {
	if query == "" {
		return tracks
	}
	return lo.Filter(tracks, func(t eventlog.Track, _ int) bool {
		return fuzzy.MatchNormalizedFold(query, t.String())
	})
}

var tracksCmd = &cobra.Command{
	Use:   "tracks [platform] [vod]",
	Short: "List the songs played during a broadcast",
	Args:  cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		path := lo.Must(cmd.Flags().GetString("log"))
		if path == "" && len(args) == 0 {
			handleErr(fmt.Errorf("either a vod or --log must be given"))
		}

		loaded, err := loadLog(cmd.Context(), path, args)
		handleErr(err)

		tracks := filterTracks(loaded.log.Tracks(), lo.Must(cmd.Flags().GetString("filter")))

		fmt.Printf("%s %s\n\n", style.Bold(loaded.name), style.Faint(util.Quantify(len(tracks), "track", "tracks")))

		width := uint(util.TerminalWidth(80))
		num := style.Fg(color.Purple)
		for i, t := range tracks {
			prefix := fmt.Sprintf("%3d. ", i+1)
			line := t.Title
			if t.Artist != "" {
				line += style.Faint(" - " + t.Artist)
			}
			fmt.Println(num(prefix) + truncate.StringWithTail(line, width-uint(len(prefix)), "…"))
		}

		if len(tracks) == 0 {
			fmt.Println(style.Faint(strings.Repeat(" ", 5) + "nothing to show"))
		}
	},
}
