package cmd

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vodsync/vodsync/color"
	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/icon"
	"github.com/vodsync/vodsync/position"
	"github.com/vodsync/vodsync/style"
)

func init() {
	rootCmd.AddCommand(estimateCmd)

	estimateCmd.Flags().StringP("log", "l", "", "Read the event log from a file instead of the directory")
	estimateCmd.Flags().StringP("at", "t", "", "Primary stream time (HH:MM:SS)")
	estimateCmd.Flags().Float64P("rate", "r", 1, "Primary playback rate")
	lo.Must0(estimateCmd.MarkFlagRequired("at"))
}

var estimateCmd = &cobra.Command{
	Use:   "estimate [platform] [vod]",
	Short: "Show which song plays at a point of a VOD and where in the song",
	Example: `  vodsync estimate twitch 2034567890 --at 01:02:03
  vodsync estimate --log broadcast.json --at 00:45:00 --rate 1.5`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		path := lo.Must(cmd.Flags().GetString("log"))
		if path == "" && len(args) == 0 {
			handleErr(errors.New("either a vod or --log must be given"))
		}

		at, err := eventlog.ParseTimestamp(lo.Must(cmd.Flags().GetString("at")))
		handleErr(err)

		rate := lo.Must(cmd.Flags().GetFloat64("rate"))
		if rate <= 0 {
			rate = 1
		}

		loaded, err := loadLog(cmd.Context(), path, args)
		handleErr(err)

		ctx, ok := position.Locate(loaded.log, float64(at), rate).Get()
		if !ok {
			fmt.Printf("%s no music at %s\n", icon.Get(icon.Stopped), eventlog.FormatTimestamp(float64(at)))
			return
		}

		title := "unknown track"
		if track := ctx.Track(); track != nil {
			title = track.String()
		}

		state := lo.Ternary(ctx.Paused(), style.Fg(color.Yellow)("paused"), style.Fg(color.Green)("playing"))
		fmt.Printf(
			"%s %s %s\n  %s %s %s\n",
			icon.Get(icon.Music),
			style.Bold(title),
			state,
			style.Faint("at"),
			style.Fg(color.Purple)(eventlog.FormatTimestamp(ctx.Position)),
			style.Faint(fmt.Sprintf("(since %s in %s)", ctx.Anchor.Timestamp, loaded.name)),
		)
	},
}
