package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vodsync/vodsync/color"
	"github.com/vodsync/vodsync/engine"
	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/icon"
	"github.com/vodsync/vodsync/key"
	"github.com/vodsync/vodsync/network"
	"github.com/vodsync/vodsync/style"
	"github.com/vodsync/vodsync/where"
)

func init() {
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(nowPlayingCmd)
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List the sessions of a running server",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
		defer cancel()

		var views []engine.View
		url := "http://" + viper.GetString(key.ServerAddr) + "/sessions"
		if err := network.GetJSON(ctx, network.Client, url, &views); err != nil {
			handleErr(fmt.Errorf("is the server running? %w", err))
		}

		if len(views) == 0 {
			fmt.Println(style.Faint("no sessions"))
			return
		}

		for _, v := range views {
			track := style.Faint("-")
			if v.Track != nil {
				track = v.Track.String()
			}
			fmt.Printf(
				"%s %s %s\n  %s %s %s\n",
				style.Status(string(v.Status)),
				style.Fg(color.Purple)(v.Session),
				style.Faint(lo.Ternary(v.VODName != "", v.VODName, v.VOD.Key())),
				icon.Get(icon.Music),
				track,
				style.Faint(eventlog.FormatTimestamp(v.Position)),
			)
		}
	},
}

var nowPlayingCmd = &cobra.Command{
	Use:   "nowplaying",
	Short: "Show what each session is playing",
	Long:  "Show what each session is playing, as last recorded by the server.",
	Run: func(cmd *cobra.Command, args []string) {
		playing, err := engine.NewNowPlaying(where.NowPlaying()).All()
		handleErr(err)

		if len(playing) == 0 {
			fmt.Printf("%s nothing is playing\n", icon.Get(icon.Stopped))
			return
		}

		for _, p := range playing {
			fmt.Printf(
				"%s %s %s\n  %s %s\n",
				icon.Get(icon.Music),
				style.Bold(p.Track.String()),
				style.Faint("since "+p.Since.Local().Format(time.Kitchen)),
				style.Fg(color.Purple)(p.Session),
				style.Faint(lo.Ternary(p.VODName != "", p.VODName, p.VOD)),
			)
		}
	},
}
