package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vodsync/vodsync/color"
	"github.com/vodsync/vodsync/config"
	"github.com/vodsync/vodsync/directory"
	"github.com/vodsync/vodsync/icon"
	"github.com/vodsync/vodsync/key"
	"github.com/vodsync/vodsync/network"
	"github.com/vodsync/vodsync/style"
	"github.com/vodsync/vodsync/util"
)

func init() {
	rootCmd.AddCommand(lookupCmd)
}

var lookupCmd = &cobra.Command{
	Use:     "lookup [platform] [vod]",
	Short:   "Check whether the directory knows an event log for a VOD",
	Example: "  vodsync lookup https://www.twitch.tv/videos/2034567890",
	Args:    cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		platform, vodID, err := directory.ParseVOD(args...)
		handleErr(err)

		ctx, cancel := context.WithTimeout(cmd.Context(), config.Millis(key.DirectoryTimeoutMs))
		defer cancel()

		dir := directory.New(viper.GetString(key.DirectoryURL), "", network.Client)
		erase := util.PrintErasable(fmt.Sprintf("%s Looking up...", icon.Get(icon.Progress)))
		entry, err := dir.Lookup(ctx, platform, vodID)
		erase()

		if errors.Is(err, directory.ErrNotFound) {
			fmt.Printf("%s no event log for %s\n", icon.Get(icon.Warn), style.Fg(color.Yellow)(directory.Key(platform, vodID)))
			return
		}
		handleErr(err)

		name := entry.VODName
		if name == "" {
			name = directory.Key(platform, vodID)
		}
		fmt.Printf("%s %s\n  %s %s\n", icon.Get(icon.Success), style.Bold(name), icon.Get(icon.Link), style.Faint(entry.LogURL))
	},
}
