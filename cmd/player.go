package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vodsync/vodsync/color"
	"github.com/vodsync/vodsync/icon"
	"github.com/vodsync/vodsync/key"
	"github.com/vodsync/vodsync/open"
	"github.com/vodsync/vodsync/style"
)

func init() {
	rootCmd.AddCommand(playerCmd)
	playerCmd.Flags().BoolP("print", "p", false, "Print the URL instead of opening it")
}

func playerURL(addr, sessionID string) string {
	return (&url.URL{Scheme: "http", Host: addr, Path: "/player/" + sessionID}).String()
}

var playerCmd = &cobra.Command{
	Use:   "player <session>",
	Short: "Open the browser player of a session",
	Long:  "Open the browser player of a session. The session id is the one the primary stream integration posts time updates for.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		link := playerURL(viper.GetString(key.ServerAddr), args[0])

		if printOnly, _ := cmd.Flags().GetBool("print"); printOnly {
			fmt.Println(link)
			return
		}

		if err := open.Start(link); err != nil {
			fmt.Printf("%s could not open a browser, visit %s\n", icon.Get(icon.Warn), style.Fg(color.Purple)(link))
			return
		}
		fmt.Printf("%s opened %s\n", icon.Get(icon.Link), style.Fg(color.Purple)(link))
	},
}
