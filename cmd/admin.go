package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/AlecAivazis/survey/v2"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vodsync/vodsync/auth"
	"github.com/vodsync/vodsync/color"
	"github.com/vodsync/vodsync/config"
	"github.com/vodsync/vodsync/directory"
	"github.com/vodsync/vodsync/filesystem"
	"github.com/vodsync/vodsync/icon"
	"github.com/vodsync/vodsync/key"
	"github.com/vodsync/vodsync/network"
	"github.com/vodsync/vodsync/style"
	"github.com/vodsync/vodsync/util"
)

func init() {
	rootCmd.AddCommand(adminCmd)
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage the event log directory",
	Long: fmt.Sprintf(`Manage the event log directory.

The admin secret is read from %s or from the system keyring.`, auth.EnvAdminSecret),
}

// adminClient returns a directory client carrying the stored secret.
func adminClient() *directory.Client {
	secret, err := auth.Secret()
	handleErr(err)
	return directory.New(viper.GetString(key.DirectoryURL), secret, network.Client)
}

func adminContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), config.Millis(key.DirectoryTimeoutMs))
}

func init() {
	adminCmd.AddCommand(adminLoginCmd)
}

var adminLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the admin secret in the system keyring",
	Run: func(cmd *cobra.Command, args []string) {
		var secret string
		handleErr(survey.AskOne(&survey.Password{
			Message: "Admin secret:",
		}, &secret, survey.WithValidator(survey.Required)))

		handleErr(auth.SetSecret(secret))
		fmt.Printf("%s secret stored\n", icon.Get(icon.Key))
	},
}

func init() {
	adminCmd.AddCommand(adminLogoutCmd)
}

var adminLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the admin secret from the system keyring",
	Run: func(cmd *cobra.Command, args []string) {
		if err := auth.DeleteSecret(); err != nil && !errors.Is(err, auth.ErrNoSecret) {
			handleErr(err)
		}
		fmt.Printf("%s secret removed\n", icon.Get(icon.Success))
	},
}

func init() {
	adminCmd.AddCommand(adminListCmd)
}

var adminListCmd = &cobra.Command{
	Use:   "list",
	Short: "List linked VODs",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := adminContext(cmd)
		defer cancel()

		entries, err := adminClient().List(ctx)
		handleErr(err)

		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		for _, e := range entries {
			fmt.Printf(
				"%s %s\n  %s\n",
				style.Fg(color.Purple)(e.Key),
				style.Bold(lo.Ternary(e.VODName != "", e.VODName, "-")),
				style.Faint(e.LogURL),
			)
		}
		fmt.Println(style.Faint(util.Quantify(len(entries), "entry", "entries")))
	},
}

func init() {
	adminCmd.AddCommand(adminUploadCmd)
}

var adminUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload an event log and print its URL",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		content, err := afero.ReadFile(filesystem.API(), args[0])
		handleErr(err)

		ctx, cancel := adminContext(cmd)
		defer cancel()

		client := adminClient()
		id, err := client.Upload(ctx, content)
		handleErr(err)

		fmt.Printf("%s uploaded %s\n  %s %s\n", icon.Get(icon.Success), style.Bold(id), icon.Get(icon.Link), client.LogURL(id))
	},
}

func init() {
	adminCmd.AddCommand(adminSubmitCmd)

	adminSubmitCmd.Flags().String("twitch", "", "Twitch VOD id")
	adminSubmitCmd.Flags().String("youtube", "", "YouTube video id")
	adminSubmitCmd.Flags().StringP("url", "u", "", "Event log URL")
	adminSubmitCmd.Flags().StringP("name", "n", "", "Display name of the VOD")
	lo.Must0(adminSubmitCmd.MarkFlagRequired("url"))
	adminSubmitCmd.MarkFlagsOneRequired("twitch", "youtube")
}

var adminSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Link VOD ids to an event log",
	Run: func(cmd *cobra.Command, args []string) {
		link := directory.Link{
			TwitchID:  lo.Must(cmd.Flags().GetString("twitch")),
			YouTubeID: lo.Must(cmd.Flags().GetString("youtube")),
			LogURL:    lo.Must(cmd.Flags().GetString("url")),
			VODName:   lo.Must(cmd.Flags().GetString("name")),
		}

		ctx, cancel := adminContext(cmd)
		defer cancel()

		handleErr(adminClient().Submit(ctx, link))
		fmt.Printf("%s linked %s\n", icon.Get(icon.Success), style.Faint(link.LogURL))
	},
}

func init() {
	adminCmd.AddCommand(adminDeleteCmd)
	adminDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

var adminDeleteCmd = &cobra.Command{
	Use:     "delete <key>...",
	Short:   "Remove directory entries",
	Example: "  vodsync admin delete twitch:2034567890 youtube:dQw4w9WgXcQ",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !lo.Must(cmd.Flags().GetBool("yes")) {
			var confirmed bool
			handleErr(survey.AskOne(&survey.Confirm{
				Message: fmt.Sprintf("Delete %s?", util.Quantify(len(args), "entry", "entries")),
				Default: false,
			}, &confirmed))
			if !confirmed {
				return
			}
		}

		ctx, cancel := adminContext(cmd)
		defer cancel()

		handleErr(adminClient().Delete(ctx, args))
		fmt.Printf("%s deleted %s\n", icon.Get(icon.Success), util.Quantify(len(args), "entry", "entries"))
	},
}
