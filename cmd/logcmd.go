package cmd

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"github.com/vodsync/vodsync/color"
	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/icon"
	"github.com/vodsync/vodsync/style"
	"github.com/vodsync/vodsync/util"
)

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.AddCommand(logSchemaCmd)
	logCmd.AddCommand(logCheckCmd)
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Work with event log files",
}

// logSchema describes the stored event log format.
func logSchema() *jsonschema.Schema {
	reflector := new(jsonschema.Reflector)
	reflector.Anonymous = true
	reflector.DoNotReference = true
	return reflector.Reflect(&eventlog.File{})
}

var logSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of event log files",
	Run: func(cmd *cobra.Command, args []string) {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		handleErr(encoder.Encode(logSchema()))
	},
}

var logCheckCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Validate event log files",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var failed int

		for _, path := range args {
			l, err := readLogFile(path)
			if err != nil {
				failed++
				fmt.Printf("%s %s\n", icon.Get(icon.Fail), style.Fg(color.Red)(err.Error()))
				continue
			}

			var last eventlog.Event
			if l.Len() > 0 {
				last = l.At(l.Len() - 1)
			}
			fmt.Printf(
				"%s %s %s\n",
				icon.Get(icon.Success),
				style.Bold(path),
				style.Faint(fmt.Sprintf(
					"%s, %s, until %s",
					util.Quantify(l.Len(), "event", "events"),
					util.Quantify(len(l.Tracks()), "track", "tracks"),
					eventlog.FormatTimestamp(float64(last.Seconds)),
				)),
			)
		}

		if failed > 0 {
			handleErr(fmt.Errorf("%s invalid", util.Quantify(failed, "file is", "files are")))
		}
	},
}
