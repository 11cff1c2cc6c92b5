package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/muesli/reflow/wordwrap"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/vodsync/vodsync/color"
	"github.com/vodsync/vodsync/constant"
	"github.com/vodsync/vodsync/key"
	"github.com/vodsync/vodsync/style"
)

// DefaultDirectoryURL is the public log directory and track search service.
const DefaultDirectoryURL = "https://vod-sync.officilly-ranging-gamer.workers.dev"

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.App + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}
		EnvExposed = append(EnvExposed, k)
	}

	register(key.SyncOffsetMs, -2000, "Offset in milliseconds added to the estimated music position.\nCompensates speaker and player buffer latency")
	register(key.SyncTickIntervalMs, 750, "Interval in milliseconds between reconciliation ticks of a session")
	register(key.SyncDriftThresholdMs, 2000, "Drift in milliseconds tolerated before a corrective seek is sent")
	register(key.PlayerTransport, "embedded", "Secondary player surface.\nAvailable options are: embedded, mpv")
	register(key.PlayerVolume, 75, "Volume sent with play commands. From 0 to 100")
	register(key.PlayerOnLost, "recreate", "What to do when the secondary player goes away.\nAvailable options are: recreate, drop")
	register(key.PlayerMpvPath, "mpv", "Path to the mpv executable used by the mpv transport")
	register(key.DirectoryURL, DefaultDirectoryURL, "Base URL of the event log directory and track search service")
	register(key.DirectoryTimeoutMs, 10000, "Timeout in milliseconds for log lookups and log downloads")
	register(key.ResolverTimeoutMs, 5000, "Timeout in milliseconds for a single track search")
	register(key.ResolverRate, 4, "Maximum track searches per second across all sessions")
	register(key.ServerAddr, "127.0.0.1:7717", "Address the ingest server listens on")
	register(key.ServerRatePerMinute, 1200, "Requests per minute accepted from one client address.\n0 disables the limit")
	register(key.ServerCorsOrigins, []string{"https://www.twitch.tv", "https://www.youtube.com"}, "Origins allowed to call the ingest server")
	register(key.CacheLogTTLHours, 720, "Hours a downloaded event log stays in the disk cache")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, true, "Check for a newer release when printing the version")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, plain, nerd (nerd-font required)")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"wrap":     func(s string) string { return wordwrap.String(s, 72) },
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint (wrap .Description) }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
