// Package icon renders status symbols in the configured variant.
//
// Variants are emoji, nerd (nerd-font glyphs) and plain ASCII.
package icon

import (
	"github.com/spf13/viper"
	"github.com/vodsync/vodsync/key"
)

const (
	emoji = "emoji"
	nerd  = "nerd"
	plain = "plain"
)

// AvailableVariants returns every variant name.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain}
}

// Icon identifies a symbol.
type Icon int

const (
	Success Icon = iota
	Fail
	Warn
	Progress
	Music
	Stopped
	Link
	Key
)

type iconDef struct {
	emoji string
	nerd  string
	plain string
}

var icons = map[Icon]*iconDef{
	Success:  {emoji: "🎉", nerd: "", plain: "✓"},
	Fail:     {emoji: "💀", nerd: "", plain: "✗"},
	Warn:     {emoji: "⚠️", nerd: "", plain: "!"},
	Progress: {emoji: "⏳", nerd: "", plain: "…"},
	Music:    {emoji: "🎵", nerd: "", plain: "♪"},
	Stopped:  {emoji: "⏹️", nerd: "", plain: "■"},
	Link:     {emoji: "🔗", nerd: "", plain: "->"},
	Key:      {emoji: "🔑", nerd: "", plain: "*"},
}

func (d *iconDef) get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	default:
		return d.plain
	}
}

// Get renders i in the configured variant.
func Get(i Icon) string {
	d, ok := icons[i]
	if !ok {
		return ""
	}
	return d.get()
}
