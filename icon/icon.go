// Package icon renders status symbols in the variant chosen by icons.variant.
package icon

import (
	"github.com/mpfront/mpfront/key"
	"github.com/spf13/viper"
)

const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	squares = "squares"
)

// AvailableVariants returns every registered icon style identifier.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, squares}
}

// Icon identifies a symbol in the registry.
type Icon int

const (
	Success Icon = iota
	Fail
	Progress
	Server
	Client
	Media
)

type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	squares string
}

var icons = map[Icon]*iconDef{
	Success:  {emoji: "✅", nerd: "", plain: "✓", squares: "🟩"},
	Fail:     {emoji: "❌", nerd: "", plain: "✗", squares: "🟥"},
	Progress: {emoji: "⌛", nerd: "", plain: "...", squares: "🟨"},
	Server:   {emoji: "📡", nerd: "", plain: "[server]", squares: "🟦"},
	Client:   {emoji: "📨", nerd: "", plain: "[client]", squares: "🟪"},
	Media:    {emoji: "🎬", nerd: "", plain: ">", squares: "⬜"},
}

func (d *iconDef) get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	case squares:
		return d.squares
	default:
		return ""
	}
}

// Get returns the rendered symbol for i, or an empty string for an unknown variant.
func Get(i Icon) string {
	def, ok := icons[i]
	if !ok {
		return ""
	}
	return def.get()
}
