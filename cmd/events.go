package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mpfront/mpfront/backend"
	"github.com/mpfront/mpfront/color"
	"github.com/mpfront/mpfront/icon"
	"github.com/mpfront/mpfront/style"
)

// eventPrinter writes playback events to stdout. Status updates share one
// line that is rewritten in place.
type eventPrinter struct {
	status bool
}

func (p *eventPrinter) line(format string, args ...any) {
	if p.status {
		fmt.Println()
		p.status = false
	}
	fmt.Printf(format+"\n", args...)
}

func (p *eventPrinter) print(media string, e backend.Event) {
	name := filepath.Base(media)

	switch e := e.(type) {
	case backend.Started:
		p.line("%s %s %s", icon.Get(icon.Media), style.Bold(name), style.Faint(fmt.Sprintf("pid %d", e.PID)))
	case backend.Playing:
		p.line("  %s", style.Fg(color.Green)("playing"))
	case backend.Paused:
		p.line("  %s", style.Fg(color.Yellow)("paused"))
	case backend.Status:
		fmt.Printf("\r  %s", style.Faint(formatPosition(e.Position)))
		p.status = true
	case backend.Track:
		details := strings.TrimSpace(strings.Join([]string{e.Lang, e.Name}, " "))
		p.line("  %s #%d %s", e.Kind, e.ID, style.Faint(details))
	case backend.Chapter:
		p.line("  chapter %d %s %s", e.ID, formatPosition(e.Start), style.Faint(e.Name))
	case backend.Finished:
		p.line("%s %s finished", style.Fg(color.Green)(icon.Get(icon.Success)), name)
	case backend.Failed:
		p.line("%s %s %s %s", style.Fg(color.Red)(icon.Get(icon.Fail)), name, style.Fg(color.Red)(e.Message), style.Faint(e.Code.String()))
	}
}

func (p *eventPrinter) activate() {
	p.line("%s %s", icon.Get(icon.Server), style.Faint("activated by another instance"))
}

func formatPosition(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total/60%60, total%60)
}
