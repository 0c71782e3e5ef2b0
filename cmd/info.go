package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mpfront/mpfront/backend"
	"github.com/mpfront/mpfront/color"
	"github.com/mpfront/mpfront/info"
	"github.com/mpfront/mpfront/key"
	"github.com/mpfront/mpfront/style"
	"github.com/mpfront/mpfront/util"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringP("filter", "f", "", "Only show entries whose name fuzzy-matches the filter")
	infoCmd.Flags().BoolP("refresh", "r", false, "Ignore the cached report and query the backend again")
	infoCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	infoCmd.Flags().BoolP("properties", "p", false, "Also show identification properties")
	infoCmd.Flags().IntP("width", "W", 0, "Wrap descriptions at this width (default: terminal width, or 72)")

	infoCmd.SetOut(os.Stdout)
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "List the drivers, demuxers and codecs supported by the backend",
	Run: func(cmd *cobra.Command, args []string) {
		b := selectedBackend()
		checkBackend(b)

		erase := util.PrintErasable(fmt.Sprintf("Querying %s...", b.Name))
		report, err := info.Get(context.Background(), info.Source{
			Backend: b,
			Path:    viper.GetString(key.PlayerPath),
		}, lo.Must(cmd.Flags().GetBool("refresh")))
		erase()
		handleErr(err)

		report = report.Filter(lo.Must(cmd.Flags().GetString("filter")))

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(report))
			return
		}

		width := lo.Must(cmd.Flags().GetInt("width"))
		if width <= 0 {
			width = util.TerminalWidth(os.Stdout.Fd(), 72)
		}
		width = max(width, 20)
		row := func(name, detail string) {
			cmd.Printf("  %s\n", style.Bold(name))
			if detail != "" {
				cmd.Println(style.Fg(color.Gray)(indent.String(wordwrap.String(detail, width), 4)))
			}
		}
		section := func(s backend.Section, n int) bool {
			if n == 0 {
				return false
			}
			cmd.Printf("%s %s\n", style.Heading(util.Capitalize(s.String())), style.Faint(fmt.Sprintf("(%d)", n)))
			return true
		}

		if section(backend.VideoOutputs, len(report.VideoOutputs)) {
			for _, d := range report.VideoOutputs {
				row(d.Name, d.Description)
			}
		}
		if section(backend.AudioOutputs, len(report.AudioOutputs)) {
			for _, d := range report.AudioOutputs {
				row(d.Name, d.Description)
			}
		}
		if section(backend.Demuxers, len(report.Demuxers)) {
			for _, d := range report.Demuxers {
				row(d.Name, lo.Ternary(d.Info != "", d.Info+" ", "")+d.Description)
			}
		}
		if section(backend.VideoCodecs, len(report.VideoCodecs)) {
			for _, c := range report.VideoCodecs {
				row(codecName(c), c.Description)
			}
		}
		if section(backend.AudioCodecs, len(report.AudioCodecs)) {
			for _, c := range report.AudioCodecs {
				row(codecName(c), c.Description)
			}
		}

		if lo.Must(cmd.Flags().GetBool("properties")) && len(report.Properties) > 0 {
			cmd.Println(style.Heading("Properties"))
			for _, k := range report.PropertyKeys() {
				cmd.Printf("  %s=%s\n", style.Fg(color.Purple)(k), report.Properties[k])
			}
		}

		if report.Len() == 0 {
			cmd.Println(style.Faint("nothing matched"))
		}
	},
}

func codecName(c backend.Codec) string {
	name := c.Name
	if c.Driver != "" {
		name += " " + style.Faint(c.Driver)
	}
	if c.Status != "" && c.Status != "working" {
		name += " " + style.Fg(color.Yellow)(c.Status)
	}
	return name
}
