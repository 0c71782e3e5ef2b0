package cmd

import (
	"fmt"

	"github.com/mpfront/mpfront/filesystem"
	"github.com/mpfront/mpfront/icon"
	"github.com/mpfront/mpfront/util"
	"github.com/mpfront/mpfront/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	location func() string
}

var clearTargets = []clearTarget{
	{"capability report", "info", mo.Some("i"), where.Info},
	{"cache directory", "cache", mo.Some("c"), where.Cache},
	{"logs directory", "logs", mo.Some("l"), where.Logs},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		clearCmd.Flags().BoolP(target.argLong, target.argShort.OrEmpty(), false, help)
	}
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached and logged application data",
	Run: func(cmd *cobra.Command, args []string) {
		var cleared bool

		for _, target := range clearTargets {
			if !lo.Must(cmd.Flags().GetBool(target.argLong)) {
				continue
			}
			cleared = true

			erase := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), target.name))
			err := filesystem.API().RemoveAll(target.location())
			erase()
			handleErr(err)

			fmt.Printf("%s %s cleared\n", icon.Get(icon.Success), util.Capitalize(target.name))
		}

		if !cleared {
			handleErr(cmd.Help())
		}
	},
}
