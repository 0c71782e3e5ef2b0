package cmd

import (
	"fmt"
	"strconv"

	"github.com/mpfront/mpfront/color"
	"github.com/mpfront/mpfront/exitcode"
	"github.com/mpfront/mpfront/key"
	"github.com/mpfront/mpfront/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slices"
)

func init() {
	rootCmd.AddCommand(exitcodeCmd)
	exitcodeCmd.Flags().StringP("lang", "l", "", "Language of the messages (defaults to app.language)")
}

var exitcodeCmd = &cobra.Command{
	Use:     "exitcode [id...]",
	Short:   "Explain the exit statuses used for backend failures",
	Example: "  mpfront exitcode\n  mpfront exitcode 251 -l es",
	Run: func(cmd *cobra.Command, args []string) {
		lang := lo.Must(cmd.Flags().GetString("lang"))
		if lang == "" {
			lang = viper.GetString(key.AppLanguage)
		}
		classifier := exitcode.NewClassifier(lang)

		codes := exitcode.All()
		if len(args) > 0 {
			codes = lo.Map(args, func(arg string, _ int) exitcode.Code {
				raw, err := strconv.Atoi(arg)
				if err != nil {
					handleErr(fmt.Errorf("invalid id %q", arg))
				}
				return exitcode.Classify(raw)
			})
			codes = lo.Uniq(codes)
			slices.Sort(codes)
		}

		for _, c := range codes {
			fmt.Printf(
				"%s %s %s\n",
				style.Fg(color.Yellow)(strconv.Itoa(int(c))),
				style.Fg(color.Purple)(fmt.Sprintf("%-20s", c)),
				classifier.Message(c),
			)
		}
	},
}
