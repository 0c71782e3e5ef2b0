// Package cmd implements the command-line interface for mpfront.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/mpfront/mpfront/backend"
	"github.com/mpfront/mpfront/color"
	"github.com/mpfront/mpfront/constant"
	"github.com/mpfront/mpfront/exitcode"
	"github.com/mpfront/mpfront/icon"
	"github.com/mpfront/mpfront/key"
	"github.com/mpfront/mpfront/log"
	"github.com/mpfront/mpfront/peer"
	"github.com/mpfront/mpfront/session"
	"github.com/mpfront/mpfront/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")
	rootCmd.Flags().BoolP("wait", "w", false, "Keep serving commands after the last file finished")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the icon variant (emoji, nerd, plain, squares)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.PersistentFlags().StringP("backend", "b", "", "Backend player program (mplayer, mpv)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("backend", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return backend.Names(), cobra.ShellCompDirectiveNoFileComp
	}))
	lo.Must0(viper.BindPFlag(key.PlayerBackend, rootCmd.PersistentFlags().Lookup("backend")))
}

var rootCmd = &cobra.Command{
	Use:   constant.App + " [files...]",
	Short: "A single-instance front-end for MPlayer and MPV",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(color.HiCyan).Render("    - A single-instance front-end for MPlayer and MPV"),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		b := selectedBackend()
		checkBackend(b)

		media := lo.Map(args, func(arg string, _ int) string {
			return absMedia(arg)
		})

		s, err := session.New(sessionOptions(b, lo.Must(cmd.Flags().GetBool("wait")) || len(media) == 0), media...)
		handleErr(err)

		p, err := newPeer(s.Submit)
		handleErr(err)

		server, err := p.IsServer()
		if err != nil {
			_ = p.Close()
			handleErr(err)
		}

		if !server {
			err = forward(p, media)
			handleErr(errors.Join(err, p.Close()))
			return
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("%s %s %s\n", icon.Get(icon.Server), style.Bold("serving"), style.Faint(p.Dir()))
		err = s.Run(ctx)
		handleErr(errors.Join(p.Close(), err))
	},
}

// absMedia turns local paths absolute so the server resolves them the same
// way. URLs and other protocol targets are kept as given.
func absMedia(arg string) string {
	if strings.Contains(arg, "://") {
		return arg
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return arg
	}
	return abs
}

// forward hands the request over to the running server.
func forward(p *peer.Peer, media []string) error {
	timeout := peerTimeout()

	if len(media) == 0 {
		return p.SendMessage(session.Activate, timeout)
	}

	for i, m := range media {
		cmd := session.Command{Name: session.Enqueue, Arg: m}
		if i == 0 {
			cmd.Name = session.Open
		}
		if err := p.SendMessage(cmd.String(), timeout); err != nil {
			return err
		}
		fmt.Printf("%s %s %s\n", icon.Get(icon.Client), style.Faint(cmd.Name), m)
	}

	return nil
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// handleErr reports err and exits. Classified failures use their code as the
// exit status.
func handleErr(err error) {
	if err == nil {
		return
	}

	log.Error(err)
	_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))

	if code, ok := exitcode.As(err); ok {
		os.Exit(int(code))
	}
	os.Exit(1)
}
