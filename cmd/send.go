package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mpfront/mpfront/color"
	"github.com/mpfront/mpfront/icon"
	"github.com/mpfront/mpfront/peer"
	"github.com/mpfront/mpfront/session"
	"github.com/mpfront/mpfront/style"
	"github.com/mpfront/mpfront/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().BoolP("broadcast", "B", false, "Send to every running instance instead of the server")
}

var sendCmd = &cobra.Command{
	Use:   "send <command> [argument]",
	Short: "Forward a command to the running instance",
	Long: `Forward a command to the running instance.

Commands: open <path>, enqueue <path>, raw <backend command>, activate, pause, stop, quit`,
	Example: "  mpfront send open /tmp/video.mp4\n  mpfront send raw seek 30",
	Args:    cobra.MinimumNArgs(1),
	ValidArgs: []string{
		session.Open, session.Enqueue, session.Raw,
		session.Activate, session.Pause, session.Stop, session.Quit,
	},
	Run: func(cmd *cobra.Command, args []string) {
		command, err := session.ParseCommand(strings.Join(args, " "))
		handleErr(err)
		if command.Name == session.Open || command.Name == session.Enqueue {
			command.Arg = absMedia(command.Arg)
		}

		p, err := newPeer(nil)
		handleErr(err)
		defer util.Ignore(p.Close)

		if lo.Must(cmd.Flags().GetBool("broadcast")) {
			n, err := p.Broadcast(command.String(), peerTimeout())
			handleErr(err)
			fmt.Printf("%s delivered to %s\n", icon.Get(icon.Success), util.Quantify(n, "instance", "instances"))
			return
		}

		err = p.SendMessage(command.String(), peerTimeout())
		if errors.Is(err, peer.ErrNoServer) {
			err = fmt.Errorf("no running instance: %w", err)
		}
		handleErr(err)

		fmt.Printf(
			"%s sent %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Fg(color.Purple)(command.String()),
		)
	},
}
