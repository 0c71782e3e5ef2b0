package cmd

import (
	"time"

	"github.com/mpfront/mpfront/backend"
	"github.com/mpfront/mpfront/config"
	"github.com/mpfront/mpfront/exitcode"
	"github.com/mpfront/mpfront/key"
	"github.com/mpfront/mpfront/peer"
	"github.com/mpfront/mpfront/session"
	"github.com/spf13/viper"
)

func selectedBackend() *backend.Backend {
	b, err := backend.Lookup(viper.GetString(key.PlayerBackend))
	handleErr(err)
	return b
}

func peerTimeout() time.Duration {
	return config.Millis(key.PeerTimeout)
}

func newPeer(onMessage func(string)) (*peer.Peer, error) {
	return peer.New(peer.Options{
		AppID:      viper.GetString(key.AppID),
		Timeout:    peerTimeout(),
		RetryDelay: config.Millis(key.PeerRetryDelay),
		OnMessage:  onMessage,
	})
}

func sessionOptions(b *backend.Backend, stayIdle bool) session.Options {
	printer := &eventPrinter{}

	return session.Options{
		Backend:       b,
		Path:          viper.GetString(key.PlayerPath),
		Args:          viper.GetStringSlice(key.PlayerArgs),
		Classifier:    exitcode.NewClassifier(viper.GetString(key.AppLanguage)),
		EventBuffer:   viper.GetInt(key.PlayerEventBuffer),
		FlushOnExit:   viper.GetBool(key.PlayerFlushOnExit),
		FinishTimeout: config.Millis(key.PlayerFinishTimeout),
		StayIdle:      stayIdle,
		OnEvent:       printer.print,
		OnActivate:    printer.activate,
	}
}
