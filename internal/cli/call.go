package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramu7700/secure-video-call/internal/call"
	"github.com/ramu7700/secure-video-call/internal/config"
	"github.com/ramu7700/secure-video-call/internal/ui"
)

var (
	flagCallDomain   string
	flagCallSTUN     string
	flagCallTURN     string
	flagCallTURNUser string
	flagCallTURNPass string
	flagCallRelay    bool
)

var callCmd = &cobra.Command{
	Use:     "call <pin>",
	Aliases: []string{"c"},
	Short:   "Place or answer an encrypted call",
	Long: `Join the call room named by a ten-digit PIN. Whoever dials the
same PIN second completes the pair and the call starts. The PIN also
derives the encryption key, so it must never travel over the network;
agree on it out of band.

Examples:
  securecall call 0123456789
  securecall call 0123456789 --relay`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall(args[0])
	},
}

func runCall(pin string) error {
	if err := call.ValidateSecret(pin); err != nil {
		return fmt.Errorf("PIN must be exactly %d digits", call.SecretLength)
	}

	cfg, err := LoadConfig(config.Options{
		Domain:     flagCallDomain,
		STUNServer: flagCallSTUN,
		TURNServer: flagCallTURN,
		TURNUser:   flagCallTURNUser,
		TURNPass:   flagCallTURNPass,
		ForceRelay: flagCallRelay,
	})
	if err != nil {
		return err
	}

	sink := &call.CountingSink{}
	coordinator := call.NewCoordinator(cfg, sink)

	fmt.Println()
	ui.PrintInfof("Relay: %s", cfg.Domain)
	sp := ui.NewConnectionSpinner("Connecting to relay...")
	sp.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- coordinator.Run(context.Background(), pin)
	}()

	// Wait for the first state transition before switching to the live
	// screen, so connection failures surface as plain errors.
	select {
	case <-coordinator.Events():
		sp.Success("Connected to relay")
	case err := <-errCh:
		sp.Error("Connection failed")
		return err
	}

	started := time.Now()
	stats := func() ui.CallStats {
		tx, rx := coordinator.Stats()
		audio, video := sink.Frames()
		return ui.CallStats{
			State:          coordinator.State().String(),
			FramesSent:     tx.Encrypted,
			FramesReceived: rx.Decrypted,
			FramesDropped:  rx.Dropped,
			AudioReceived:  audio,
			VideoReceived:  video,
		}
	}

	callUI := ui.NewCallUI(pin, stats, coordinator.Hangup)
	callUI.Start()

	runErr := <-errCh
	callUI.Stop()
	final := stats()

	if runErr != nil {
		if errors.Is(runErr, call.ErrRoomFull) {
			return fmt.Errorf("that PIN already has a call in progress; pick a different PIN")
		}
		return runErr
	}

	ui.RenderCallSummary(ui.CallSummary{
		Duration:       time.Since(started),
		FramesSent:     final.FramesSent,
		FramesReceived: final.FramesReceived,
		FramesDropped:  final.FramesDropped,
		AudioReceived:  final.AudioReceived,
		VideoReceived:  final.VideoReceived,
	})
	if final.FramesDropped > 0 {
		ui.PrintWarningf("%d frames failed authentication and were dropped", final.FramesDropped)
	}
	ui.PrintSuccess("Call ended")
	return nil
}

// LoadConfig resolves flags, environment and defaults into a Config.
func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, call.NewError("load config", err)
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	return cfg, nil
}

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringVar(&flagCallDomain, "domain", "", "Custom relay domain")
	callCmd.Flags().StringVarP(&flagCallSTUN, "stun", "s", "", "Custom STUN server")
	callCmd.Flags().StringVarP(&flagCallTURN, "turn", "t", "", "Custom TURN server")
	callCmd.Flags().StringVar(&flagCallTURNUser, "turn-user", "", "TURN username")
	callCmd.Flags().StringVar(&flagCallTURNPass, "turn-pass", "", "TURN password")
	callCmd.Flags().BoolVarP(&flagCallRelay, "relay", "r", false, "Force relay mode")
}
