package cmd

import (
	"os"
	"os/signal"

	"github.com/ramu7700/secure-video-call/internal/ui"
	"github.com/ramu7700/secure-video-call/internal/version"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "securecall",
	Short:   "PIN-secured end-to-end encrypted audio/video calls over WebRTC",
	Long:    `SecureCall is a command-line tool for one-to-one audio/video calls between devices using WebRTC technology. Both parties dial the same ten-digit PIN; the PIN names the room and derives the encryption key, so every media frame is encrypted end to end and the relay only ever sees opaque bytes.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
