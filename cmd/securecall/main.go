package main

import (
	cmd "github.com/ramu7700/secure-video-call/internal/cli"
	"github.com/ramu7700/secure-video-call/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
