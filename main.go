package main

import (
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/weprixetechnologies/cly-user-sub000/cmd"
)

// main sets up logging from DEBUG_CLY, exits on interrupt, and runs the CLI.
func main() {
	configureLogLevelFromEnv()

	stopChan := setupInterruptListener()
	go handleInterrupt(stopChan, func(msg string) { log.Error().Msg(msg) }, os.Exit)

	cmd.Execute()
}

// configureLogLevelFromEnv enables debug logging to stderr when DEBUG_CLY is
// set to anything but "", "0" or "false"; otherwise logging is off.
func configureLogLevelFromEnv() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEBUG_CLY"))) {
	case "", "0", "false":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func setupInterruptListener() chan os.Signal {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt)
	return stopChan
}

func handleInterrupt(stopChan chan os.Signal, logMsg func(string), exit func(int)) {
	<-stopChan
	logMsg("Interrupt signal received. Exiting...")
	exit(1)
}
