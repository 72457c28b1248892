package main

import (
	"os"
	"osu-tracker/internal/logger"

	"github.com/rs/zerolog"
)

func main() {
	log := logger.SetLevel(zerolog.WarnLevel)
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		log = logger.SetLevel(lvl)
	}

	if err := newRootCmd(log).Execute(); err != nil {
		os.Exit(1)
	}
}
