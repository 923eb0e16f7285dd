package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/themeforge/themekit/cli/cmd"
)

func main() {
	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	loadEnvFile()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEnvFile loads environment variables from a .env file when one exists
// next to the project being bundled.
func loadEnvFile() {
	for _, location := range []string{".env", ".env.local"} {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				log.Warn().Str("file", location).Err(err).Msg("Failed to load .env file")
				return
			}
			log.Debug().Str("file", location).Msg(".env file loaded")
			return
		}
	}
}
