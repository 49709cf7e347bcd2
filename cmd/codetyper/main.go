package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"codetyper/internal/cli"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cli.Execute()
}
