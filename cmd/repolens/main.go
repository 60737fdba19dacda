package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Optional .env for provider keys and REPOLENS_* overrides.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
