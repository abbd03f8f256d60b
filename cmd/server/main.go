package main

import (
	"github.com/joho/godotenv"
)

// Set at build time with -ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	// A missing .env is fine; real environment variables still apply
	_ = godotenv.Load()

	Execute()
}
