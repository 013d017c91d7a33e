package main

import (
	"fmt"
	"os"

	"github.com/2beens/fittrack/internal/cli"
	"github.com/2beens/fittrack/internal/tracker"

	"github.com/joho/godotenv"
)

func main() {
	// secrets for the configured backends may live in .env
	_ = godotenv.Load()

	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", errorMessage(err))
		os.Exit(1)
	}
}

func errorMessage(err error) string {
	if msg := tracker.ErrorMessage(err); msg != "unexpected error" {
		return msg
	}
	return err.Error()
}
