package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/koopa0/ragline/cmd"
)

func main() {
	// Missing .env is fine; the environment may carry everything already.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
