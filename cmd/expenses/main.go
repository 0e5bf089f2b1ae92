package main

import (
	"os"

	"expenses/internal/cli"
)

func main() {
	// Load .env file for local development
	cli.LoadEnvFile()

	ctx, stop := cli.SignalContext()
	code := cli.Main(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}
