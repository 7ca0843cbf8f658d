// Package main is the entrypoint for the e-auction API service.
// It serves OTP verification, operational SMS, and auction read endpoints.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/zonixt/eauction/internal/config"
	"github.com/zonixt/eauction/internal/server"
)

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	return server.Run(ctx, server.Params{
		Name:           "api",
		PortFromConfig: func(cfg *config.Config) int { return cfg.HTTP.Port },
		Setup:          setup,
	}, nil)
}
