// Package main - marketdata CLI
//
// Usage:
//
//	go run ./cmd/marketdata serve
//	go run ./cmd/marketdata migrate --seed
//	go run ./cmd/marketdata quote AAPL MSFT
package main

import (
	"os"

	"github.com/MichalDSW/investment-platform/cmd/marketdata/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
