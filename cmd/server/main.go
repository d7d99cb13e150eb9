package main

import (
	"os"

	"github.com/cardcycle/backend/internal/commands"
)

// @title Card Cycle API
// @version 1.0
// @description Billing cycle derivation and repair for linked credit card accounts
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
