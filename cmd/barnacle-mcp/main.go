package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	barnaclemcp "github.com/peterkuimelis/barnacle/internal/mcp"

	"github.com/peterkuimelis/barnacle/internal/config"
	"github.com/peterkuimelis/barnacle/internal/log"
	"github.com/peterkuimelis/barnacle/internal/storage/sqlite"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	configPath := flag.String("config", env.ConfigPath, "path to the modifier tables (JSON or YAML)")
	ledgerPath := flag.String("ledger", env.LedgerPath, "SQLite ledger of built cards (empty disables it)")
	flag.Parse()

	// stdout carries the MCP protocol; events go to stderr.
	store, err := config.NewStore(*configPath, log.NewTextLogger(os.Stderr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	barnaclemcp.SetConfigStore(store)

	if *ledgerPath != "" {
		ledger, err := sqlite.Open(*ledgerPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer ledger.Close()
		barnaclemcp.SetLedger(ledger)
	}

	s := server.NewMCPServer("barnacle", "1.0.0")
	barnaclemcp.RegisterTools(s)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
