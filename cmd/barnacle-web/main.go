package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/peterkuimelis/barnacle/internal/config"
	elog "github.com/peterkuimelis/barnacle/internal/log"
	"github.com/peterkuimelis/barnacle/internal/storage/sqlite"
	"github.com/peterkuimelis/barnacle/internal/web"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	port := flag.Int("port", 8080, "HTTP port to listen on")
	configPath := flag.String("config", env.ConfigPath, "path to the modifier tables (JSON or YAML)")
	decksDir := flag.String("decks", env.DecksDir, "directory of deck folders (empty disables deck routes)")
	ledgerPath := flag.String("ledger", env.LedgerPath, "SQLite ledger of built cards (empty disables it)")
	flag.Parse()

	store, err := config.NewStore(*configPath, elog.NewTextLogger(os.Stdout))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var ledger *sqlite.Store
	if *ledgerPath != "" {
		ledger, err = sqlite.Open(*ledgerPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer ledger.Close()
	}

	srv, err := web.NewServer(store, ledger, *decksDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("barnacle web UI listening on http://localhost:%d", *port)
	if err := srv.ListenAndServe(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
