package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/peterkuimelis/barnacle/internal/card"
	"github.com/peterkuimelis/barnacle/internal/config"
	"github.com/peterkuimelis/barnacle/internal/deck"
	"github.com/peterkuimelis/barnacle/internal/log"
	"github.com/peterkuimelis/barnacle/internal/prompt"
	"github.com/peterkuimelis/barnacle/internal/storage/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := os.Args[1]
	switch cmd {
	case "template":
		err = runTemplate(os.Args[2:])
	case "deck":
		err = runDeck(ctx, env, os.Args[2:])
	case "new-deck":
		err = runNewDeck(ctx, env, os.Args[2:])
	case "cards":
		err = runCards(ctx, env, os.Args[2:])
	case "examples":
		err = runExamples(ctx, env, os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  barnacle template [--type T] [--name NAME] [--out FILE]")
	fmt.Println("  barnacle deck [--config FILE] [--seed N] [--ledger DB] DIR...")
	fmt.Println("  barnacle new-deck [--type T] [--decks DIR] NAME")
	fmt.Println("  barnacle cards [--out DIR]")
	fmt.Println("  barnacle examples [--decks DIR] [--seed N]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  template  Write a blank deck template (" + deck.TemplateFile + ")")
	fmt.Println("  deck      Regenerate each deck directory from its template")
	fmt.Println("  new-deck  Design a deck slot by slot and save it")
	fmt.Println("  cards     Design standalone cards until an empty name is entered")
	fmt.Println("  examples  Build one example deck per tier")
	fmt.Println()
	fmt.Println("Environment: BARNACLE_CONFIG, BARNACLE_DECKS_DIR, BARNACLE_LEDGER, BARNACLE_SEED")
}

// common holds the flags shared by commands that resolve cards.
type common struct {
	config *string
	ledger *string
	seed   *int64
}

func commonFlags(fs *flag.FlagSet, env config.Env) common {
	return common{
		config: fs.String("config", env.ConfigPath, "path to the modifier tables (JSON or YAML)"),
		ledger: fs.String("ledger", env.LedgerPath, "SQLite ledger of built cards (empty disables it)"),
		seed:   fs.Int64("seed", env.Seed, "seed for power rolls (0 picks one)"),
	}
}

// open loads the tables, regenerating defaults if needed, and the ledger.
func (c common) open(logger log.EventLogger) (config.Config, *sqlite.Store, error) {
	cfg, err := config.Load(*c.config, logger)
	if err != nil {
		return config.Config{}, nil, err
	}
	if *c.ledger == "" {
		return cfg, nil, nil
	}
	ledger, err := sqlite.Open(*c.ledger)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, ledger, nil
}

func runTemplate(args []string) error {
	fs := flag.NewFlagSet("template", flag.ExitOnError)
	typ := fs.String("type", "starter", "deck type: starter, journeyman or legendary")
	name := fs.String("name", "Deck_Template", "deck name")
	out := fs.String("out", deck.TemplateFile, "output file (.yaml for YAML)")
	fs.Parse(args)

	t, err := deck.ParseType(*typ)
	if err != nil {
		return err
	}
	if err := deck.WriteTemplate(*out, deck.Blank(*name, t)); err != nil {
		return err
	}
	fmt.Printf("Wrote template to file: %s\n", *out)
	return nil
}

func runDeck(ctx context.Context, env config.Env, args []string) error {
	fs := flag.NewFlagSet("deck", flag.ExitOnError)
	c := commonFlags(fs, env)
	fs.Parse(args)
	if fs.NArg() == 0 {
		return errors.New("deck: at least one deck directory is required")
	}

	logger := log.NewTextLogger(os.Stdout)
	cfg, ledger, err := c.open(logger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	failed := 0
	for _, dir := range fs.Args() {
		roster, err := deck.BuildFromDir(ctx, dir, cfg, deck.Options{Seed: *c.seed, Logger: logger})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Deck %s: %v\n", dir, err)
			failed++
			continue
		}
		if err := recordRoster(ctx, ledger, roster); err != nil {
			fmt.Fprintf(os.Stderr, "Deck %s: %v\n", dir, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d decks failed", failed, fs.NArg())
	}
	return nil
}

func runNewDeck(ctx context.Context, env config.Env, args []string) error {
	fs := flag.NewFlagSet("new-deck", flag.ExitOnError)
	c := commonFlags(fs, env)
	typ := fs.String("type", "starter", "deck type: starter, journeyman or legendary")
	decksDir := fs.String("decks", env.DecksDir, "directory the deck folder is created in")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("new-deck: a deck name is required")
	}
	name := fs.Arg(0)

	t, err := deck.ParseType(*typ)
	if err != nil {
		return err
	}
	logger := log.NewTextLogger(os.Stdout)
	cfg, ledger, err := c.open(logger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	p := prompt.New(os.Stdin, os.Stdout)
	roster, err := deck.Assemble(ctx, deck.DeckInputs{Name: name, Type: t}, cfg, deck.Options{
		Seed:   *c.seed,
		Source: prompt.NewSource(p, cfg),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	dir := filepath.Join(*decksDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create deck dir: %w", err)
	}
	path := filepath.Join(dir, name+".deck")
	if err := deck.WriteTemplate(path, roster.Template); err != nil {
		return err
	}
	fmt.Printf("Wrote template to file: %s\n", path)
	if failed := deck.WriteRoster(dir, roster, logger); failed > 0 {
		fmt.Fprintf(os.Stderr, "%d file(s) could not be written\n", failed)
	}
	return recordRoster(ctx, ledger, roster)
}

func runCards(ctx context.Context, env config.Env, args []string) error {
	fs := flag.NewFlagSet("cards", flag.ExitOnError)
	c := commonFlags(fs, env)
	out := fs.String("out", ".", "directory card files are written to")
	fs.Parse(args)

	logger := log.NewTextLogger(os.Stdout)
	cfg, ledger, err := c.open(logger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	var rng *rand.Rand
	if *c.seed != 0 {
		rng = rand.New(rand.NewSource(*c.seed))
	}
	p := prompt.New(os.Stdin, os.Stdout)
	built, err := p.Cards(ctx, cfg, rng, *out, logger)
	if err != nil {
		return err
	}
	return recordCards(ctx, ledger, built)
}

func runExamples(ctx context.Context, env config.Env, args []string) error {
	fs := flag.NewFlagSet("examples", flag.ExitOnError)
	c := commonFlags(fs, env)
	decksDir := fs.String("decks", "examples", "directory the example decks are written to")
	fs.Parse(args)

	logger := log.NewTextLogger(os.Stdout)
	cfg, ledger, err := c.open(logger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	rosters, buildErr := deck.Examples(ctx, cfg, *c.seed, logger)
	var errs []error
	if buildErr != nil {
		errs = append(errs, buildErr)
	}
	for _, r := range rosters {
		dir := filepath.Join(*decksDir, r.Name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			errs = append(errs, fmt.Errorf("create deck dir: %w", err))
			continue
		}
		if err := deck.WriteTemplate(filepath.Join(dir, r.Name+".deck"), r.Template); err != nil {
			errs = append(errs, err)
			continue
		}
		deck.WriteRoster(dir, r, logger)
		if err := recordRoster(ctx, ledger, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func recordRoster(ctx context.Context, ledger *sqlite.Store, r deck.Roster) error {
	if ledger == nil {
		return nil
	}
	if err := ledger.AppendRoster(ctx, r); err != nil {
		return fmt.Errorf("record deck %s: %w", r.Name, err)
	}
	return nil
}

func recordCards(ctx context.Context, ledger *sqlite.Store, cards []card.Card) error {
	if ledger == nil {
		return nil
	}
	for _, c := range cards {
		if _, err := ledger.Append(ctx, sqlite.Entry{Card: c}); err != nil {
			return fmt.Errorf("record card %s: %w", c.Name, err)
		}
	}
	return nil
}
