package prompt

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/peterkuimelis/barnacle/internal/card"
	"github.com/peterkuimelis/barnacle/internal/config"
	"github.com/peterkuimelis/barnacle/internal/deck"
	"github.com/peterkuimelis/barnacle/internal/log"
)

func TestNumberRetriesUntilInRange(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("abc\n9\n2\n"), &out)

	n, err := p.Number(1, 3, "> ")
	if err != nil {
		t.Fatalf("Number: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2, got %d", n)
	}
	if !strings.Contains(out.String(), `Could not parse "abc"!`) {
		t.Errorf("Expected parse complaint, got %q", out.String())
	}
	if !strings.Contains(out.String(), "Enter a number between 1 and 3") {
		t.Errorf("Expected range complaint, got %q", out.String())
	}
}

func TestNumberAcceptsFinalLineWithoutNewline(t *testing.T) {
	p := New(strings.NewReader("3"), &bytes.Buffer{})
	n, err := p.Number(1, 3, "> ")
	if err != nil || n != 3 {
		t.Errorf("Expected 3, got %d (%v)", n, err)
	}
}

func TestNumberReportsClosedInput(t *testing.T) {
	p := New(strings.NewReader("7\n"), &bytes.Buffer{})
	if _, err := p.Number(1, 3, "> "); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestMenuPadsOptions(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("2\n"), &out)

	i, err := p.Menu("range type", []string{"Single (Cost: 0)", "Multiple (Cost: 1)"})
	if err != nil {
		t.Fatalf("Menu: %v", err)
	}
	if i != 1 {
		t.Errorf("Expected index 1, got %d", i)
	}
	line := strings.SplitN(out.String(), "\n", 2)[0]
	if strings.Index(line, "2: Multiple") != Padding {
		t.Errorf("Expected second option at column %d, got %q", Padding, line)
	}
	if !strings.Contains(out.String(), "Enter range type: (1..2).. ") {
		t.Errorf("Expected menu prompt, got %q", out.String())
	}
}

func TestEffectMenuPreviewsCost(t *testing.T) {
	cfg := config.Default()
	cfg.RangeModifiers.Heal.Single = 2.0
	var out bytes.Buffer
	p := New(strings.NewReader("2\n"), &out)

	d := card.New("Preview", card.Rare, card.EfficiencyNormal, cfg, nil).SelectRange(card.RangeSingle)
	k, err := p.Effect(d)
	if err != nil {
		t.Fatalf("Effect: %v", err)
	}
	if k != card.Heal {
		t.Errorf("Expected Heal, got %s", k)
	}
	effect, cost := d.EffectCost(card.Heal)
	want := "2: Heal " + strconv.Itoa(effect.Magnitude) + " (Cost: " + strconv.Itoa(cost) + ")"
	if !strings.Contains(out.String(), want) {
		t.Errorf("Expected %q in menu, got %q", want, out.String())
	}
}

func TestCardsLoop(t *testing.T) {
	cfg := config.Default()
	cfg.RangeModifiers.Damage.Single = 3.0
	dir := t.TempDir()
	input := strings.Join([]string{
		"Pinch", "1", "2", "1", "1", "2", // Common, Normal, allocate 1, Single, Heal
		"Tiny", "1", "1", "2", "1", "1", "2", // Common, Bad is too small, then Normal
		"Dud", "1", "2", "1", "1", "1", // Damage costs too much for the one point left
		"",
	}, "\n") + "\n"
	var out bytes.Buffer
	logger := log.NewMemoryLogger()
	p := New(strings.NewReader(input), &out)

	built, err := p.Cards(context.Background(), cfg, rand.New(rand.NewSource(1)), dir, logger)
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	if len(built) != 2 || built[0].Name != "Pinch" || built[1].Name != "Tiny" {
		t.Fatalf("Expected Pinch and Tiny to build, got %+v", built)
	}
	if built[0].Priority != 10 || built[0].Barnacles != 1 {
		t.Errorf("Expected priority 10 costing 1, got %d costing %d", built[0].Priority, built[0].Barnacles)
	}
	if built[1].Efficiency != card.EfficiencyNormal {
		t.Errorf("Expected Tiny to be rebuilt at Normal efficiency, got %s", built[1].Efficiency)
	}

	data, err := os.ReadFile(filepath.Join(dir, "Pinch.card"))
	if err != nil {
		t.Fatalf("Expected Pinch.card: %v", err)
	}
	if string(data) != built[0].Report() {
		t.Errorf("Expected card file to hold the report, got %q", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "Dud.card")); !errors.Is(err, os.ErrNotExist) {
		t.Error("Expected no file for the infeasible card")
	}
	if !strings.Contains(out.String(), "Budget 1 is too small to allocate priority") {
		t.Errorf("Expected the small budget to be reported, got %q", out.String())
	}
	if !strings.Contains(out.String(), "ERROR: ") {
		t.Errorf("Expected the failure to be reported, got %q", out.String())
	}
	if n := len(logger.EventsOfType(log.EventInfeasible)); n != 1 {
		t.Errorf("Expected 1 infeasible event, got %d", n)
	}
}

func TestAllocationNeedsBudgetForEffect(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("1\n"), &out)

	d := card.New("Tiny", card.Common, card.EfficiencyBad, config.Default(), nil)
	if d.Budget() != 1 {
		t.Fatalf("Expected budget 1, got %d", d.Budget())
	}
	if _, err := p.Allocation(d); !errors.Is(err, ErrBudgetTooSmall) {
		t.Fatalf("Expected ErrBudgetTooSmall, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("Expected nothing to be asked, got %q", out.String())
	}

	d = card.New("Pinch", card.Common, card.EfficiencyNormal, config.Default(), nil)
	if _, err := p.Allocation(d); err != nil {
		t.Fatalf("Allocation: %v", err)
	}
	if !strings.Contains(out.String(), "(1..1)") {
		t.Errorf("Expected a bound of 1, got %q", out.String())
	}
}

func TestWalkAsksEffectShareForLeftoverPriority(t *testing.T) {
	cfg := config.Default()
	cfg.Source = card.PriorityFromLeftover
	cfg.RarityRanges.Common = config.Fixed(4)
	var out bytes.Buffer
	p := New(strings.NewReader("0\n2\n0.5\n1\n1\n"), &out)

	plan, d, err := p.Walk(card.New("Barb", card.Common, card.EfficiencyNormal, cfg, nil))
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if plan.EffectShare != 0.5 || plan.Allocation != 0 {
		t.Errorf("Expected share 0.5 and no allocation, got %+v", plan)
	}
	if !strings.Contains(out.String(), "Enter a number above 0 and at most 1") {
		t.Errorf("Expected share bounds to be enforced, got %q", out.String())
	}
	c, err := d.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.Priority != 8 || c.Effect.Magnitude != 2 {
		t.Errorf("Expected Damage 2 at priority 8, got %v at %d", c.Effect, c.Priority)
	}
}

func TestCardsLoopEndsOnClosedInput(t *testing.T) {
	p := New(strings.NewReader("Half\n1\n"), &bytes.Buffer{})
	built, err := p.Cards(context.Background(), config.Default(), nil, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Expected closed input to end the loop quietly, got %v", err)
	}
	if len(built) != 0 {
		t.Errorf("Expected no cards, got %d", len(built))
	}
}

var budgetLine = regexp.MustCompile(`Created card with power budget: (\d+)`)

func TestSourcePreviewsAssemblerRoll(t *testing.T) {
	cfg := config.Default()
	cfg.PowerPick = config.PickUniform
	cfg.RarityRanges.Rare = config.PowerRange{Min: 5, Max: 20}

	// Each slot: default name, Normal, allocate 1, Single, Damage.
	input := strings.Repeat("\n2\n1\n1\n1\n", 5)
	var out bytes.Buffer
	src := NewSource(New(strings.NewReader(input), &out), cfg)

	roster, err := deck.Assemble(context.Background(), deck.DeckInputs{Name: "Live", Type: deck.StarterDeck}, cfg, deck.Options{Seed: 8, Source: src})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(roster.Records) != 5 {
		t.Fatalf("Expected 5 cards, got %d", len(roster.Records))
	}

	var previewed []int
	for _, m := range budgetLine.FindAllStringSubmatch(out.String(), -1) {
		n, _ := strconv.Atoi(m[1])
		previewed = append(previewed, n)
	}
	if len(previewed) != 5 {
		t.Fatalf("Expected 5 previews, got %v", previewed)
	}
	for i, rec := range roster.Records {
		if rec.Card.Power != previewed[i] {
			t.Errorf("slot %d: previewed budget %d, built with power %d", rec.Slot, previewed[i], rec.Card.Power)
		}
	}
	if roster.Records[4].Card.Name != "Live Rare 2" {
		t.Errorf("Expected generated name, got %q", roster.Records[4].Card.Name)
	}
}

func TestSourceClosedInputAbortsDeck(t *testing.T) {
	src := NewSource(New(strings.NewReader("\n2\n"), &bytes.Buffer{}), config.Default())
	_, err := deck.Assemble(context.Background(), deck.DeckInputs{Name: "Cut", Type: deck.StarterDeck}, config.Default(), deck.Options{Seed: 1, Source: src})
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("Expected ErrClosed, got %v", err)
	}
}
