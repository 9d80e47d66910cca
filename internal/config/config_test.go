package config

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peterkuimelis/barnacle/internal/card"
	"github.com/peterkuimelis/barnacle/internal/log"
)

func customConfig() Config {
	cfg := Default()
	cfg.RarityRanges.Common = Fixed(4)
	cfg.RarityRanges.Epic = PowerRange{Min: 6, Max: 13}
	cfg.PriorityModifiers.Rare = 0.1
	cfg.RangeModifiers.Heal.AoE = 1.0 / 3.0
	cfg.RangeModifiers.Shield.ExtendedAoE = 2.718281828459045
	cfg.PowerPick = PickUniform
	cfg.Rounding = card.RoundOdd
	cfg.Source = card.PriorityFromLeftover
	cfg.PriorityPerPower = 0.5
	return cfg
}

func TestPowerWithinConfiguredRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, pick := range []PowerPick{PickEndpoint, PickUniform, PickMin, PickMax} {
		cfg := customConfig()
		cfg.PowerPick = pick
		for _, r := range card.Rarities {
			want := cfg.RarityRanges.Get(r)
			for i := 0; i < 200; i++ {
				p := cfg.Power(r, rng)
				if p < want.Min || p > want.Max {
					t.Fatalf("%s/%s: power %d outside [%d, %d]", pick, r, p, want.Min, want.Max)
				}
			}
		}
	}
}

func TestPowerEndpointOnlyRollsEndpoints(t *testing.T) {
	cfg := Default()
	cfg.RarityRanges.Epic = PowerRange{Min: 1, Max: 9}
	rng := rand.New(rand.NewSource(1))
	seen := map[int]bool{}
	for i := 0; i < 100; i++ {
		seen[cfg.Power(card.Epic, rng)] = true
	}
	if len(seen) != 2 || !seen[1] || !seen[9] {
		t.Fatalf("expected only endpoints 1 and 9, got %v", seen)
	}
}

func TestPowerDeterministicPicks(t *testing.T) {
	cfg := Default()
	cfg.PowerPick = PickMin
	if got := cfg.Power(card.Legendary, nil); got != 9 {
		t.Errorf("min pick: expected 9, got %d", got)
	}
	cfg.PowerPick = PickMax
	if got := cfg.Power(card.Legendary, nil); got != 10 {
		t.Errorf("max pick: expected 10, got %d", got)
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadTables(t *testing.T) {
	cfg := Default()
	cfg.RarityRanges.Rare = PowerRange{Min: 6, Max: 5}
	cfg.RangeModifiers.AcidHeal.Multiple = 0
	cfg.PowerPick = "sometimes"
	cfg.PriorityPerPower = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"rarity_ranges.rare", "range_modifiers.acid_heal.multiple", "power_pick", "power_to_priority"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		for label, cfg := range map[string]Config{"default": Default(), "custom": customConfig()} {
			path := filepath.Join(t.TempDir(), name)
			if err := Save(path, cfg); err != nil {
				t.Fatalf("%s/%s: save: %v", name, label, err)
			}
			got, err := Read(path)
			if err != nil {
				t.Fatalf("%s/%s: read: %v", name, label, err)
			}
			if got != cfg {
				t.Errorf("%s/%s: round trip mismatch:\n got %+v\nwant %+v", name, label, got, cfg)
			}
		}
	}
}

func TestFixedValueShape(t *testing.T) {
	for name, body := range map[string]string{
		"config.json": `{
  "rarity_ranges": {"common": 4, "uncommon": [3, 4], "rare": 5, "epic": [7, 8], "legendary": [9, 10]},
  "priority_modifiers": {"common": 1, "uncommon": 1, "rare": 1, "epic": 1, "legendary": 1},
  "range_modifiers": {
    "damage": {"single": 1, "multiple": 1, "aoe": 1, "extended_aoe": 1},
    "heal": {"single": 1, "multiple": 1, "aoe": 1, "extended_aoe": 1},
    "acid_heal": {"single": 1, "multiple": 1, "aoe": 1, "extended_aoe": 1},
    "shield": {"single": 1, "multiple": 1, "aoe": 1, "extended_aoe": 1}
  }
}`,
		"config.yaml": `
rarity_ranges: {common: 4, uncommon: [3, 4], rare: 5, epic: [7, 8], legendary: [9, 10]}
priority_modifiers: {common: 1, uncommon: 1, rare: 1, epic: 1, legendary: 1}
range_modifiers:
  damage: {single: 1, multiple: 1, aoe: 1, extended_aoe: 1}
  heal: {single: 1, multiple: 1, aoe: 1, extended_aoe: 1}
  acid_heal: {single: 1, multiple: 1, aoe: 1, extended_aoe: 1}
  shield: {single: 1, multiple: 1, aoe: 1, extended_aoe: 1}
`,
	} {
		cfg, err := Unmarshal(name, []byte(body))
		if err != nil {
			t.Fatalf("%s: unmarshal: %v", name, err)
		}
		if cfg.RarityRanges.Common != Fixed(4) {
			t.Errorf("%s: expected common fixed at 4, got %+v", name, cfg.RarityRanges.Common)
		}
		if cfg.RarityRanges.Rare != Fixed(5) {
			t.Errorf("%s: expected rare fixed at 5, got %+v", name, cfg.RarityRanges.Rare)
		}
		if cfg.RarityRanges.Epic != (PowerRange{Min: 7, Max: 8}) {
			t.Errorf("%s: expected epic [7, 8], got %+v", name, cfg.RarityRanges.Epic)
		}
		if cfg.PowerPick != "" || cfg.Rounding != card.RoundFloor {
			t.Errorf("%s: expected unset policies to fall back, got %q/%s", name, cfg.PowerPick, cfg.Rounding)
		}
		if cfg.PrioritySource() != card.PriorityFromAllocated || cfg.PowerToPriority() != 1.0 {
			t.Errorf("%s: expected allocation priority at rate 1, got %s/%g", name, cfg.PrioritySource(), cfg.PowerToPriority())
		}
	}
}

func TestLoadMissingWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	logger := log.NewMemoryLogger()

	cfg, err := Load(path, logger)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	onDisk, err := Read(path)
	if err != nil {
		t.Fatalf("expected defaults persisted: %v", err)
	}
	if onDisk != Default() {
		t.Errorf("persisted config differs from defaults: %+v", onDisk)
	}
	if n := len(logger.EventsOfType(log.EventConfigRegenerated)); n != 1 {
		t.Errorf("expected 1 regenerated event, got %d", n)
	}
}

func TestLoadCorruptRegenerates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"rarity_ranges": oops`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "oops") {
		t.Error("expected corrupt contents to be replaced")
	}
}

func TestLoadKeepsValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	custom := customConfig()
	if err := Save(path, custom); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(path)
	logger := log.NewMemoryLogger()

	cfg, err := Load(path, logger)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != custom {
		t.Errorf("expected custom config, got %+v", cfg)
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Error("valid config file was rewritten")
	}
	if len(logger.Events()) != 0 {
		t.Errorf("expected no events, got %v", logger.Events())
	}
}

func TestReadReportsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	bad := Default()
	bad.PriorityModifiers.Epic = -1
	if err := Save(path, bad); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	snap := store.Snapshot()

	custom := customConfig()
	if err := Save(path, custom); err != nil {
		t.Fatal(err)
	}
	if err := store.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if store.Snapshot() != custom {
		t.Error("expected reloaded config")
	}
	if snap != Default() {
		t.Error("earlier snapshot changed after reload")
	}

	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.Reload(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt on reload, got %v", err)
	}
	if store.Snapshot() != custom {
		t.Error("failed reload replaced the active config")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "not json" {
		t.Error("failed reload rewrote the designer's file")
	}
}

func TestLoadEnvDefaults(t *testing.T) {
	e, err := LoadEnv()
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if e.ConfigPath != "config.json" {
		t.Fatalf("expected default config path, got %q", e.ConfigPath)
	}
}

func TestLoadEnvError(t *testing.T) {
	t.Setenv("BARNACLE_SEED", "not-an-int")
	_, err := LoadEnv()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
