package mcp

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/peterkuimelis/barnacle/internal/card"
	"github.com/peterkuimelis/barnacle/internal/config"
	"github.com/peterkuimelis/barnacle/internal/deck"
	"github.com/peterkuimelis/barnacle/internal/live"
	"github.com/peterkuimelis/barnacle/internal/log"
	"github.com/peterkuimelis/barnacle/internal/storage/sqlite"
)

// configStore supplies the modifier tables, set by main.
var configStore *config.Store

// ledger records every card built, set by main. May be nil.
var ledger *sqlite.Store

// SetConfigStore sets the configuration every tool resolves against.
func SetConfigStore(s *config.Store) {
	configStore = s
}

// SetLedger sets the ledger built cards are recorded in.
func SetLedger(s *sqlite.Store) {
	ledger = s
}

func snapshot() config.Config {
	if configStore == nil {
		return config.Default()
	}
	return configStore.Snapshot()
}

// RegisterTools adds all card tools to the MCP server.
func RegisterTools(s *server.MCPServer) {
	s.AddTool(resolveCardTool(), handleResolveCard)
	s.AddTool(deckTemplateTool(), handleDeckTemplate)
	s.AddTool(buildDeckTool(), handleBuildDeck)
	s.AddTool(getConfigTool(), handleGetConfig)
	s.AddTool(startCardTool(), handleStartCard)
	s.AddTool(allocatePriorityTool(), handleAllocatePriority)
	s.AddTool(chooseRangeTool(), handleChooseRange)
	s.AddTool(chooseEffectTool(), handleChooseEffect)
	s.AddTool(listCardsTool(), handleListCards)
}

// --- Tool definitions ---

func resolveCardTool() mcp.Tool {
	return mcp.NewTool("resolve_card",
		mcp.WithDescription("Resolve one card from a complete set of choices. Returns the card, its debit trace, "+
			"or the reason it is infeasible."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Card name")),
		mcp.WithString("rarity", mcp.Required(), mcp.Description("common, uncommon, rare, epic or legendary")),
		mcp.WithString("efficiency", mcp.Description("bad, normal or good (default normal)")),
		mcp.WithNumber("allocation", mcp.Description("Budget points spent on priority (0 skips the step)")),
		mcp.WithString("range", mcp.Required(), mcp.Description("single, multiple, aoe or extended_aoe")),
		mcp.WithString("effect", mcp.Required(), mcp.Description("damage, heal, acid_heal or shield")),
		mcp.WithString("order", mcp.Description("range_first (default) or effect_first")),
		mcp.WithNumber("effect_share", mcp.Description("Fraction of the budget the effect may use, 0 to 1 (default all of it)")),
		mcp.WithNumber("seed", mcp.Description("Seed for the power roll. Omit for a random roll.")),
	)
}

func deckTemplateTool() mcp.Tool {
	return mcp.NewTool("deck_template",
		mcp.WithDescription("Emit a blank deck template for the given deck type, one default card per slot."),
		mcp.WithString("type", mcp.Required(), mcp.Description("starter, journeyman or legendary")),
		mcp.WithString("name", mcp.Description("Deck name (default Deck_Template)")),
		mcp.WithString("format", mcp.Description("json (default) or yaml")),
	)
}

func buildDeckTool() mcp.Tool {
	return mcp.NewTool("build_deck",
		mcp.WithDescription("Build every card of a deck template. Infeasible slots are retried and then skipped. "+
			"Returns the roster and the event log."),
		mcp.WithString("template", mcp.Required(), mcp.Description("Deck template document")),
		mcp.WithString("format", mcp.Description("json (default) or yaml")),
		mcp.WithNumber("seed", mcp.Description("Seed for the power rolls. Overrides the template seed.")),
	)
}

func getConfigTool() mcp.Tool {
	return mcp.NewTool("get_config",
		mcp.WithDescription("Return the active modifier tables."),
		mcp.WithString("format", mcp.Description("json (default) or yaml")),
		mcp.WithBoolean("reload", mcp.Description("Re-read the configuration file first")),
	)
}

func startCardTool() mcp.Tool {
	return mcp.NewTool("start_card",
		mcp.WithDescription("Start building a card step by step. Rolls the power budget and returns the first pending decision. "+
			"Replaces any card already in progress."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Card name")),
		mcp.WithString("rarity", mcp.Required(), mcp.Description("common, uncommon, rare, epic or legendary")),
		mcp.WithString("efficiency", mcp.Description("bad, normal or good (default normal)")),
		mcp.WithNumber("effect_share", mcp.Description("Fraction of the budget the effect may use, 0 to 1 (default all of it)")),
		mcp.WithNumber("seed", mcp.Description("Seed for the power roll. Omit for a random roll.")),
	)
}

func allocatePriorityTool() mcp.Tool {
	return mcp.NewTool("allocate_priority",
		mcp.WithDescription("Spend budget on priority. Use this when the pending decision type is 'allocate_priority'."),
		mcp.WithNumber("amount", mcp.Required(), mcp.Description("Points to spend, 0 to skip")),
	)
}

func chooseRangeTool() mcp.Tool {
	return mcp.NewTool("choose_range",
		mcp.WithDescription("Pay for a range. Use this when the pending decision type is 'choose_range'."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("0-based index from the pending options")),
	)
}

func chooseEffectTool() mcp.Tool {
	return mcp.NewTool("choose_effect",
		mcp.WithDescription("Resolve the effect and build the card. Use this when the pending decision type is 'choose_effect'."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("0-based index from the pending options")),
	)
}

func listCardsTool() mcp.Tool {
	return mcp.NewTool("list_cards",
		mcp.WithDescription("List cards from the ledger: one deck's cards, or the most recent builds."),
		mcp.WithString("deck", mcp.Description("Deck name. Omit for recent cards.")),
		mcp.WithNumber("limit", mcp.Description("Number of recent cards (default 10)")),
	)
}

// --- Tool handlers ---

func handleResolveCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plan, err := planFromRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if plan.Allocation < 0 {
		return mcp.NewToolResultErrorf("Invalid allocation %d: must not be negative.", plan.Allocation), nil
	}

	logger := log.NewMemoryLogger()
	d := plan.Draft(snapshot(), rand.New(rand.NewSource(seedFrom(request))))
	for _, debit := range d.Debits() {
		logger.Log(log.NewDebitEvent("", 0, plan.Name, debit))
	}
	resp := &live.ServerMessage{Type: live.MsgBuilt, Budget: d.Budget()}
	c, err := d.Build()
	if err != nil {
		logger.Log(log.NewInfeasibleEvent("", 0, plan.Name, err))
		resp.Type = live.MsgInfeasible
		resp.Reason = err.Error()
	} else {
		logger.Log(log.NewBuildEvent("", 0, c))
		resp.Card = live.NewCardView(c)
		resp.Warning = record(ctx, c)
	}
	for _, e := range logger.Events() {
		resp.Events = append(resp.Events, log.FormatEvent(e))
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

func handleDeckTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, err := deck.ParseType(request.GetString("type", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name := request.GetString("name", "Deck_Template")
	data, err := deck.MarshalTemplate(formatPath(request), deck.Blank(name, t))
	if err != nil {
		return mcp.NewToolResultErrorf("Could not encode template: %v", err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func handleBuildDeck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := deck.UnmarshalTemplate(formatPath(request), []byte(request.GetString("template", "")))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	logger := log.NewMemoryLogger()
	roster, err := deck.Assemble(ctx, d, snapshot(), deck.Options{
		Seed:   int64(request.GetInt("seed", 0)),
		Logger: logger,
	})
	if err != nil {
		return mcp.NewToolResultErrorf("Deck %q aborted: %v\n%s", d.Name, err, log.FormatAll(logger.Events())), nil
	}

	resp := DeckResponse{Roster: roster}
	for _, e := range logger.Events() {
		resp.Events = append(resp.Events, log.FormatEvent(e))
	}
	if ledger != nil {
		if err := ledger.AppendRoster(ctx, roster); err != nil {
			resp.Warning = fmt.Sprintf("deck not recorded: %v", err)
		}
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

func handleGetConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if request.GetBool("reload", false) {
		if configStore == nil {
			return mcp.NewToolResultError("No configuration file to reload."), nil
		}
		if err := configStore.Reload(); err != nil {
			return mcp.NewToolResultErrorf("Reload failed, keeping the active tables: %v", err), nil
		}
	}
	data, err := config.Marshal(formatPath(request), snapshot())
	if err != nil {
		return mcp.NewToolResultErrorf("Could not encode config: %v", err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func handleStartCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := live.Start(live.ClientMessage{
		Type:       live.MsgStart,
		Name:       request.GetString("name", ""),
		Rarity:     request.GetString("rarity", ""),
		Efficiency: request.GetString("efficiency", ""),
		Seed:       seedFrom(request),
		Share:      request.GetFloat("effect_share", 0),
	}, snapshot())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	setSession(sess)
	return mcp.NewToolResultText(respondJSON(sess.View())), nil
}

func handleAllocatePriority(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess := currentSession()
	if sess == nil {
		return mcp.NewToolResultError("No card is in progress. Use start_card first."), nil
	}
	resp, err := sess.Allocate(request.GetInt("amount", -1))
	if err != nil {
		return mcp.NewToolResultErrorf("Wrong move: %v.", err), nil
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

func handleChooseRange(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess := currentSession()
	if sess == nil {
		return mcp.NewToolResultError("No card is in progress. Use start_card first."), nil
	}
	resp, err := sess.ChooseRange(request.GetInt("index", -1))
	if err != nil {
		return mcp.NewToolResultErrorf("Wrong move: %v.", err), nil
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

func handleChooseEffect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess := currentSession()
	if sess == nil {
		return mcp.NewToolResultError("No card is in progress. Use start_card first."), nil
	}
	resp, err := sess.ChooseEffect(request.GetInt("index", -1))
	if err != nil {
		return mcp.NewToolResultErrorf("Wrong move: %v.", err), nil
	}
	endSession(sess)

	if c, ok := sess.Built(); ok {
		resp.Warning = record(ctx, c)
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

func handleListCards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if ledger == nil {
		return mcp.NewToolResultError("No ledger is configured. Start the server with -ledger."), nil
	}
	var (
		entries []sqlite.Entry
		err     error
	)
	if name := request.GetString("deck", ""); name != "" {
		entries, err = ledger.ListDeck(ctx, name)
	} else {
		entries, err = ledger.Recent(ctx, request.GetInt("limit", 10))
	}
	if err != nil {
		return mcp.NewToolResultErrorf("Could not list cards: %v", err), nil
	}
	views := make([]*live.CardView, 0, len(entries))
	for _, e := range entries {
		views = append(views, live.NewCardView(e.Card))
	}
	return mcp.NewToolResultText(respondJSON(views)), nil
}

// --- Helpers ---

func planFromRequest(request mcp.CallToolRequest) (card.Plan, error) {
	var errs []error
	plan := card.Plan{
		Name:       strings.TrimSpace(request.GetString("name", "")),
		Allocation: request.GetInt("allocation", 0),

		EffectShare: request.GetFloat("effect_share", 0),
	}
	if plan.Name == "" {
		errs = append(errs, errors.New("a card name is required"))
	}
	if plan.EffectShare < 0 || plan.EffectShare > 1 {
		errs = append(errs, fmt.Errorf("effect share %g outside [0, 1]", plan.EffectShare))
	}
	var err error
	if plan.Rarity, err = card.ParseRarity(request.GetString("rarity", "")); err != nil {
		errs = append(errs, err)
	}
	if plan.Efficiency, err = card.ParseEfficiency(request.GetString("efficiency", "normal")); err != nil {
		errs = append(errs, err)
	}
	if plan.Range, err = card.ParseRange(request.GetString("range", "")); err != nil {
		errs = append(errs, err)
	}
	if plan.Effect, err = card.ParseEffectKind(request.GetString("effect", "")); err != nil {
		errs = append(errs, err)
	}
	if err := plan.Order.UnmarshalText([]byte(request.GetString("order", card.OrderRangeFirst.String()))); err != nil {
		errs = append(errs, err)
	}
	return plan, errors.Join(errs...)
}

// seedFrom returns the request's seed, or a time-based one if none was given.
func seedFrom(request mcp.CallToolRequest) int64 {
	if seed := request.GetInt("seed", 0); seed != 0 {
		return int64(seed)
	}
	return time.Now().UnixNano()
}

// formatPath maps the format argument to a file name the codecs understand.
func formatPath(request mcp.CallToolRequest) string {
	if strings.EqualFold(request.GetString("format", ""), "yaml") {
		return "document.yaml"
	}
	return "document.json"
}

// record appends c to the ledger and returns a warning if that fails.
func record(ctx context.Context, c card.Card) string {
	if ledger == nil {
		return ""
	}
	if _, err := ledger.Append(ctx, sqlite.Entry{Card: c}); err != nil {
		return fmt.Sprintf("card not recorded: %v", err)
	}
	return ""
}
