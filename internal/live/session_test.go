package live

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/peterkuimelis/barnacle/internal/card"
	"github.com/peterkuimelis/barnacle/internal/config"
)

func defaultTables() card.Tables { return config.Default() }

func TestSessionBuildsCard(t *testing.T) {
	s := NewSession("Pinch", card.Common, card.EfficiencyNormal, config.Default(), 1)

	view := s.View()
	if view.Pending == nil || view.Pending.Type != DecisionAllocate {
		t.Fatalf("Expected allocate decision, got %+v", view.Pending)
	}
	if view.Budget != 2 || view.Pending.Max != 1 {
		t.Errorf("Expected budget 2 allowing 1, got %d allowing %d", view.Budget, view.Pending.Max)
	}

	msg, err := s.Allocate(1)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(msg.Events) != 1 || len(msg.Pending.Options) != len(card.Ranges) {
		t.Errorf("Expected one new event and range options, got %v / %+v", msg.Events, msg.Pending)
	}

	msg, err = s.ChooseRange(0)
	if err != nil {
		t.Fatalf("ChooseRange: %v", err)
	}
	if opt := msg.Pending.Options[0]; opt.Name != "Damage 1" || opt.Cost != 1 {
		t.Errorf("Expected Damage 1 costing 1, got %+v", opt)
	}

	msg, err = s.ChooseEffect(0)
	if err != nil {
		t.Fatalf("ChooseEffect: %v", err)
	}
	if msg.Type != MsgBuilt || msg.Card == nil || msg.Card.Priority != 10 {
		t.Fatalf("Expected a priority 10 card, got %+v", msg)
	}
	if msg.Pending != nil {
		t.Errorf("Expected nothing pending, got %+v", msg.Pending)
	}
	if _, ok := s.Built(); !ok {
		t.Error("Expected Built to report the card")
	}
	if _, err := s.ChooseEffect(0); err == nil || !strings.Contains(err.Error(), "finished") {
		t.Errorf("Expected finished error, got %v", err)
	}
}

func TestSessionPreviewMatchesPlan(t *testing.T) {
	cfg := config.Default()
	cfg.PowerPick = config.PickUniform
	cfg.RarityRanges.Epic = config.PowerRange{Min: 7, Max: 30}

	s := NewSession("Surge", card.Epic, card.EfficiencyGood, cfg, 42)
	if _, err := s.Allocate(2); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if _, err := s.ChooseRange(2); err != nil {
		t.Fatalf("ChooseRange: %v", err)
	}
	msg, err := s.ChooseEffect(1)
	if err != nil {
		t.Fatalf("ChooseEffect: %v", err)
	}

	plan := card.Plan{Name: "Surge", Rarity: card.Epic, Efficiency: card.EfficiencyGood, Allocation: 2, Range: card.RangeAoE, Effect: card.Heal}
	want, err := card.Resolve(plan, cfg, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if msg.Card == nil || msg.Card.Card.Power != want.Power || msg.Card.Effect != want.Effect {
		t.Errorf("Expected %+v, got %+v", want, msg)
	}
}

func TestSessionReportsInfeasible(t *testing.T) {
	s := NewSession("Dud", card.Common, card.EfficiencyBad, config.Default(), 1)
	if _, err := s.Allocate(1); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if _, err := s.ChooseRange(0); err != nil {
		t.Fatalf("ChooseRange: %v", err)
	}
	msg, err := s.ChooseEffect(0)
	if err != nil {
		t.Fatalf("ChooseEffect: %v", err)
	}
	if msg.Type != MsgInfeasible || !strings.Contains(msg.Reason, "0 barnacles") {
		t.Errorf("Expected infeasible cast cost, got %+v", msg)
	}
	if _, ok := s.Built(); ok {
		t.Error("Expected no built card")
	}
}

func TestSessionRejectsBadMoves(t *testing.T) {
	s := NewSession("Pinch", card.Common, card.EfficiencyNormal, config.Default(), 1)

	if _, err := s.ChooseEffect(0); err == nil || !strings.Contains(err.Error(), "'allocate_priority'") {
		t.Errorf("Expected wrong-move error, got %v", err)
	}
	if _, err := s.Allocate(5); err == nil {
		t.Error("Expected allocation above the bound to fail")
	}
	if _, err := s.Allocate(-1); err == nil {
		t.Error("Expected negative allocation to fail")
	}
	if _, err := s.ChooseRange(9); err == nil {
		t.Error("Expected range index out of bounds to fail")
	}
	if _, err := s.Handle(ClientMessage{Type: "shuffle"}); err == nil {
		t.Error("Expected unknown message type to fail")
	}
	if s.Pending() != DecisionAllocate {
		t.Errorf("Expected bad moves to leave the session alone, got %s", s.Pending())
	}
}

func TestSessionSmallBudgetOnlySkipsAllocation(t *testing.T) {
	s := NewSession("Tiny", card.Common, card.EfficiencyBad, config.Default(), 1)
	view := s.View()
	if view.Budget != 1 || view.Pending.Max != 0 {
		t.Fatalf("Expected budget 1 allowing nothing, got %d allowing %d", view.Budget, view.Pending.Max)
	}
	if _, err := s.Allocate(1); err == nil {
		t.Fatal("Expected an allocation of the whole budget to fail")
	}
	msg, err := s.Allocate(0)
	if err != nil {
		t.Fatalf("Allocate(0): %v", err)
	}
	if msg.Budget != 1 || msg.Pending.Type != DecisionRange {
		t.Errorf("Expected the budget kept and a range pending, got %d / %+v", msg.Budget, msg.Pending)
	}
}

func TestSessionLeftoverPriority(t *testing.T) {
	cfg := config.Default()
	cfg.Source = card.PriorityFromLeftover
	cfg.RarityRanges.Common = config.Fixed(4)

	s, err := Start(ClientMessage{Type: MsgStart, Name: "Barb", Rarity: "common", Share: 0.5}, cfg)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Pending() != DecisionRange {
		t.Fatalf("Expected no allocation step, got %s", s.Pending())
	}
	if _, err := s.Allocate(1); err == nil {
		t.Error("Expected allocation to be refused")
	}
	msg, err := s.ChooseRange(0)
	if err != nil {
		t.Fatalf("ChooseRange: %v", err)
	}
	if opt := msg.Pending.Options[0]; opt.Name != "Damage 2" || opt.Cost != 2 {
		t.Errorf("Expected half the budget previewed as Damage 2, got %+v", opt)
	}
	msg, err = s.ChooseEffect(0)
	if err != nil {
		t.Fatalf("ChooseEffect: %v", err)
	}
	if msg.Type != MsgBuilt || msg.Card.Priority != 8 {
		t.Errorf("Expected a priority 8 card, got %+v", msg)
	}
}

func TestStartParsesMessage(t *testing.T) {
	s, err := Start(ClientMessage{Type: MsgStart, Name: " Pinch ", Rarity: "Common"}, config.Default())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.View().Budget != 2 {
		t.Errorf("Expected normal efficiency budget 2, got %d", s.View().Budget)
	}
	if _, err := Start(ClientMessage{Type: MsgStart, Name: "", Rarity: "common"}, config.Default()); err == nil {
		t.Error("Expected missing name to fail")
	}
	if _, err := Start(ClientMessage{Type: MsgStart, Name: "X", Rarity: "common", Efficiency: "great"}, config.Default()); err == nil {
		t.Error("Expected unknown efficiency to fail")
	}
	if _, err := Start(ClientMessage{Type: MsgStart, Name: "X", Rarity: "common", Share: 1.5}, config.Default()); err == nil {
		t.Error("Expected an effect share above 1 to fail")
	}
}

// scriptedConn replays client messages and collects replies.
type scriptedConn struct {
	in      []ClientMessage
	replies []*ServerMessage
}

func (c *scriptedConn) Read(context.Context) (ClientMessage, error) {
	if len(c.in) == 0 {
		return ClientMessage{}, io.EOF
	}
	msg := c.in[0]
	c.in = c.in[1:]
	return msg, nil
}

func (c *scriptedConn) Write(_ context.Context, msg *ServerMessage) error {
	c.replies = append(c.replies, msg)
	return nil
}

func TestServe(t *testing.T) {
	conn := &scriptedConn{in: []ClientMessage{
		{Type: MsgRange, Index: 0},
		{Type: MsgStart, Name: "Pinch", Rarity: "common"},
		{Type: MsgEffect, Index: 0},
		{Type: MsgAllocate, Amount: 1},
		{Type: MsgRange, Index: 0},
		{Type: MsgEffect, Index: 0},
	}}
	var recorded []card.Card
	record := func(_ context.Context, c card.Card) error {
		recorded = append(recorded, c)
		return nil
	}

	err := Serve(context.Background(), conn, defaultTables, record)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Expected Serve to end with the read error, got %v", err)
	}

	var types []string
	for _, r := range conn.replies {
		types = append(types, r.Type)
	}
	want := []string{MsgError, MsgState, MsgError, MsgState, MsgState, MsgBuilt}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Errorf("Expected replies %v, got %v", want, types)
	}
	if len(recorded) != 1 || recorded[0].Name != "Pinch" {
		t.Errorf("Expected Pinch to be recorded, got %+v", recorded)
	}
}

func TestServeReportsRecordFailure(t *testing.T) {
	conn := &scriptedConn{in: []ClientMessage{
		{Type: MsgStart, Name: "Pinch", Rarity: "common"},
		{Type: MsgAllocate, Amount: 1},
		{Type: MsgRange, Index: 0},
		{Type: MsgEffect, Index: 0},
	}}
	record := func(context.Context, card.Card) error { return errors.New("disk full") }

	_ = Serve(context.Background(), conn, defaultTables, record)
	last := conn.replies[len(conn.replies)-1]
	if last.Type != MsgBuilt || !strings.Contains(last.Warning, "disk full") {
		t.Errorf("Expected built card with a warning, got %+v", last)
	}
}
