// Package prompt collects bounded numeric choices from a terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/peterkuimelis/barnacle/internal/card"
)

// Padding is the column width of each menu option.
const Padding = 36

var (
	// ErrClosed is returned when input ends before a valid answer was read.
	ErrClosed = errors.New("input closed")

	// ErrBudgetTooSmall is returned by Allocation when no allocation leaves
	// budget for the effect.
	ErrBudgetTooSmall = errors.New("budget too small to allocate priority")
)

// Prompter reads answers line by line and writes menus to w.
type Prompter struct {
	r *bufio.Reader
	w io.Writer
}

func New(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{r: bufio.NewReader(r), w: w}
}

// Writer returns the output the prompter writes to.
func (p *Prompter) Writer() io.Writer { return p.w }

func (p *Prompter) readLine() (string, error) {
	line, err := p.r.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err == io.EOF {
		return "", ErrClosed
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Line prints prompt and returns the trimmed answer.
func (p *Prompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.w, prompt)
	return p.readLine()
}

// Number asks until it reads an integer in [min, max].
func (p *Prompter) Number(min, max int, prompt string) (int, error) {
	for {
		fmt.Fprint(p.w, prompt)
		line, err := p.readLine()
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintf(p.w, "Could not parse %q!\n", line)
			continue
		}
		if n < min || n > max {
			fmt.Fprintf(p.w, "Enter a number between %d and %d\n", min, max)
			continue
		}
		return n, nil
	}
}

// Fraction asks until it reads a number above 0 and at most 1.
func (p *Prompter) Fraction(prompt string) (float64, error) {
	for {
		fmt.Fprint(p.w, prompt)
		line, err := p.readLine()
		if err != nil {
			return 0, err
		}
		f, err := strconv.ParseFloat(line, 64)
		if err != nil {
			fmt.Fprintf(p.w, "Could not parse %q!\n", line)
			continue
		}
		if f <= 0 || f > 1 {
			fmt.Fprintln(p.w, "Enter a number above 0 and at most 1")
			continue
		}
		return f, nil
	}
}

// PadRight pads s with spaces to n columns.
func PadRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

// Menu prints the options on one line, each padded to Padding columns, and
// returns the 0-based index of the chosen one.
func (p *Prompter) Menu(label string, options []string) (int, error) {
	var sb strings.Builder
	for i, opt := range options {
		sb.WriteString(PadRight(fmt.Sprintf("%d: %s", i+1, opt), Padding))
	}
	fmt.Fprintf(&sb, "\nEnter %s: (1..%d).. ", label, len(options))
	n, err := p.Number(1, len(options), sb.String())
	return n - 1, err
}

// Rarity asks for a card rarity.
func (p *Prompter) Rarity() (card.Rarity, error) {
	var options []string
	for _, r := range card.Rarities {
		options = append(options, r.String())
	}
	i, err := p.Menu("rarity", options)
	if err != nil {
		return card.Common, err
	}
	return card.Rarities[i], nil
}

// Efficiency asks for a card efficiency.
func (p *Prompter) Efficiency() (card.Efficiency, error) {
	var options []string
	for _, e := range card.Efficiencies {
		options = append(options, e.String())
	}
	i, err := p.Menu("efficiency", options)
	if err != nil {
		return card.EfficiencyNormal, err
	}
	return card.Efficiencies[i], nil
}

// Allocation asks how much of the draft's budget goes to priority. At least
// one point must be spent and at least one left, so a budget below 2
// returns ErrBudgetTooSmall without asking.
func (p *Prompter) Allocation(d card.Draft) (int, error) {
	hi := d.Budget() - 1
	if hi < 1 {
		return 0, ErrBudgetTooSmall
	}
	return p.Number(1, hi, fmt.Sprintf("Budget %d. Enter priority allocation: (1..%d).. ", d.Budget(), hi))
}

// EffectShare asks what fraction of the budget the effect may use.
func (p *Prompter) EffectShare() (float64, error) {
	return p.Fraction("Enter effect share: (0.0..1.0].. ")
}

// Range asks for a range, showing each option's flat cost.
func (p *Prompter) Range() (card.Range, error) {
	var options []string
	for _, r := range card.Ranges {
		options = append(options, fmt.Sprintf("%s (Cost: %d)", r, r.Cost()))
	}
	i, err := p.Menu("range type", options)
	if err != nil {
		return card.RangeSingle, err
	}
	return card.Ranges[i], nil
}

// Effect asks for an effect, previewing what each kind would cost against
// the draft's remaining budget.
func (p *Prompter) Effect(d card.Draft) (card.EffectKind, error) {
	var options []string
	for _, k := range card.EffectKinds {
		effect, cost := d.EffectCost(k)
		options = append(options, fmt.Sprintf("%s %d (Cost: %d)", k, effect.Magnitude, cost))
	}
	i, err := p.Menu("effect type", options)
	if err != nil {
		return card.Damage, err
	}
	return card.EffectKinds[i], nil
}

// Walk takes a fresh draft through allocation (or the effect share, when
// priority comes from the leftover budget), range and effect, reporting
// the budget after each step. It returns the choices made and the final
// draft, which has not been built.
func (p *Prompter) Walk(d card.Draft) (card.Plan, card.Draft, error) {
	plan := card.Plan{Name: d.Name(), Rarity: d.Rarity(), Efficiency: d.Efficiency()}
	fmt.Fprintf(p.w, "Created card with power budget: %d\n", d.Budget())

	if d.PrioritySource() == card.PriorityFromLeftover {
		share, err := p.EffectShare()
		if err != nil {
			return plan, d, err
		}
		d = d.WithEffectShare(share)
		plan.EffectShare = share
	} else {
		n, err := p.Allocation(d)
		if errors.Is(err, ErrBudgetTooSmall) {
			fmt.Fprintf(p.w, "Budget %d is too small to allocate priority. Choose another efficiency.\n", d.Budget())
		}
		if err != nil {
			return plan, d, err
		}
		d = d.AllocatePriority(n)
		plan.Allocation = n
	}

	r, err := p.Range()
	if err != nil {
		return plan, d, err
	}
	d = d.SelectRange(r)
	plan.Range = r
	fmt.Fprintf(p.w, "New budget: %d\n", d.Budget())

	k, err := p.Effect(d)
	if err != nil {
		return plan, d, err
	}
	d = d.SelectEffect(k)
	plan.Effect = k
	fmt.Fprintf(p.w, "New budget: %d\n", d.Budget())
	return plan, d, nil
}
