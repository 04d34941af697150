package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

type PrizeRuleKind string

const (
	PrizeRuleFixedAmount  PrizeRuleKind = "FIXED_AMOUNT"
	PrizeRuleFixedPercent PrizeRuleKind = "FIXED_PERCENT"
	PrizeRuleDynamicTail  PrizeRuleKind = "DYNAMIC_TAIL"
)

// PrizeRule is one of FixedAmount, FixedPercent or DynamicTailRule.
type PrizeRule interface {
	Kind() PrizeRuleKind
}

// FixedPosition is implemented by rules that pay exactly one place.
type FixedPosition interface {
	PrizeRule
	Place() int
}

// FixedAmount pays a constant amount to one place.
type FixedAmount struct {
	Position int             `json:"position"`
	Amount   decimal.Decimal `json:"amount"`
}

func (FixedAmount) Kind() PrizeRuleKind { return PrizeRuleFixedAmount }
func (r FixedAmount) Place() int        { return r.Position }

// FixedPercent pays a share of the prize pool to one place.
type FixedPercent struct {
	Position int             `json:"position"`
	Percent  decimal.Decimal `json:"percent"`
}

func (FixedPercent) Kind() PrizeRuleKind { return PrizeRuleFixedPercent }
func (r FixedPercent) Place() int        { return r.Position }

// DynamicTailRule pays places after AfterPosition a decreasing share of a
// dedicated slice of the prize pool. Places are computed at settlement time.
type DynamicTailRule struct {
	AfterPosition   int             `json:"after_position"`
	StartPercent    decimal.Decimal `json:"start_percent"`
	DecreaseStep    decimal.Decimal `json:"decrease_step"`
	MinAmount       decimal.Decimal `json:"min_amount"`
	BaseFundPercent decimal.Decimal `json:"base_fund_percent"`
}

func (DynamicTailRule) Kind() PrizeRuleKind { return PrizeRuleDynamicTail }

type PrizeConfiguration struct {
	ID          int64
	LotteryType LotteryType
	// FundPercent is the share of revenue that forms the prize pool.
	FundPercent decimal.Decimal
	Currency    string
	Rules       []PrizeRule
}

// FixedRules returns the fixed-position rules ordered by place.
func (c *PrizeConfiguration) FixedRules() []FixedPosition {
	var fixed []FixedPosition
	for _, r := range c.Rules {
		if fp, ok := r.(FixedPosition); ok {
			fixed = append(fixed, fp)
		}
	}
	sort.Slice(fixed, func(i, j int) bool { return fixed[i].Place() < fixed[j].Place() })
	return fixed
}

func (c *PrizeConfiguration) Tail() *DynamicTailRule {
	for _, r := range c.Rules {
		if t, ok := r.(DynamicTailRule); ok {
			return &t
		}
	}
	return nil
}

func (c *PrizeConfiguration) Validate() error {
	hundred := decimal.NewFromInt(100)
	if c.FundPercent.LessThanOrEqual(decimal.Zero) || c.FundPercent.GreaterThan(hundred) {
		return invalidPrizeConfig("fund percent %s out of (0, 100]", c.FundPercent)
	}

	seen := make(map[int]bool)
	percentSum := decimal.Zero
	tails := 0
	lastFixed := 0
	var tail *DynamicTailRule
	for _, r := range c.Rules {
		switch rule := r.(type) {
		case FixedAmount:
			if rule.Amount.IsNegative() {
				return invalidPrizeConfig("negative amount for position %d", rule.Position)
			}
		case FixedPercent:
			if rule.Percent.IsNegative() {
				return invalidPrizeConfig("negative percent for position %d", rule.Position)
			}
			percentSum = percentSum.Add(rule.Percent)
		case DynamicTailRule:
			tails++
			if !rule.StartPercent.IsPositive() || !rule.DecreaseStep.IsPositive() || !rule.MinAmount.IsPositive() {
				return invalidPrizeConfig("tail start percent, step and min amount must be positive")
			}
			if rule.AfterPosition < 0 {
				return invalidPrizeConfig("negative tail after position")
			}
			if !rule.BaseFundPercent.IsPositive() || rule.BaseFundPercent.GreaterThan(hundred) {
				return invalidPrizeConfig("tail base fund percent %s out of (0, 100]", rule.BaseFundPercent)
			}
			tail = &rule
			continue
		default:
			return invalidPrizeConfig("unknown rule %T", r)
		}

		place := r.(FixedPosition).Place()
		if place < 1 {
			return invalidPrizeConfig("position %d must start at 1", place)
		}
		if seen[place] {
			return invalidPrizeConfig("duplicate position %d", place)
		}
		seen[place] = true
		if place > lastFixed {
			lastFixed = place
		}
	}
	if tails > 1 {
		return invalidPrizeConfig("more than one tail rule")
	}
	if tail != nil && tail.AfterPosition < lastFixed {
		return invalidPrizeConfig("tail starts after %d but position %d is fixed", tail.AfterPosition, lastFixed)
	}
	if percentSum.GreaterThan(hundred) {
		return invalidPrizeConfig("fixed percents sum to %s", percentSum)
	}
	return nil
}

func invalidPrizeConfig(format string, args ...any) error {
	return NewValidationError(fmt.Errorf("%w: %s", ErrInvalidPrizeConfig, fmt.Sprintf(format, args...)))
}

type prizeRuleEnvelope struct {
	Kind PrizeRuleKind   `json:"kind"`
	Rule json.RawMessage `json:"rule"`
}

// MarshalPrizeRules encodes rules as a list of {kind, rule} envelopes.
func MarshalPrizeRules(rules []PrizeRule) ([]byte, error) {
	envelopes := make([]prizeRuleEnvelope, 0, len(rules))
	for _, r := range rules {
		raw, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, prizeRuleEnvelope{Kind: r.Kind(), Rule: raw})
	}
	return json.Marshal(envelopes)
}

func UnmarshalPrizeRules(data []byte) ([]PrizeRule, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var envelopes []prizeRuleEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return nil, err
	}
	rules := make([]PrizeRule, 0, len(envelopes))
	for _, e := range envelopes {
		var (
			rule PrizeRule
			err  error
		)
		switch e.Kind {
		case PrizeRuleFixedAmount:
			var r FixedAmount
			err = json.Unmarshal(e.Rule, &r)
			rule = r
		case PrizeRuleFixedPercent:
			var r FixedPercent
			err = json.Unmarshal(e.Rule, &r)
			rule = r
		case PrizeRuleDynamicTail:
			var r DynamicTailRule
			err = json.Unmarshal(e.Rule, &r)
			rule = r
		default:
			return nil, fmt.Errorf("unknown prize rule kind %q", e.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s rule: %w", e.Kind, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

type PrizeConfigRepository interface {
	GetPrizeConfiguration(ctx context.Context, id int64) (*PrizeConfiguration, error)
	// SavePrizeConfiguration inserts or replaces the configuration with c.ID.
	SavePrizeConfiguration(ctx context.Context, c *PrizeConfiguration) error
}
