package match

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"creatorsync/internal/creator"
	"creatorsync/internal/identity"
	"creatorsync/internal/logging"
	"creatorsync/internal/services"
)

// Signals are the identity hints extracted from an incoming record. Any subset
// may be empty.
type Signals struct {
	ExternalUserID string
	Phone          string
	DisplayName    string
	FirstName      string
	LastName       string
}

// names returns the first and last name, splitting DisplayName when the
// explicit parts are absent.
func (s Signals) names() (string, string) {
	if strings.TrimSpace(s.FirstName) != "" || strings.TrimSpace(s.LastName) != "" {
		return strings.TrimSpace(s.FirstName), strings.TrimSpace(s.LastName)
	}
	return identity.SplitName(s.DisplayName)
}

// OutcomeKind is the result of a single strategy.
type OutcomeKind int

const (
	// NoSignal means the strategy had nothing to work with; try the next one.
	NoSignal OutcomeKind = iota
	Matched
	Ambiguous
)

// Outcome is what one strategy concluded.
type Outcome struct {
	Kind       OutcomeKind
	Creator    *creator.Creator
	Candidates int
}

// Strategy inspects signals and reports an outcome. Strategies only read.
type Strategy struct {
	Rule string
	Fn   func(ctx context.Context, lookup creator.Lookup, signals Signals) (Outcome, error)
}

// Kind is the resolver's final answer.
type Kind string

const (
	KindMatched   Kind = "matched"
	KindAmbiguous Kind = "ambiguous"
	KindNotFound  Kind = "not_found"
)

// Result is the resolver's answer. Rule names the strategy that decided it.
type Result struct {
	Kind       Kind
	Creator    *creator.Creator
	Rule       string
	Candidates int
}

// Resolver evaluates strategies in priority order.
type Resolver struct {
	lookup     creator.Lookup
	strategies []Strategy
	logger     *slog.Logger
}

// NewResolver constructs a resolver with the default strategy order.
func NewResolver(lookup creator.Lookup, defaultCountry string, logger *slog.Logger) *Resolver {
	return NewResolverWithStrategies(lookup, DefaultStrategies(defaultCountry), logger)
}

// NewResolverWithStrategies constructs a resolver with a custom strategy list.
func NewResolverWithStrategies(lookup creator.Lookup, strategies []Strategy, logger *slog.Logger) *Resolver {
	return &Resolver{
		lookup:     lookup,
		strategies: strategies,
		logger:     logging.NewComponentLogger(logger, "match"),
	}
}

// DefaultStrategies returns the standard strategy order.
func DefaultStrategies(defaultCountry string) []Strategy {
	return []Strategy{
		{Rule: "external_user_id", Fn: ByExternalUserID},
		{Rule: "phone", Fn: ByPhone(defaultCountry)},
		{Rule: "masked_phone", Fn: ByMaskedPhone},
		{Rule: "name", Fn: ByName},
	}
}

// Resolve returns the creator the signals identify, or NotFound/Ambiguous.
// Lookup errors are returned wrapped as transient; the caller decides whether
// to skip the record.
func (r *Resolver) Resolve(ctx context.Context, signals Signals) (Result, error) {
	for _, strategy := range r.strategies {
		outcome, err := strategy.Fn(ctx, r.lookup, signals)
		if err != nil {
			return Result{}, services.Wrap(services.ErrTransient, "match", strategy.Rule, "creator lookup failed", err)
		}
		switch outcome.Kind {
		case Matched:
			return Result{Kind: KindMatched, Creator: outcome.Creator, Rule: strategy.Rule, Candidates: 1}, nil
		case Ambiguous:
			r.logger.Debug("ambiguous identity match",
				logging.String("rule", strategy.Rule),
				logging.Int("candidates", outcome.Candidates),
			)
			return Result{Kind: KindAmbiguous, Rule: strategy.Rule, Candidates: outcome.Candidates}, nil
		}
	}
	return Result{Kind: KindNotFound}, nil
}

// ByExternalUserID matches on the stable third-party id.
func ByExternalUserID(ctx context.Context, lookup creator.Lookup, signals Signals) (Outcome, error) {
	id := strings.TrimSpace(signals.ExternalUserID)
	if !identity.Usable(id) {
		return Outcome{}, nil
	}
	found, err := lookup.GetByExternalUserID(ctx, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("get by external user id: %w", err)
	}
	if found == nil {
		return Outcome{}, nil
	}
	return Outcome{Kind: Matched, Creator: found, Candidates: 1}, nil
}

// ByPhone matches an unmasked phone after E.164 normalization. Malformed
// numbers are treated as absent.
func ByPhone(defaultCountry string) func(context.Context, creator.Lookup, Signals) (Outcome, error) {
	return func(ctx context.Context, lookup creator.Lookup, signals Signals) (Outcome, error) {
		e164, ok := identity.NormalizePhone(signals.Phone, defaultCountry)
		if !ok {
			return Outcome{}, nil
		}
		found, err := lookup.FindByPhone(ctx, e164)
		if err != nil {
			return Outcome{}, fmt.Errorf("find by phone: %w", err)
		}
		return fromCandidates(found), nil
	}
}

// ByMaskedPhone matches a masked phone fragment against stored phone keys.
// Exactly one candidate matches; zero or several are Ambiguous, so a masked
// fragment never falls through to the name rule.
func ByMaskedPhone(ctx context.Context, lookup creator.Lookup, signals Signals) (Outcome, error) {
	pattern, ok := identity.ParseMaskedPhone(signals.Phone)
	if !ok {
		return Outcome{}, nil
	}
	found, err := lookup.FindByPhonePattern(ctx, pattern.LikePattern())
	if err != nil {
		return Outcome{}, fmt.Errorf("find by phone pattern: %w", err)
	}
	if len(found) == 1 {
		return Outcome{Kind: Matched, Creator: found[0], Candidates: 1}, nil
	}
	return Outcome{Kind: Ambiguous, Candidates: len(found)}, nil
}

// ByName matches an exact normalized first and last name. Masked or
// single-character names carry no signal.
func ByName(ctx context.Context, lookup creator.Lookup, signals Signals) (Outcome, error) {
	first, last := signals.names()
	if identity.Masked(first) || identity.Masked(last) {
		return Outcome{}, nil
	}
	key := identity.NameKey(first, last)
	if len([]rune(key)) <= 1 {
		return Outcome{}, nil
	}
	found, err := lookup.FindByName(ctx, key)
	if err != nil {
		return Outcome{}, fmt.Errorf("find by name: %w", err)
	}
	return fromCandidates(found), nil
}

func fromCandidates(found []*creator.Creator) Outcome {
	switch len(found) {
	case 0:
		return Outcome{}
	case 1:
		return Outcome{Kind: Matched, Creator: found[0], Candidates: 1}
	default:
		return Outcome{Kind: Ambiguous, Candidates: len(found)}
	}
}
