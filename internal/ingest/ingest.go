package ingest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"creatorsync/internal/creator"
	"creatorsync/internal/identity"
	"creatorsync/internal/logging"
	"creatorsync/internal/match"
	"creatorsync/internal/orderfeed"
	"creatorsync/internal/services"
	"creatorsync/internal/stats"
)

// Params controls one sync run.
type Params struct {
	PageSize int
	MaxPages int
	// Progress, when set, is called after every page with the running counters.
	Progress func(ctx context.Context, counters map[string]int)
}

// Report summarizes a sync run.
type Report struct {
	Counters   map[string]int
	StopReason orderfeed.StopReason
	Pages      int
	Err        error
}

// Ingestor drives the link-or-create path for sample orders.
type Ingestor struct {
	source         orderfeed.PageSource
	store          creator.Store
	resolver       *match.Resolver
	defaultCountry string
	logger         *slog.Logger
	now            func() time.Time
}

// New constructs an Ingestor.
func New(source orderfeed.PageSource, store creator.Store, defaultCountry string, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		source:         source,
		store:          store,
		resolver:       match.NewResolver(store, defaultCountry, logger),
		defaultCountry: defaultCountry,
		logger:         logging.NewComponentLogger(logger, "ingest"),
		now:            time.Now,
	}
}

// Run pages through the feed until the pager stops. Records are processed
// with cancellation detached so a page in progress always completes; the
// context is honoured between pages.
func (i *Ingestor) Run(ctx context.Context, params Params) Report {
	counters := stats.IngestCounters()
	pager := orderfeed.NewPager(i.source, params.PageSize, params.MaxPages)
	logger := logging.WithContext(ctx, i.logger)

	for pager.Next(ctx) {
		page := pager.Page()
		counters.Inc(stats.Pages)
		recordCtx := context.WithoutCancel(ctx)
		for _, order := range page.Orders {
			counters.Inc(stats.Orders)
			if !order.IsSampleOrder {
				counters.Inc(stats.Skipped)
				continue
			}
			outcome, err := i.processOrder(recordCtx, order)
			if err != nil {
				counters.Inc(stats.Errors)
				logging.WarnWithContext(logger, "sample order failed", "order_failed",
					logging.String("order_id", order.ID),
					logging.String("user_id", order.UserID),
					logging.String("error_kind", string(services.Classify(err))),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "the order is retried on the next sync"),
				)
				continue
			}
			for _, name := range outcome {
				counters.Inc(name)
			}
		}
		if params.Progress != nil {
			params.Progress(ctx, counters.Snapshot())
		}
		logger.Debug("order page processed",
			logging.Int("page", pager.Pages()),
			logging.Int("orders", len(page.Orders)),
		)
	}

	report := Report{
		Counters:   counters.Snapshot(),
		StopReason: pager.StopReason(),
		Pages:      pager.Pages(),
		Err:        pager.Err(),
	}
	if report.Err != nil && report.StopReason == orderfeed.StopAPIError {
		logging.ErrorWithContext(logger, "order feed stopped", "feed_error",
			logging.Error(report.Err),
			logging.String(logging.FieldErrorHint, "check order_feed credentials and connectivity"),
		)
	}
	return report
}

// processOrder handles one sample order and returns the counters to bump.
func (i *Ingestor) processOrder(ctx context.Context, order orderfeed.Order) ([]string, error) {
	in, signals := i.incomingFromOrder(order)

	res, err := i.resolver.Resolve(ctx, signals)
	if err != nil {
		return nil, err
	}

	switch res.Kind {
	case match.KindMatched:
		return i.link(ctx, res.Creator, res.Rule, in)
	case match.KindAmbiguous:
		// Never link on ambiguity. A record with its own stable id can still be
		// created, since the next sync will find it by that id first.
		if !identity.Usable(in.ExternalUserID) {
			return []string{stats.Ambiguous, stats.Skipped}, nil
		}
		names, err := i.create(ctx, in)
		return append([]string{stats.Ambiguous}, names...), err
	default:
		if !refindable(in, signals, i.defaultCountry) {
			return []string{stats.Skipped}, nil
		}
		return i.create(ctx, in)
	}
}

func (i *Ingestor) link(ctx context.Context, existing *creator.Creator, rule string, in creator.Incoming) ([]string, error) {
	outcome := []string{}
	id := strings.TrimSpace(in.ExternalUserID)

	if rule == "external_user_id" {
		outcome = append(outcome, stats.AlreadyLinked)
	} else if id != "" && existing.ExternalUserID == "" {
		other, err := i.store.GetByExternalUserID(ctx, id)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "ingest", "link guard", "lookup external user id", err)
		}
		if other != nil && other.ID != existing.ID {
			outcome = append(outcome, stats.AlreadyLinked)
			in.ExternalUserID = ""
		}
	}

	patch := creator.Merge(existing, in)
	// The record belongs to another user, so none of it applies here, not
	// even last_sample_at.
	if patch.Conflict == creator.ConflictAlreadyLinked {
		i.logger.Info("creator already linked to a different user",
			logging.Int64(logging.FieldCreatorID, existing.ID),
			logging.String("rule", rule),
		)
		return []string{stats.AlreadyLinked}, nil
	}

	changed := len(patch.Fields) > 0 || patch.ExternalUserID != "" || patch.PhoneVerified
	if !patch.Empty() {
		if err := i.store.Update(ctx, existing.ID, patch); err != nil {
			return nil, err
		}
	}
	if len(outcome) > 0 {
		return outcome, nil
	}
	if changed {
		return []string{stats.Matched}, nil
	}
	return []string{stats.Unchanged}, nil
}

func (i *Ingestor) create(ctx context.Context, in creator.Incoming) ([]string, error) {
	var c creator.Creator
	creator.Merge(nil, in).Apply(&c)
	created, err := i.store.Create(ctx, &c)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			i.logger.Debug("create rejected by uniqueness constraint", logging.Error(err))
		}
		return nil, err
	}
	i.logger.Debug("creator created",
		logging.Int64(logging.FieldCreatorID, created.ID),
		logging.String("external_user_id", created.ExternalUserID),
	)
	return []string{stats.Created}, nil
}

func (i *Ingestor) incomingFromOrder(order orderfeed.Order) (creator.Incoming, match.Signals) {
	addr := order.RecipientAddress
	first, last := strings.TrimSpace(addr.FirstName), strings.TrimSpace(addr.LastName)
	if first == "" && last == "" {
		first, last = identity.SplitName(addr.Name)
	}

	values := map[creator.Field]string{
		creator.FieldFirstName:    first,
		creator.FieldLastName:     last,
		creator.FieldAddressLine1: addr.AddressLine1,
		creator.FieldPostalCode:   addr.PostalCode,
		creator.FieldCity:         addr.District("City"),
		creator.FieldState:        addr.District("State"),
		creator.FieldCountry:      addr.District("Country"),
	}
	verified := false
	if e164, ok := identity.NormalizePhone(addr.PhoneNumber, i.defaultCountry); ok {
		values[creator.FieldPhone] = e164
		verified = true
	}

	sampleAt := i.now().UTC()
	if order.CreateTime > 0 {
		sampleAt = time.Unix(order.CreateTime, 0).UTC()
	}

	in := creator.Incoming{
		Values:         values,
		ExternalUserID: strings.TrimSpace(order.UserID),
		PhoneVerified:  verified,
		SampleAt:       &sampleAt,
	}
	signals := match.Signals{
		ExternalUserID: order.UserID,
		Phone:          addr.PhoneNumber,
		DisplayName:    addr.Name,
		FirstName:      first,
		LastName:       last,
	}
	return in, signals
}

// refindable reports whether a creator created from in would be matched again
// by a later sync of the same record, which keeps re-runs from duplicating it.
func refindable(in creator.Incoming, signals match.Signals, defaultCountry string) bool {
	if identity.Usable(in.ExternalUserID) {
		return true
	}
	if _, ok := identity.NormalizePhone(signals.Phone, defaultCountry); ok {
		return true
	}
	first, last := in.Values[creator.FieldFirstName], in.Values[creator.FieldLastName]
	if identity.Masked(first) || identity.Masked(last) {
		return false
	}
	return len([]rune(identity.NameKey(first, last))) > 1
}
