package orderfeed

import (
	"context"
	"errors"
	"strings"
)

// StopReason explains why a Pager stopped.
type StopReason string

const (
	StopNone        StopReason = ""
	StopTokenAbsent StopReason = "token_absent"
	StopPageCap     StopReason = "page_cap"
	StopAPIError    StopReason = "api_error"
	StopCancelled   StopReason = "cancelled"
)

// PageSource fetches one page. *Client satisfies it.
type PageSource interface {
	SearchOrders(ctx context.Context, req PageRequest) (Page, error)
}

// Pager is a lazy, finite, non-restartable sequence of feed pages.
//
//	p := orderfeed.NewPager(client, 50, 40)
//	for p.Next(ctx) {
//		handle(p.Page())
//	}
//	if err := p.Err(); err != nil { ... }
type Pager struct {
	source   PageSource
	pageSize int
	maxPages int

	token   string
	fetched int
	page    Page
	stop    StopReason
	err     error
}

// NewPager constructs a pager. maxPages <= 0 means no cap.
func NewPager(source PageSource, pageSize, maxPages int) *Pager {
	return &Pager{source: source, pageSize: pageSize, maxPages: maxPages}
}

// Next fetches the next page. It returns false once the pager has stopped;
// StopReason and Err then describe why.
func (p *Pager) Next(ctx context.Context) bool {
	if p.stop != StopNone {
		return false
	}
	if p.fetched > 0 && strings.TrimSpace(p.token) == "" {
		p.stop = StopTokenAbsent
		return false
	}
	if p.maxPages > 0 && p.fetched >= p.maxPages {
		p.stop = StopPageCap
		return false
	}
	if err := ctx.Err(); err != nil {
		p.stop = StopCancelled
		p.err = err
		return false
	}

	page, err := p.source.SearchOrders(ctx, PageRequest{PageSize: p.pageSize, PageToken: p.token})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			p.stop = StopCancelled
		} else {
			p.stop = StopAPIError
		}
		p.err = err
		return false
	}
	p.fetched++
	p.page = page
	p.token = page.NextPageToken
	return true
}

// Page returns the page fetched by the last successful Next.
func (p *Pager) Page() Page {
	return p.page
}

// Pages returns how many pages were fetched.
func (p *Pager) Pages() int {
	return p.fetched
}

// StopReason reports why the pager stopped, or StopNone while it is live.
func (p *Pager) StopReason() StopReason {
	return p.stop
}

// Err returns the error that stopped the pager, if any.
func (p *Pager) Err() error {
	return p.err
}

// Stop ends iteration early with the given reason. Used for cooperative
// stops between pages.
func (p *Pager) Stop(reason StopReason) {
	if p.stop == StopNone {
		p.stop = reason
	}
}
