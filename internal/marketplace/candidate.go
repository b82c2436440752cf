package marketplace

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"creatorsync/internal/identity"
)

// Money is a provider amount in integer minor units.
type Money struct {
	MinorUnits int64
	Currency   string
}

// Candidate is one creator returned by a marketplace search.
type Candidate struct {
	Username      string
	Nickname      string
	AvatarURL     string
	FollowerCount int64
	GMV           Money
	VideoGMV      Money
	AvgVideoViews int64
}

type moneyPayload struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type candidatePayload struct {
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Avatar   struct {
		URL string `json:"url"`
	} `json:"avatar"`
	FollowerCount json.Number   `json:"follower_count"`
	GMV           *moneyPayload `json:"gmv"`
	VideoGMV      *moneyPayload `json:"video_gmv"`
	AvgVideoViews json.Number   `json:"avg_ec_video_view_count"`
}

func (p candidatePayload) toCandidate() (Candidate, error) {
	c := Candidate{
		Username:  strings.TrimSpace(p.Username),
		Nickname:  strings.TrimSpace(p.Nickname),
		AvatarURL: strings.TrimSpace(p.Avatar.URL),
	}
	var err error
	if c.FollowerCount, err = wholeNumber(p.FollowerCount); err != nil {
		return Candidate{}, fmt.Errorf("follower_count: %w", err)
	}
	if c.AvgVideoViews, err = wholeNumber(p.AvgVideoViews); err != nil {
		return Candidate{}, fmt.Errorf("avg_ec_video_view_count: %w", err)
	}
	if c.GMV, err = p.GMV.toMoney(); err != nil {
		return Candidate{}, fmt.Errorf("gmv: %w", err)
	}
	if c.VideoGMV, err = p.VideoGMV.toMoney(); err != nil {
		return Candidate{}, fmt.Errorf("video_gmv: %w", err)
	}
	return c, nil
}

func (m *moneyPayload) toMoney() (Money, error) {
	if m == nil {
		return Money{}, nil
	}
	minor, err := ParseMinorUnits(m.Amount, m.Currency)
	if err != nil {
		return Money{}, err
	}
	return Money{MinorUnits: minor, Currency: normalizeCurrency(m.Currency)}, nil
}

// wholeNumber converts a JSON number (possibly fractional) to an integer,
// rounding half away from zero.
func wholeNumber(n json.Number) (int64, error) {
	if n == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return 0, err
	}
	return toInt64(d)
}

// ExactMatch returns the candidate whose username equals handle, ignoring case,
// surrounding whitespace, and a leading '@'. Near matches are never accepted.
func ExactMatch(candidates []Candidate, handle string) (Candidate, bool) {
	want := identity.HandleKey(handle)
	if want == "" {
		return Candidate{}, false
	}
	for _, c := range candidates {
		if identity.HandleKey(c.Username) == want {
			return c, true
		}
	}
	return Candidate{}, false
}
