package orderfeed

import "strings"

// District is one level of a recipient's administrative address.
type District struct {
	LevelName string `json:"address_level_name"`
	Name      string `json:"address_name"`
}

// RecipientAddress is the shipping sub-object that carries identity signals.
type RecipientAddress struct {
	Name         string     `json:"name"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	PhoneNumber  string     `json:"phone_number"`
	AddressLine1 string     `json:"address_line1"`
	PostalCode   string     `json:"postal_code"`
	DistrictInfo []District `json:"district_info"`
}

// District returns the name recorded for a level such as "State" or "City",
// matching the level name case-insensitively.
func (a RecipientAddress) District(level string) string {
	for _, d := range a.DistrictInfo {
		if strings.EqualFold(strings.TrimSpace(d.LevelName), level) {
			return strings.TrimSpace(d.Name)
		}
	}
	return ""
}

// Order is one record from the feed.
type Order struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	IsSampleOrder    bool             `json:"is_sample_order"`
	CreateTime       int64            `json:"create_time"`
	RecipientAddress RecipientAddress `json:"recipient_address"`
}

// Page is one response from the feed.
type Page struct {
	Orders        []Order `json:"orders"`
	NextPageToken string  `json:"next_page_token"`
}

// PageRequest asks for one page.
type PageRequest struct {
	PageSize  int    `json:"page_size"`
	PageToken string `json:"page_token,omitempty"`
}
