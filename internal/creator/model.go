package creator

import "time"

// Creator is one deduplicated creator identity.
type Creator struct {
	ID             int64
	Handle         string
	ExternalUserID string
	Phone          string
	PhoneVerified  bool
	FirstName      string
	LastName       string
	Nickname       string
	AvatarURL      string
	AddressLine1   string
	PostalCode     string
	City           string
	State          string
	Country        string

	FollowerCount int64
	GMVCents      int64
	VideoGMVCents int64
	AvgVideoViews int64

	LastSampleAt     *time.Time
	LastEnrichedAt   *time.Time
	EnrichmentSource string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Field names an identity or contact attribute governed by the fill-missing rule.
// Values double as column names in the store.
type Field string

const (
	FieldHandle         Field = "handle"
	FieldExternalUserID Field = "external_user_id"
	FieldPhone          Field = "phone"
	FieldFirstName      Field = "first_name"
	FieldLastName       Field = "last_name"
	FieldNickname       Field = "nickname"
	FieldAvatarURL      Field = "avatar_url"
	FieldAddressLine1   Field = "address_line1"
	FieldPostalCode     Field = "postal_code"
	FieldCity           Field = "city"
	FieldState          Field = "state"
	FieldCountry        Field = "country"
)

// FillFields lists the fill-missing fields in a stable order. ExternalUserID is
// handled separately because it is set-once rather than fill-missing.
var FillFields = []Field{
	FieldHandle,
	FieldPhone,
	FieldFirstName,
	FieldLastName,
	FieldNickname,
	FieldAvatarURL,
	FieldAddressLine1,
	FieldPostalCode,
	FieldCity,
	FieldState,
	FieldCountry,
}

// Get returns the stored value of a field.
func (c *Creator) Get(f Field) string {
	switch f {
	case FieldHandle:
		return c.Handle
	case FieldExternalUserID:
		return c.ExternalUserID
	case FieldPhone:
		return c.Phone
	case FieldFirstName:
		return c.FirstName
	case FieldLastName:
		return c.LastName
	case FieldNickname:
		return c.Nickname
	case FieldAvatarURL:
		return c.AvatarURL
	case FieldAddressLine1:
		return c.AddressLine1
	case FieldPostalCode:
		return c.PostalCode
	case FieldCity:
		return c.City
	case FieldState:
		return c.State
	case FieldCountry:
		return c.Country
	}
	return ""
}

// Set assigns a field value.
func (c *Creator) Set(f Field, value string) {
	switch f {
	case FieldHandle:
		c.Handle = value
	case FieldExternalUserID:
		c.ExternalUserID = value
	case FieldPhone:
		c.Phone = value
	case FieldFirstName:
		c.FirstName = value
	case FieldLastName:
		c.LastName = value
	case FieldNickname:
		c.Nickname = value
	case FieldAvatarURL:
		c.AvatarURL = value
	case FieldAddressLine1:
		c.AddressLine1 = value
	case FieldPostalCode:
		c.PostalCode = value
	case FieldCity:
		c.City = value
	case FieldState:
		c.State = value
	case FieldCountry:
		c.Country = value
	}
}

// DisplayName joins first and last name for operator-facing output.
func (c *Creator) DisplayName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

// Metrics are the externally sourced values refreshed by enrichment.
type Metrics struct {
	FollowerCount int64
	GMVCents      int64
	VideoGMVCents int64
	AvgVideoViews int64
	EnrichedAt    time.Time
	Source        string
}
