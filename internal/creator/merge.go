package creator

import (
	"strings"
	"time"

	"creatorsync/internal/identity"
)

// Conflict describes a merge outcome that was refused rather than applied.
type Conflict string

const (
	ConflictNone Conflict = ""
	// ConflictAlreadyLinked means the creator is linked to a different external user id.
	ConflictAlreadyLinked Conflict = "already_linked"
)

// Incoming carries candidate attribute values from an untrusted source. Masking
// is detected with identity.Masked; Masked marks fields the source flagged as
// redacted even when no placeholder characters are present.
type Incoming struct {
	Values         map[Field]string
	ExternalUserID string
	PhoneVerified  bool
	Masked         map[Field]bool
	SampleAt       *time.Time
	Metrics        *Metrics
}

// With returns a copy of in with field set to value.
func (in Incoming) With(field Field, value string) Incoming {
	values := make(map[Field]string, len(in.Values)+1)
	for k, v := range in.Values {
		values[k] = v
	}
	values[field] = value
	in.Values = values
	return in
}

func (in Incoming) usable(f Field, value string) bool {
	if in.Masked[f] {
		return false
	}
	return identity.Usable(value)
}

// Stamp records an enrichment attempt without touching metric values.
type Stamp struct {
	At     time.Time
	Source string
}

// Patch is the minimal set of changes Merge decided to apply.
type Patch struct {
	Fields         map[Field]string
	ExternalUserID string
	PhoneVerified  bool
	Metrics        *Metrics
	Stamp          *Stamp
	LastSampleAt   *time.Time
	Conflict       Conflict
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return len(p.Fields) == 0 && p.ExternalUserID == "" && !p.PhoneVerified &&
		p.Metrics == nil && p.Stamp == nil && p.LastSampleAt == nil
}

// Merge computes the changes in may safely make to existing. A nil existing
// record yields the patch for creating a new one.
//
// A fill-missing field is applied only when the stored value is empty or masked
// and the incoming value is present and unmasked, so repeated or reordered merges
// converge on the same record.
func Merge(existing *Creator, in Incoming) Patch {
	var current Creator
	if existing != nil {
		current = *existing
	}
	patch := Patch{}

	for _, field := range FillFields {
		value := strings.TrimSpace(in.Values[field])
		if !in.usable(field, value) {
			continue
		}
		stored := current.Get(field)
		if identity.Usable(stored) {
			continue
		}
		if patch.Fields == nil {
			patch.Fields = make(map[Field]string)
		}
		patch.Fields[field] = value
	}

	if in.PhoneVerified && !current.PhoneVerified {
		_, applied := patch.Fields[FieldPhone]
		confirmed := identity.Usable(current.Phone) && current.Phone == strings.TrimSpace(in.Values[FieldPhone])
		patch.PhoneVerified = applied || confirmed
	}

	if id := strings.TrimSpace(in.ExternalUserID); id != "" && !in.Masked[FieldExternalUserID] && !identity.Masked(id) {
		switch current.ExternalUserID {
		case "":
			patch.ExternalUserID = id
		case id:
		default:
			patch.Conflict = ConflictAlreadyLinked
		}
	}

	if in.Metrics != nil {
		m := *in.Metrics
		patch.Metrics = &m
	}

	if in.SampleAt != nil && (current.LastSampleAt == nil || in.SampleAt.After(*current.LastSampleAt)) {
		at := in.SampleAt.UTC()
		patch.LastSampleAt = &at
	}

	return patch
}

// Apply writes the patch onto c in memory. Stores apply the same changes
// in SQL; Apply is used for the create path and for tests.
func (p Patch) Apply(c *Creator) {
	for field, value := range p.Fields {
		c.Set(field, value)
	}
	if p.ExternalUserID != "" && c.ExternalUserID == "" {
		c.ExternalUserID = p.ExternalUserID
	}
	if p.PhoneVerified {
		c.PhoneVerified = true
	}
	if p.Metrics != nil {
		c.FollowerCount = p.Metrics.FollowerCount
		c.GMVCents = p.Metrics.GMVCents
		c.VideoGMVCents = p.Metrics.VideoGMVCents
		c.AvgVideoViews = p.Metrics.AvgVideoViews
		enriched := p.Metrics.EnrichedAt.UTC()
		c.LastEnrichedAt = &enriched
		c.EnrichmentSource = p.Metrics.Source
	}
	if p.Stamp != nil {
		at := p.Stamp.At.UTC()
		c.LastEnrichedAt = &at
		c.EnrichmentSource = p.Stamp.Source
	}
	if p.LastSampleAt != nil && (c.LastSampleAt == nil || p.LastSampleAt.After(*c.LastSampleAt)) {
		at := *p.LastSampleAt
		c.LastSampleAt = &at
	}
}

// WithoutAssets drops auxiliary asset fields (avatar URLs) from the patch.
func (p Patch) WithoutAssets() Patch {
	if _, ok := p.Fields[FieldAvatarURL]; !ok {
		return p
	}
	fields := make(map[Field]string, len(p.Fields))
	for k, v := range p.Fields {
		if k != FieldAvatarURL {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		fields = nil
	}
	p.Fields = fields
	return p
}
