package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"creatorsync/internal/creator"
	"creatorsync/internal/identity"
	"creatorsync/internal/services"
)

const creatorColumns = "id, handle, external_user_id, phone, phone_verified, first_name, last_name, nickname, avatar_url, address_line1, postal_code, city, state, country, follower_count, gmv_cents, video_gmv_cents, avg_video_views, last_sample_at, last_enriched_at, enrichment_source, created_at, updated_at"

func scanCreator(scanner interface{ Scan(dest ...any) error }) (*creator.Creator, error) {
	var (
		c                creator.Creator
		handle           sql.NullString
		externalUserID   sql.NullString
		phone            sql.NullString
		phoneVerified    int64
		firstName        sql.NullString
		lastName         sql.NullString
		nickname         sql.NullString
		avatarURL        sql.NullString
		addressLine1     sql.NullString
		postalCode       sql.NullString
		city             sql.NullString
		state            sql.NullString
		country          sql.NullString
		lastSampleRaw    sql.NullString
		lastEnrichedRaw  sql.NullString
		enrichmentSource sql.NullString
		createdRaw       string
		updatedRaw       string
	)
	if err := scanner.Scan(
		&c.ID,
		&handle,
		&externalUserID,
		&phone,
		&phoneVerified,
		&firstName,
		&lastName,
		&nickname,
		&avatarURL,
		&addressLine1,
		&postalCode,
		&city,
		&state,
		&country,
		&c.FollowerCount,
		&c.GMVCents,
		&c.VideoGMVCents,
		&c.AvgVideoViews,
		&lastSampleRaw,
		&lastEnrichedRaw,
		&enrichmentSource,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	c.Handle = handle.String
	c.ExternalUserID = externalUserID.String
	c.Phone = phone.String
	c.PhoneVerified = phoneVerified != 0
	c.FirstName = firstName.String
	c.LastName = lastName.String
	c.Nickname = nickname.String
	c.AvatarURL = avatarURL.String
	c.AddressLine1 = addressLine1.String
	c.PostalCode = postalCode.String
	c.City = city.String
	c.State = state.String
	c.Country = country.String
	c.EnrichmentSource = enrichmentSource.String
	c.LastSampleAt = parseNullableTime(lastSampleRaw.String, lastSampleRaw.Valid)
	c.LastEnrichedAt = parseNullableTime(lastEnrichedRaw.String, lastEnrichedRaw.Valid)
	if created, err := parseTimeString(createdRaw); err == nil {
		c.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		c.UpdatedAt = updated
	}
	return &c, nil
}

// derived lookup keys persisted next to the raw values.
type creatorKeys struct {
	handleKey any
	phoneKey  any
	nameKey   any
}

func keysFor(c *creator.Creator) creatorKeys {
	var keys creatorKeys
	if identity.Usable(c.Handle) {
		keys.handleKey = identity.HandleKey(c.Handle)
	}
	if strings.TrimSpace(c.Phone) != "" {
		keys.phoneKey = nullableString(identity.PhoneKey(c.Phone))
	}
	if !identity.Masked(c.FirstName) && !identity.Masked(c.LastName) {
		if key := identity.NameKey(c.FirstName, c.LastName); len([]rune(key)) > 1 {
			keys.nameKey = key
		}
	}
	return keys
}

// Create inserts a new creator. A handle or external user id already in use
// yields services.ErrValidation.
func (s *Store) Create(ctx context.Context, c *creator.Creator) (*creator.Creator, error) {
	if c == nil {
		return nil, errors.New("creator is nil")
	}
	now := s.timestamp()
	keys := keysFor(c)

	var id int64
	err := retryOnBusy(ensureContext(ctx), func() error {
		return s.queryRow(
			ctx,
			`INSERT INTO creators (
                handle, handle_key, external_user_id, phone, phone_key, phone_verified,
                first_name, last_name, name_key, nickname, avatar_url, address_line1,
                postal_code, city, state, country, follower_count, gmv_cents,
                video_gmv_cents, avg_video_views, last_sample_at, last_enriched_at,
                enrichment_source, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            RETURNING id`,
			nullableString(c.Handle),
			keys.handleKey,
			nullableString(c.ExternalUserID),
			nullableString(c.Phone),
			keys.phoneKey,
			boolToInt(c.PhoneVerified),
			nullableString(c.FirstName),
			nullableString(c.LastName),
			keys.nameKey,
			nullableString(c.Nickname),
			nullableString(c.AvatarURL),
			nullableString(c.AddressLine1),
			nullableString(c.PostalCode),
			nullableString(c.City),
			nullableString(c.State),
			nullableString(c.Country),
			c.FollowerCount,
			c.GMVCents,
			c.VideoGMVCents,
			c.AvgVideoViews,
			nullableTime(c.LastSampleAt),
			nullableTime(c.LastEnrichedAt),
			nullableString(c.EnrichmentSource),
			now,
			now,
		).Scan(&id)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, services.Wrap(services.ErrValidation, "store", "create creator", "handle or external user id already in use", err)
		}
		return nil, fmt.Errorf("insert creator: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Update applies a merge patch to a single creator atomically. The fill-missing
// rule is re-checked against the row as it exists inside the transaction, so a
// patch computed from a stale read cannot overwrite a value another run filled
// in the meantime.
func (s *Store) Update(ctx context.Context, id int64, patch creator.Patch) error {
	if patch.Empty() {
		return nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, s.rebind(`SELECT `+creatorColumns+` FROM creators WHERE id = ?`+s.dialect.forUpdate), id)
		current, err := scanCreator(row)
		if errors.Is(err, sql.ErrNoRows) {
			return services.Wrap(services.ErrNotFound, "store", "update creator", fmt.Sprintf("creator %d does not exist", id), nil)
		}
		if err != nil {
			return fmt.Errorf("load creator: %w", err)
		}

		if patch.ExternalUserID != "" && current.ExternalUserID != "" && current.ExternalUserID != patch.ExternalUserID {
			return services.Wrap(services.ErrValidation, "store", "update creator", "creator already linked to a different external user id", nil)
		}

		guarded := patch
		guarded.Fields = nil
		for field, value := range patch.Fields {
			if identity.Usable(current.Get(field)) {
				continue
			}
			if guarded.Fields == nil {
				guarded.Fields = make(map[creator.Field]string, len(patch.Fields))
			}
			guarded.Fields[field] = value
		}
		// Verification belongs to the phone this patch wrote. When another run
		// filled a different number first, the flag must not transfer to it.
		if phone, ok := patch.Fields[creator.FieldPhone]; ok && guarded.Fields[creator.FieldPhone] == "" && current.Phone != phone {
			guarded.PhoneVerified = false
		}
		if guarded.Empty() {
			return nil
		}
		guarded.Apply(current)
		keys := keysFor(current)

		_, err = tx.ExecContext(ctx, s.rebind(`UPDATE creators SET
                handle = ?, handle_key = ?, external_user_id = ?, phone = ?, phone_key = ?,
                phone_verified = ?, first_name = ?, last_name = ?, name_key = ?, nickname = ?,
                avatar_url = ?, address_line1 = ?, postal_code = ?, city = ?, state = ?,
                country = ?, follower_count = ?, gmv_cents = ?, video_gmv_cents = ?,
                avg_video_views = ?, last_sample_at = ?, last_enriched_at = ?,
                enrichment_source = ?, updated_at = ?
            WHERE id = ?`),
			nullableString(current.Handle),
			keys.handleKey,
			nullableString(current.ExternalUserID),
			nullableString(current.Phone),
			keys.phoneKey,
			boolToInt(current.PhoneVerified),
			nullableString(current.FirstName),
			nullableString(current.LastName),
			keys.nameKey,
			nullableString(current.Nickname),
			nullableString(current.AvatarURL),
			nullableString(current.AddressLine1),
			nullableString(current.PostalCode),
			nullableString(current.City),
			nullableString(current.State),
			nullableString(current.Country),
			current.FollowerCount,
			current.GMVCents,
			current.VideoGMVCents,
			current.AvgVideoViews,
			nullableTime(current.LastSampleAt),
			nullableTime(current.LastEnrichedAt),
			nullableString(current.EnrichmentSource),
			s.timestamp(),
			id,
		)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return services.Wrap(services.ErrValidation, "store", "update creator", "handle or external user id already in use", err)
		}
		if errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrNotFound) {
			return err
		}
		return fmt.Errorf("update creator: %w", err)
	}
	return nil
}

// GetByID fetches a creator by identifier. It returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*creator.Creator, error) {
	return s.getOne(ctx, "get creator", `SELECT `+creatorColumns+` FROM creators WHERE id = ?`, id)
}

// GetByExternalUserID fetches the creator linked to an external user id.
func (s *Store) GetByExternalUserID(ctx context.Context, externalUserID string) (*creator.Creator, error) {
	externalUserID = strings.TrimSpace(externalUserID)
	if externalUserID == "" {
		return nil, nil
	}
	return s.getOne(ctx, "get by external user id", `SELECT `+creatorColumns+` FROM creators WHERE external_user_id = ?`, externalUserID)
}

// GetByHandle fetches a creator by handle, ignoring case and a leading '@'.
func (s *Store) GetByHandle(ctx context.Context, handle string) (*creator.Creator, error) {
	key := identity.HandleKey(handle)
	if key == "" {
		return nil, nil
	}
	return s.getOne(ctx, "get by handle", `SELECT `+creatorColumns+` FROM creators WHERE handle_key = ?`, key)
}

// FindByPhone returns every creator whose stored phone equals the E.164 value.
func (s *Store) FindByPhone(ctx context.Context, e164 string) ([]*creator.Creator, error) {
	return s.list(ctx, "find by phone", `SELECT `+creatorColumns+` FROM creators WHERE phone = ? ORDER BY id`, e164)
}

// FindByPhonePattern returns creators whose phone key matches a LIKE pattern
// produced by identity.PhonePattern.
func (s *Store) FindByPhonePattern(ctx context.Context, likePattern string) ([]*creator.Creator, error) {
	if likePattern == "" {
		return nil, nil
	}
	return s.list(ctx, "find by phone pattern", `SELECT `+creatorColumns+` FROM creators WHERE phone_key LIKE ? ORDER BY id`, likePattern)
}

// FindByName returns creators with the given normalized name key.
func (s *Store) FindByName(ctx context.Context, nameKey string) ([]*creator.Creator, error) {
	if nameKey == "" {
		return nil, nil
	}
	return s.list(ctx, "find by name", `SELECT `+creatorColumns+` FROM creators WHERE name_key = ? ORDER BY id`, nameKey)
}

// CountCreators returns the number of stored creators.
func (s *Store) CountCreators(ctx context.Context) (int, error) {
	var count int
	if err := s.queryRow(ctx, `SELECT COUNT(1) FROM creators`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count creators: %w", err)
	}
	return count, nil
}

func (s *Store) getOne(ctx context.Context, op, query string, args ...any) (*creator.Creator, error) {
	c, err := scanCreator(s.queryRow(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (s *Store) list(ctx context.Context, op, query string, args ...any) ([]*creator.Creator, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []*creator.Creator
	for rows.Next() {
		c, err := scanCreator(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

var _ creator.Store = (*Store)(nil)
