package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/stravainsights/internal/apierr"
	"github.com/2beens/stravainsights/internal/strava"
	"github.com/2beens/stravainsights/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrUserNotFound      = apierr.NotFound("user not found")
	ErrMilestoneNotFound = apierr.NotFound("milestone not found")
)

const userColumns = `id, strava_id, username, firstname, lastname, email, city, state, country, sex, weight,
	profile, profile_medium, access_token, refresh_token, token_expires_at, milestones, created_at, updated_at`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var milestonesJson []byte
	if err := row.Scan(
		&u.ID, &u.StravaID, &u.Username, &u.FirstName, &u.LastName, &u.Email,
		&u.City, &u.State, &u.Country, &u.Sex, &u.Weight,
		&u.Profile, &u.ProfileMedium, &u.AccessToken, &u.RefreshToken, &u.TokenExpires,
		&milestonesJson, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	milestones, err := decodeMilestones(milestonesJson)
	if err != nil {
		return nil, err
	}
	u.Milestones = milestones

	return &u, nil
}

func decodeMilestones(raw []byte) ([]Milestone, error) {
	milestones := []Milestone{}
	if len(raw) == 0 {
		return milestones, nil
	}
	if err := json.Unmarshal(raw, &milestones); err != nil {
		return nil, fmt.Errorf("unmarshal milestones: %w", err)
	}
	return milestones, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("user.id", id))

	return scanUser(r.db.QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM app_user WHERE id = $1;`,
		id,
	))
}

func (r *Repo) GetByStravaID(ctx context.Context, stravaID int64) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.getByStravaId")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("user.strava_id", stravaID))

	return scanUser(r.db.QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM app_user WHERE strava_id = $1;`,
		stravaID,
	))
}

// Credentials loads what the strava gateway needs to act for the user
func (r *Repo) Credentials(ctx context.Context, userID int64) (*strava.Credentials, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Credentials(), nil
}

// UpsertFromAthlete creates the user on first login. For a known athlete only
// the tokens are replaced, profile fields change through SyncProfile.
func (r *Repo) UpsertFromAthlete(ctx context.Context, athlete *strava.Athlete, tokens NewUserTokens) (_ *User, created bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.upsertFromAthlete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if athlete == nil || athlete.ID == 0 {
		return nil, false, errors.New("athlete id missing")
	}
	span.SetAttributes(attribute.Int64("user.strava_id", athlete.ID))

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO app_user
				(strava_id, username, firstname, lastname, email, city, state, country, sex, weight,
				 profile, profile_medium, access_token, refresh_token, token_expires_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (strava_id) DO UPDATE SET
				access_token = EXCLUDED.access_token,
				refresh_token = EXCLUDED.refresh_token,
				token_expires_at = EXCLUDED.token_expires_at,
				updated_at = now()
			RETURNING id, (xmax = 0);`,
		athlete.ID, athlete.Username, athlete.FirstName, athlete.LastName, athlete.Email,
		athlete.City, athlete.State, athlete.Country, athlete.Sex, athlete.Weight,
		athlete.Profile, athlete.ProfileMedium,
		tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt.UTC(),
	)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, false, err
		}
		return nil, false, errors.New("unexpected error [no rows next]")
	}

	var id int64
	if err := rows.Scan(&id, &created); err != nil {
		return nil, false, fmt.Errorf("rows scan: %w", err)
	}
	rows.Close()

	span.SetAttributes(
		attribute.Int64("user.id", id),
		attribute.Bool("user.created", created),
	)

	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}

// UpdateTokens stores a refreshed (already encrypted) token set in a single statement
func (r *Repo) UpdateTokens(ctx context.Context, userID int64, accessToken, refreshToken string, expiresAt time.Time) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.updateTokens")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("user.id", userID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE app_user SET access_token = $1, refresh_token = $2, token_expires_at = $3, updated_at = now() WHERE id = $4;`,
		accessToken, refreshToken, expiresAt.UTC(), userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repo) UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.updateProfile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("user.id", userID))

	return scanUser(r.db.QueryRow(
		ctx,
		`UPDATE app_user SET
				firstname = COALESCE($1, firstname),
				lastname = COALESCE($2, lastname),
				city = COALESCE($3, city),
				state = COALESCE($4, state),
				country = COALESCE($5, country),
				sex = COALESCE($6, sex),
				weight = COALESCE($7, weight),
				email = COALESCE($8, email),
				updated_at = now()
			WHERE id = $9
			RETURNING `+userColumns+`;`,
		update.FirstName, update.LastName, update.City, update.State,
		update.Country, update.Sex, update.Weight, update.Email, userID,
	))
}

// SyncProfile overwrites the profile fields with the current upstream athlete
func (r *Repo) SyncProfile(ctx context.Context, userID int64, athlete *strava.Athlete) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.syncProfile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("user.id", userID))

	if athlete == nil {
		return nil, errors.New("athlete missing")
	}

	return scanUser(r.db.QueryRow(
		ctx,
		`UPDATE app_user SET
				username = $1, firstname = $2, lastname = $3, city = $4, state = $5, country = $6,
				sex = $7, weight = $8, profile = $9, profile_medium = $10,
				email = CASE WHEN $11 = '' THEN email ELSE $11 END,
				updated_at = now()
			WHERE id = $12
			RETURNING `+userColumns+`;`,
		athlete.Username, athlete.FirstName, athlete.LastName, athlete.City, athlete.State, athlete.Country,
		athlete.Sex, athlete.Weight, athlete.Profile, athlete.ProfileMedium, athlete.Email, userID,
	))
}

// Delete removes the user, activities are removed by the foreign key cascade
func (r *Repo) Delete(ctx context.Context, userID int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("user.id", userID))

	tag, err := r.db.Exec(ctx, `DELETE FROM app_user WHERE id = $1;`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repo) ListMilestones(ctx context.Context, userID int64) (_ []Milestone, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.listMilestones")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("user.id", userID))

	var raw []byte
	if err := r.db.QueryRow(
		ctx,
		`SELECT milestones FROM app_user WHERE id = $1;`,
		userID,
	).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return decodeMilestones(raw)
}

// AddMilestone appends to the embedded milestones array, keeping insertion order
func (r *Repo) AddMilestone(ctx context.Context, userID int64, milestone Milestone) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.addMilestone")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.String("milestone.id", milestone.ID),
	)

	milestoneJson, err := json.Marshal([]Milestone{milestone})
	if err != nil {
		return fmt.Errorf("marshal milestone: %w", err)
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE app_user SET milestones = milestones || $1::jsonb, updated_at = now() WHERE id = $2;`,
		milestoneJson, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// modifyMilestones reads the milestones under a row lock, applies fn and writes them back
func (r *Repo) modifyMilestones(ctx context.Context, userID int64, fn func([]Milestone) ([]Milestone, error)) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var raw []byte
		if err := tx.QueryRow(
			ctx,
			`SELECT milestones FROM app_user WHERE id = $1 FOR UPDATE;`,
			userID,
		).Scan(&raw); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return err
		}

		milestones, err := decodeMilestones(raw)
		if err != nil {
			return err
		}
		milestones, err = fn(milestones)
		if err != nil {
			return err
		}

		milestonesJson, err := json.Marshal(milestones)
		if err != nil {
			return fmt.Errorf("marshal milestones: %w", err)
		}
		_, err = tx.Exec(
			ctx,
			`UPDATE app_user SET milestones = $1::jsonb, updated_at = now() WHERE id = $2;`,
			milestonesJson, userID,
		)
		return err
	})
}

func (r *Repo) UpdateMilestone(ctx context.Context, userID int64, milestoneID string, input MilestoneInput) (_ *Milestone, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.updateMilestone")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.String("milestone.id", milestoneID),
	)

	var updated *Milestone
	err = r.modifyMilestones(ctx, userID, func(milestones []Milestone) ([]Milestone, error) {
		for i := range milestones {
			if milestones[i].ID != milestoneID {
				continue
			}
			applyMilestoneInput(&milestones[i], input)
			milestones[i].UpdatedAt = time.Now().UTC()
			m := milestones[i]
			updated = &m
			return milestones, nil
		}
		return nil, ErrMilestoneNotFound
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Repo) DeleteMilestone(ctx context.Context, userID int64, milestoneID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.deleteMilestone")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.String("milestone.id", milestoneID),
	)

	return r.modifyMilestones(ctx, userID, func(milestones []Milestone) ([]Milestone, error) {
		for i := range milestones {
			if milestones[i].ID == milestoneID {
				return append(milestones[:i], milestones[i+1:]...), nil
			}
		}
		return nil, ErrMilestoneNotFound
	})
}

func applyMilestoneInput(m *Milestone, input MilestoneInput) {
	if input.Title != nil {
		m.Title = *input.Title
	}
	if input.Description != nil {
		m.Description = *input.Description
	}
	if input.Type != nil {
		m.Type = *input.Type
	}
	if input.AchievedAt != nil {
		m.AchievedAt = input.AchievedAt.UTC()
	}
	if len(input.Data) > 0 {
		m.Data = input.Data
	}
}
