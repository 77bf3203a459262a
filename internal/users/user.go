package users

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/2beens/stravainsights/internal/strava"
)

type User struct {
	ID            int64       `json:"id,string"`
	StravaID      int64       `json:"strava_id"`
	Username      string      `json:"username"`
	FirstName     string      `json:"firstname"`
	LastName      string      `json:"lastname"`
	Email         string      `json:"email"`
	City          string      `json:"city"`
	State         string      `json:"state"`
	Country       string      `json:"country"`
	Sex           string      `json:"sex"`
	Weight        *float64    `json:"weight"`
	Profile       string      `json:"profile"`
	ProfileMedium string      `json:"profile_medium"`
	TokenExpires  *time.Time  `json:"token_expires_at"`
	Milestones    []Milestone `json:"milestones"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`

	// vault ciphertext, never serialized
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
}

// DisplayName is the upstream username, or "first last" for athletes without one
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) Credentials() *strava.Credentials {
	creds := &strava.Credentials{
		UserID:       u.ID,
		AccessToken:  u.AccessToken,
		RefreshToken: u.RefreshToken,
	}
	if u.TokenExpires != nil {
		creds.ExpiresAt = *u.TokenExpires
	}
	return creds
}

type Milestone struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Type        string          `json:"type"`
	AchievedAt  time.Time       `json:"achieved_at"`
	Data        json.RawMessage `json:"data,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// MilestoneInput is the body of milestone create and update requests.
// Nil fields are left untouched on update.
type MilestoneInput struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Type        *string         `json:"type"`
	AchievedAt  *time.Time      `json:"achieved_at"`
	Data        json.RawMessage `json:"data"`
}

func (in MilestoneInput) empty() bool {
	return in.Title == nil && in.Description == nil && in.Type == nil && in.AchievedAt == nil && len(in.Data) == 0
}

// ProfileUpdate holds the user editable profile fields, nil means unchanged
type ProfileUpdate struct {
	FirstName *string  `json:"firstname"`
	LastName  *string  `json:"lastname"`
	City      *string  `json:"city"`
	State     *string  `json:"state"`
	Country   *string  `json:"country"`
	Sex       *string  `json:"sex"`
	Weight    *float64 `json:"weight"`
	Email     *string  `json:"email"`
}

func (p ProfileUpdate) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.City == nil && p.State == nil &&
		p.Country == nil && p.Sex == nil && p.Weight == nil && p.Email == nil
}

// NewUserTokens are the vault encrypted tokens stored with an upserted athlete
type NewUserTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}
