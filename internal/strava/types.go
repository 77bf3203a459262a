package strava

import (
	"encoding/json"
	"time"
)

// Credentials are the upstream oauth tokens of a single user, as persisted:
// both tokens are vault ciphertext
type Credentials struct {
	UserID       int64
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenGrant is a plaintext token set, as returned by the upstream token endpoint
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Athlete      *Athlete
}

type Athlete struct {
	ID            int64    `json:"id"`
	Username      string   `json:"username"`
	FirstName     string   `json:"firstname"`
	LastName      string   `json:"lastname"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	Country       string   `json:"country"`
	Sex           string   `json:"sex"`
	Weight        *float64 `json:"weight"`
	Profile       string   `json:"profile"`
	ProfileMedium string   `json:"profile_medium"`
	Email         string   `json:"email"`
}

// Activity is the upstream summary/detailed activity representation.
// Optional metrics are pointers, not every activity type carries them.
type Activity struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	Distance             *float64  `json:"distance"`
	MovingTime           *int      `json:"moving_time"`
	ElapsedTime          *int      `json:"elapsed_time"`
	TotalElevationGain   *float64  `json:"total_elevation_gain"`
	Type                 string    `json:"type"`
	SportType            string    `json:"sport_type"`
	StartDate            time.Time `json:"start_date"`
	StartDateLocal       string    `json:"start_date_local"`
	Timezone             string    `json:"timezone"`
	UTCOffset            *float64  `json:"utc_offset"`
	StartLatLng          []float64 `json:"start_latlng"`
	EndLatLng            []float64 `json:"end_latlng"`
	LocationCity         *string   `json:"location_city"`
	LocationState        *string   `json:"location_state"`
	LocationCountry      *string   `json:"location_country"`
	AchievementCount     int       `json:"achievement_count"`
	KudosCount           int       `json:"kudos_count"`
	CommentCount         int       `json:"comment_count"`
	AthleteCount         int       `json:"athlete_count"`
	PhotoCount           int       `json:"photo_count"`
	Trainer              bool      `json:"trainer"`
	Commute              bool      `json:"commute"`
	Manual               bool      `json:"manual"`
	Private              bool      `json:"private"`
	AverageSpeed         *float64  `json:"average_speed"`
	MaxSpeed             *float64  `json:"max_speed"`
	AverageCadence       *float64  `json:"average_cadence"`
	AverageTemp          *float64  `json:"average_temp"`
	AverageWatts         *float64  `json:"average_watts"`
	WeightedAverageWatts *float64  `json:"weighted_average_watts"`
	Kilojoules           *float64  `json:"kilojoules"`
	HasHeartrate         bool      `json:"has_heartrate"`
	AverageHeartrate     *float64  `json:"average_heartrate"`
	MaxHeartrate         *float64  `json:"max_heartrate"`
	ElevHigh             *float64  `json:"elev_high"`
	ElevLow              *float64  `json:"elev_low"`
	SufferScore          *float64  `json:"suffer_score"`
	Calories             *float64  `json:"calories"`
	GearID               *string   `json:"gear_id"`

	// Raw keeps the full upstream payload
	Raw json.RawMessage `json:"-"`
}

type ListActivitiesParams struct {
	Page    int
	PerPage int
	After   time.Time
	Before  time.Time
}
