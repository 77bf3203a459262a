package activities

import (
	"encoding/json"
	"time"

	"github.com/2beens/stravainsights/internal/strava"
)

type Activity struct {
	ID                   int64      `json:"id,string"`
	StravaID             int64      `json:"strava_id"`
	UserID               int64      `json:"user_id,string"`
	Name                 string     `json:"name"`
	Description          string     `json:"description"`
	Distance             *float64   `json:"distance"`
	MovingTime           *int       `json:"moving_time"`
	ElapsedTime          *int       `json:"elapsed_time"`
	TotalElevationGain   *float64   `json:"total_elevation_gain"`
	ActivityType         string     `json:"activity_type"`
	SportType            string     `json:"sport_type"`
	StartDate            time.Time  `json:"start_date"`
	StartDateLocal       *time.Time `json:"start_date_local"`
	Timezone             string     `json:"timezone"`
	UTCOffset            *float64   `json:"utc_offset"`
	StartLatLng          []float64  `json:"start_latlng"`
	EndLatLng            []float64  `json:"end_latlng"`
	LocationCity         string     `json:"location_city"`
	LocationState        string     `json:"location_state"`
	LocationCountry      string     `json:"location_country"`
	AchievementCount     int        `json:"achievement_count"`
	KudosCount           int        `json:"kudos_count"`
	CommentCount         int        `json:"comment_count"`
	AthleteCount         int        `json:"athlete_count"`
	PhotoCount           int        `json:"photo_count"`
	Trainer              bool       `json:"trainer"`
	Commute              bool       `json:"commute"`
	Manual               bool       `json:"manual"`
	Private              bool       `json:"private"`
	AverageSpeed         *float64   `json:"average_speed"`
	MaxSpeed             *float64   `json:"max_speed"`
	AverageCadence       *float64   `json:"average_cadence"`
	AverageTemp          *float64   `json:"average_temp"`
	AverageWatts         *float64   `json:"average_watts"`
	WeightedAverageWatts *float64   `json:"weighted_average_watts"`
	Kilojoules           *float64   `json:"kilojoules"`
	HasHeartrate         bool       `json:"has_heartrate"`
	AverageHeartrate     *float64   `json:"average_heartrate"`
	MaxHeartrate         *float64   `json:"max_heartrate"`
	ElevHigh             *float64   `json:"elev_high"`
	ElevLow              *float64   `json:"elev_low"`
	SufferScore          *float64   `json:"suffer_score"`
	Calories             *float64   `json:"calories"`
	GearID               string     `json:"gear_id"`
	Insights             *Insight   `json:"insights"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	// full upstream payload, only served by the detail endpoints
	RawData json.RawMessage `json:"raw_data,omitempty"`
}

// Insight is the generated coaching note cached on an activity
type Insight struct {
	Summary     string    `json:"summary"`
	CoachTips   []string  `json:"coach_tips"`
	Tags        []string  `json:"tags"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Summary is the short form used in lists of notable activities
type Summary struct {
	ID                 int64     `json:"id,string"`
	StravaID           int64     `json:"strava_id"`
	Name               string    `json:"name"`
	ActivityType       string    `json:"activity_type"`
	Distance           *float64  `json:"distance"`
	MovingTime         *int      `json:"moving_time"`
	TotalElevationGain *float64  `json:"total_elevation_gain"`
	AverageSpeed       *float64  `json:"average_speed"`
	StartDate          time.Time `json:"start_date"`
	HasInsights        bool      `json:"has_insights"`
}

func (a *Activity) Summary() Summary {
	return Summary{
		ID:                 a.ID,
		StravaID:           a.StravaID,
		Name:               a.Name,
		ActivityType:       a.ActivityType,
		Distance:           a.Distance,
		MovingTime:         a.MovingTime,
		TotalElevationGain: a.TotalElevationGain,
		AverageSpeed:       a.AverageSpeed,
		StartDate:          a.StartDate,
		HasInsights:        a.Insights != nil,
	}
}

// DateRange is the trailing window a request covered
type DateRange struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	DaysBack  int       `json:"days_back"`
}

// TrailingWindow covers the daysBack days up to now
func TrailingWindow(now time.Time, daysBack int) DateRange {
	end := now.UTC()
	return DateRange{
		StartDate: end.AddDate(0, 0, -daysBack),
		EndDate:   end,
		DaysBack:  daysBack,
	}
}

// FromStrava converts an upstream activity into a record owned by userID
func FromStrava(userID int64, src *strava.Activity) Activity {
	a := Activity{
		StravaID:             src.ID,
		UserID:               userID,
		Name:                 src.Name,
		Description:          src.Description,
		Distance:             src.Distance,
		MovingTime:           src.MovingTime,
		ElapsedTime:          src.ElapsedTime,
		TotalElevationGain:   src.TotalElevationGain,
		ActivityType:         src.Type,
		SportType:            src.SportType,
		StartDate:            src.StartDate.UTC(),
		StartDateLocal:       parseLocalTime(src.StartDateLocal),
		Timezone:             src.Timezone,
		UTCOffset:            src.UTCOffset,
		StartLatLng:          latLng(src.StartLatLng),
		EndLatLng:            latLng(src.EndLatLng),
		LocationCity:         deref(src.LocationCity),
		LocationState:        deref(src.LocationState),
		LocationCountry:      deref(src.LocationCountry),
		AchievementCount:     src.AchievementCount,
		KudosCount:           src.KudosCount,
		CommentCount:         src.CommentCount,
		AthleteCount:         src.AthleteCount,
		PhotoCount:           src.PhotoCount,
		Trainer:              src.Trainer,
		Commute:              src.Commute,
		Manual:               src.Manual,
		Private:              src.Private,
		AverageSpeed:         src.AverageSpeed,
		MaxSpeed:             src.MaxSpeed,
		AverageCadence:       src.AverageCadence,
		AverageTemp:          src.AverageTemp,
		AverageWatts:         src.AverageWatts,
		WeightedAverageWatts: src.WeightedAverageWatts,
		Kilojoules:           src.Kilojoules,
		HasHeartrate:         src.HasHeartrate,
		AverageHeartrate:     src.AverageHeartrate,
		MaxHeartrate:         src.MaxHeartrate,
		ElevHigh:             src.ElevHigh,
		ElevLow:              src.ElevLow,
		SufferScore:          src.SufferScore,
		Calories:             src.Calories,
		GearID:               deref(src.GearID),
		RawData:              src.Raw,
	}
	if a.ActivityType == "" {
		a.ActivityType = src.SportType
	}
	return a
}

// local start time comes without a meaningful zone, it is kept as wall clock
func parseLocalTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			wallClock := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
			return &wallClock
		}
	}
	return nil
}

// upstream sends [] for activities without gps
func latLng(coords []float64) []float64 {
	if len(coords) != 2 {
		return nil
	}
	return coords
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
