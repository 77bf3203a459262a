package activities

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// Identifier addresses an activity of a user, either by the local record id
// or by the upstream (strava) activity id
type Identifier interface {
	identifier()
}

type InternalID int64

type ExternalID int64

func (InternalID) identifier() {}

func (ExternalID) identifier() {}

// Candidates lists what raw may refer to, in resolution order
func Candidates(raw string) []Identifier {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return []Identifier{InternalID(id), ExternalID(id)}
}

type finder interface {
	Find(ctx context.Context, userID int64, id Identifier) (*Activity, error)
}

// Resolve returns the first candidate of raw owned by userID.
// Activities of other users are never matched.
func Resolve(ctx context.Context, f finder, userID int64, raw string) (*Activity, error) {
	for _, id := range Candidates(raw) {
		activity, err := f.Find(ctx, userID, id)
		if err == nil {
			return activity, nil
		}
		if !errors.Is(err, ErrActivityNotFound) {
			return nil, err
		}
	}
	return nil, ErrActivityNotFound
}
