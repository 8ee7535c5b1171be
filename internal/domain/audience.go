package domain

import (
	"fmt"
	"slices"
)

// Target selects who receives a broadcast
type Target string

const (
	TargetAll            Target = "all"
	TargetSubscribers    Target = "subscribers"
	TargetNonSubscribers Target = "nonsubscribers"
)

func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case TargetAll, TargetSubscribers, TargetNonSubscribers:
		return Target(s), nil
	}
	return "", NewInvalidBroadcastError(fmt.Sprintf("unknown target %q", s))
}

func (t Target) Label() string {
	switch t {
	case TargetSubscribers:
		return "Subscribers"
	case TargetNonSubscribers:
		return "Non-subscribers"
	default:
		return "All Users"
	}
}

// Audience is a snapshot of known users and broadcast subscribers.
type Audience struct {
	Users       []int64 `json:"all_users"`
	Subscribers []int64 `json:"subscribers"`
}

type AudienceStats struct {
	Users          int
	Subscribers    int
	NonSubscribers int
}

func (a Audience) Stats() AudienceStats {
	return AudienceStats{
		Users:          len(a.Users),
		Subscribers:    len(a.Subscribers),
		NonSubscribers: len(a.Select(TargetNonSubscribers)),
	}
}

func (a Audience) IsSubscribed(userID int64) bool {
	return slices.Contains(a.Subscribers, userID)
}

// Select returns the sorted user ids matching the target.
func (a Audience) Select(target Target) []int64 {
	var out []int64
	switch target {
	case TargetSubscribers:
		out = slices.Clone(a.Subscribers)
	case TargetNonSubscribers:
		for _, id := range a.Users {
			if !slices.Contains(a.Subscribers, id) {
				out = append(out, id)
			}
		}
	default:
		out = slices.Clone(a.Users)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
