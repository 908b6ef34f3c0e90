package models

import "strings"

const (
	DefaultGramsPerRation = 10
	DefaultInsulinRatio   = 1
)

type Profile struct {
	Name              string    `json:"name"`
	GramsPerRation    float64   `json:"gramsPerRation"`
	InsulinRatio      float64   `json:"insulinRatio"`
	DailyCarbsGoal    *float64  `json:"dailyCarbsGoal,omitempty"`
	DailyRationsGoal  *float64  `json:"dailyRationsGoal,omitempty"`
	DailyInsulinGoal  *float64  `json:"dailyInsulinGoal,omitempty"`
	Reminder2hEnabled bool      `json:"reminder2hEnabled"`
	NightscoutURL     *string   `json:"nightscoutURL,omitempty"`
	NightscoutToken   *string   `json:"nightscoutToken,omitempty"`
	CreatedAt         Timestamp `json:"createdAt"`
}

// FeedURL returns the trimmed glucose feed URL, or "" when none is configured.
func (profile *Profile) FeedURL() string {
	if profile == nil || profile.NightscoutURL == nil {
		return ""
	}
	return strings.TrimSpace(*profile.NightscoutURL)
}

func (profile *Profile) FeedToken() string {
	if profile == nil || profile.NightscoutToken == nil {
		return ""
	}
	return strings.TrimSpace(*profile.NightscoutToken)
}

func (profile *Profile) HasFeed() bool {
	return profile.FeedURL() != ""
}

func (profile *Profile) Clone() *Profile {
	if profile == nil {
		return nil
	}
	copied := *profile
	copied.DailyCarbsGoal = cloneFloat(profile.DailyCarbsGoal)
	copied.DailyRationsGoal = cloneFloat(profile.DailyRationsGoal)
	copied.DailyInsulinGoal = cloneFloat(profile.DailyInsulinGoal)
	copied.NightscoutURL = cloneString(profile.NightscoutURL)
	copied.NightscoutToken = cloneString(profile.NightscoutToken)
	return &copied
}

func cloneFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneTimestamp(value *Timestamp) *Timestamp {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
