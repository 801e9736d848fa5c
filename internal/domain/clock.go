package domain

import "github.com/jonboulle/clockwork"

// acsLagYears is how far the latest published 5-year survey trails the current year.
const acsLagYears = 2

// clock is a package-level time source so tests can freeze time via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for survey year calculation. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// SurveyYear returns the most recent 5-year survey year expected to be published.
func SurveyYear() int {
	return clock.Now().Year() - acsLagYears
}
