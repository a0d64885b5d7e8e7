// Package scoring holds the point formulas for captures, rallies and the
// Moment of the Game bonus. Everything here is pure and safe for concurrent use.
package scoring

import (
	"math"

	"rally-api/internal/domain"
)

const (
	firstTierLimit  = 10
	secondTierLimit = 50
	firstTierRate   = 5
	secondTierRate  = 2
	thirdTierRate   = 1
)

var significanceMultipliers = map[domain.Significance]float64{
	domain.SignificanceRegular:      1,
	domain.SignificanceConference:   1.5,
	domain.SignificanceRivalry:      2,
	domain.SignificancePostseason:   2.5,
	domain.SignificanceChampionship: 3,
}

var momentMultipliers = map[domain.MomentType]float64{
	domain.MomentTypeStandard:  1,
	domain.MomentTypeSponsored: 2.5,
	domain.MomentTypeEmotional: 2,
	domain.MomentTypeHistoric:  4,
}

// SignificanceMultiplier returns the weight for a game's significance.
// Unknown values score like a regular game.
func SignificanceMultiplier(s domain.Significance) float64 {
	if m, ok := significanceMultipliers[s]; ok {
		return m
	}
	return 1
}

// MomentMultiplier returns the weight for a capture's moment type.
// Unknown values score like a standard moment.
func MomentMultiplier(mt domain.MomentType) float64 {
	if m, ok := momentMultipliers[mt]; ok {
		return m
	}
	return 1
}

// RallyBonus converts a rally count into bonus points with diminishing
// returns: 5 per rally up to 10, 2 per rally up to 50, then 1 per rally.
func RallyBonus(rallyCount int) int {
	switch {
	case rallyCount <= 0:
		return 0
	case rallyCount <= firstTierLimit:
		return rallyCount * firstTierRate
	case rallyCount <= secondTierLimit:
		return firstTierLimit*firstTierRate + (rallyCount-firstTierLimit)*secondTierRate
	default:
		return firstTierLimit*firstTierRate +
			(secondTierLimit-firstTierLimit)*secondTierRate +
			(rallyCount-secondTierLimit)*thirdTierRate
	}
}

// BasePoints is the score granted when a capture is posted
func BasePoints(s domain.Significance, mt domain.MomentType) int {
	return round(domain.CaptureBaseConstant * SignificanceMultiplier(s) * MomentMultiplier(mt))
}

// TotalPoints recomputes a capture's score after a rally.
//
// The formula multiplies the flat base constant, not the stored basePoints,
// so basePoints is accepted for call-site clarity but does not feed the
// result. Keep it that way until product signs off on a change: stored
// totals for existing captures depend on it.
func TotalPoints(basePoints, rallyCount int, s domain.Significance, mt domain.MomentType) int {
	_ = basePoints
	return round(float64(domain.CaptureBaseConstant+RallyBonus(rallyCount)) * SignificanceMultiplier(s) * MomentMultiplier(mt))
}

// MomentOfGameBonus is paid once to the author of a newly crowned capture
func MomentOfGameBonus(s domain.Significance) int {
	return round(domain.MomentOfGameBonusBase * SignificanceMultiplier(s))
}

func round(v float64) int {
	return int(math.Round(v))
}
