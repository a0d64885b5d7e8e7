package scoring

import (
	"math"
	"testing"

	"rally-api/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestRallyBonus(t *testing.T) {
	tests := []struct {
		name       string
		rallyCount int
		expected   int
	}{
		{name: "zero rallies", rallyCount: 0, expected: 0},
		{name: "negative treated as zero", rallyCount: -3, expected: 0},
		{name: "first tier", rallyCount: 4, expected: 20},
		{name: "first breakpoint", rallyCount: 10, expected: 50},
		{name: "second tier start", rallyCount: 11, expected: 52},
		{name: "second breakpoint", rallyCount: 50, expected: 130},
		{name: "third tier start", rallyCount: 51, expected: 131},
		{name: "third tier", rallyCount: 60, expected: 140},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RallyBonus(tt.rallyCount))
		})
	}
}

func TestRallyBonus_SlopesAndMonotonicity(t *testing.T) {
	for r := 1; r <= 200; r++ {
		delta := RallyBonus(r) - RallyBonus(r-1)
		switch {
		case r <= 10:
			assert.Equal(t, 5, delta, "slope at %d", r)
		case r <= 50:
			assert.Equal(t, 2, delta, "slope at %d", r)
		default:
			assert.Equal(t, 1, delta, "slope at %d", r)
		}
	}
}

func TestMultipliers(t *testing.T) {
	assert.Equal(t, 1.0, SignificanceMultiplier(domain.SignificanceRegular))
	assert.Equal(t, 1.5, SignificanceMultiplier(domain.SignificanceConference))
	assert.Equal(t, 2.0, SignificanceMultiplier(domain.SignificanceRivalry))
	assert.Equal(t, 2.5, SignificanceMultiplier(domain.SignificancePostseason))
	assert.Equal(t, 3.0, SignificanceMultiplier(domain.SignificanceChampionship))
	assert.Equal(t, 1.0, SignificanceMultiplier("EXHIBITION"))

	assert.Equal(t, 1.0, MomentMultiplier(domain.MomentTypeStandard))
	assert.Equal(t, 2.5, MomentMultiplier(domain.MomentTypeSponsored))
	assert.Equal(t, 2.0, MomentMultiplier(domain.MomentTypeEmotional))
	assert.Equal(t, 4.0, MomentMultiplier(domain.MomentTypeHistoric))
	assert.Equal(t, 1.0, MomentMultiplier("BLOOPER"))
}

func TestBasePoints(t *testing.T) {
	assert.Equal(t, 10, BasePoints(domain.SignificanceRegular, domain.MomentTypeStandard))
	assert.Equal(t, 75, BasePoints(domain.SignificanceChampionship, domain.MomentTypeSponsored))
	// 10 x 1.5 x 2.5 = 37.5 rounds half away from zero
	assert.Equal(t, 38, BasePoints(domain.SignificanceConference, domain.MomentTypeSponsored))
	assert.Equal(t, 120, BasePoints(domain.SignificanceChampionship, domain.MomentTypeHistoric))
}

func TestTotalPoints_ChampionshipSponsored(t *testing.T) {
	base := BasePoints(domain.SignificanceChampionship, domain.MomentTypeSponsored)
	assert.Equal(t, 75, base)

	assert.Equal(t, 465, TotalPoints(base, 11, domain.SignificanceChampionship, domain.MomentTypeSponsored))
	assert.Equal(t, 1125, TotalPoints(base, 60, domain.SignificanceChampionship, domain.MomentTypeSponsored))
}

func TestTotalPoints_MatchesFormulaForAllCombinations(t *testing.T) {
	sigs := []domain.Significance{
		domain.SignificanceRegular,
		domain.SignificanceConference,
		domain.SignificanceRivalry,
		domain.SignificancePostseason,
		domain.SignificanceChampionship,
	}

	for _, sig := range sigs {
		for _, mt := range domain.MomentTypes() {
			for n := 0; n <= 75; n++ {
				expected := int(math.Round(float64(10+RallyBonus(n)) * SignificanceMultiplier(sig) * MomentMultiplier(mt)))
				assert.Equal(t, expected, TotalPoints(BasePoints(sig, mt), n, sig, mt), "%s/%s/%d", sig, mt, n)
			}
		}
	}
}

func TestTotalPoints_IgnoresStoredBase(t *testing.T) {
	a := TotalPoints(10, 5, domain.SignificanceRivalry, domain.MomentTypeEmotional)
	b := TotalPoints(9999, 5, domain.SignificanceRivalry, domain.MomentTypeEmotional)
	assert.Equal(t, a, b)
}

func TestMomentOfGameBonus(t *testing.T) {
	assert.Equal(t, 100, MomentOfGameBonus(domain.SignificanceRegular))
	assert.Equal(t, 150, MomentOfGameBonus(domain.SignificanceConference))
	assert.Equal(t, 250, MomentOfGameBonus(domain.SignificancePostseason))
	assert.Equal(t, 300, MomentOfGameBonus(domain.SignificanceChampionship))
}
