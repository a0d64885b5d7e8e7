package service

import (
	"context"
	"testing"

	"rally-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrownMomentOfGame_PicksMostRallied(t *testing.T) {
	f := newFixture(t)
	f.event("final", domain.SignificanceChampionship, domain.EventStatusLive)
	ctx := context.Background()

	low := f.post(t, "final", "a", domain.MomentTypeStandard)
	high := f.post(t, "final", "b", domain.MomentTypeStandard)
	f.rally(t, low.ID, "v1")
	f.rally(t, high.ID, "v1")
	f.rally(t, high.ID, "v2")
	require.NoError(t, f.store.SetEventStatus("final", domain.EventStatusCompleted))

	res, err := f.crowns.CrownMomentOfGame(ctx, "final")
	require.NoError(t, err)

	assert.Equal(t, high.ID, res.CaptureID)
	assert.Equal(t, "b", res.UserID)
	assert.Equal(t, 2, res.RallyCount)
	assert.Equal(t, 300, res.BonusPoints)
	assert.True(t, res.BonusPaid)
	assert.Empty(t, res.PreviousCaptureID)

	assert.True(t, f.capture(t, high.ID).IsMomentOfGame)
	assert.False(t, f.capture(t, low.ID).IsMomentOfGame)

	// base 30 plus the bonus
	balance, sum := f.balance(t, "b")
	assert.Equal(t, int64(330), balance)
	assert.Equal(t, balance, sum)
}

func TestCrownMomentOfGame_TieGoesToEarliest(t *testing.T) {
	f := newFixture(t)
	f.event("e1", domain.SignificanceRegular, domain.EventStatusLive)

	first := f.post(t, "e1", "a", domain.MomentTypeStandard)
	second := f.post(t, "e1", "b", domain.MomentTypeStandard)
	f.rally(t, second.ID, "v1")
	f.rally(t, first.ID, "v1")

	res, err := f.crowns.CrownMomentOfGame(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, res.CaptureID)
}

func TestCrownMomentOfGame_NothingToCrown(t *testing.T) {
	f := newFixture(t)
	f.event("empty", domain.SignificanceRegular, domain.EventStatusCompleted)
	f.event("quiet", domain.SignificanceRegular, domain.EventStatusLive)
	f.post(t, "quiet", "a", domain.MomentTypeStandard)
	ctx := context.Background()

	_, err := f.crowns.CrownMomentOfGame(ctx, "empty")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.crowns.CrownMomentOfGame(ctx, "quiet")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.crowns.CrownMomentOfGame(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCrownMomentOfGame_RerunPaysOnce(t *testing.T) {
	f := newFixture(t)
	f.event("e1", domain.SignificanceRivalry, domain.EventStatusLive)
	c := f.post(t, "e1", "a", domain.MomentTypeStandard)
	f.rally(t, c.ID, "v1")
	ctx := context.Background()

	first, err := f.crowns.CrownMomentOfGame(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, first.BonusPaid)

	again, err := f.crowns.CrownMomentOfGame(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, again.BonusPaid)
	assert.Equal(t, c.ID, again.CaptureID)
	assert.Empty(t, again.PreviousCaptureID)

	balance, sum := f.balance(t, "a")
	assert.Equal(t, int64(20+200), balance)
	assert.Equal(t, balance, sum)
}

func TestCrownMomentOfGame_NewWinnerReplacesCrown(t *testing.T) {
	f := newFixture(t)
	f.event("e1", domain.SignificanceRegular, domain.EventStatusLive)
	ctx := context.Background()

	early := f.post(t, "e1", "a", domain.MomentTypeStandard)
	late := f.post(t, "e1", "b", domain.MomentTypeStandard)
	f.rally(t, early.ID, "v1")

	_, err := f.crowns.CrownMomentOfGame(ctx, "e1")
	require.NoError(t, err)

	f.rally(t, late.ID, "v1")
	f.rally(t, late.ID, "v2")

	res, err := f.crowns.CrownMomentOfGame(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, late.ID, res.CaptureID)
	assert.Equal(t, early.ID, res.PreviousCaptureID)
	assert.True(t, res.BonusPaid)

	assert.False(t, f.capture(t, early.ID).IsMomentOfGame)
	assert.True(t, f.capture(t, late.ID).IsMomentOfGame)

	// The displaced author keeps the earlier bonus
	balance, _ := f.balance(t, "a")
	assert.Equal(t, int64(110), balance)
	balance, _ = f.balance(t, "b")
	assert.Equal(t, int64(110), balance)
}

func TestCrownMomentOfGame_SkipsReported(t *testing.T) {
	f := newFixture(t)
	f.event("e1", domain.SignificanceRegular, domain.EventStatusLive)
	ctx := context.Background()

	popular := f.post(t, "e1", "a", domain.MomentTypeStandard)
	clean := f.post(t, "e1", "b", domain.MomentTypeStandard)
	f.rally(t, popular.ID, "v1")
	f.rally(t, popular.ID, "v2")
	f.rally(t, clean.ID, "v1")
	require.NoError(t, f.captures.ReportCapture(ctx, popular.ID, "v3"))

	res, err := f.crowns.CrownMomentOfGame(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, clean.ID, res.CaptureID)
}

func TestCrownMomentOfGame_LedgerFailureKeepsNoCrown(t *testing.T) {
	f := newFixture(t)
	f.event("e1", domain.SignificanceRegular, domain.EventStatusLive)
	c := f.post(t, "e1", "a", domain.MomentTypeStandard)
	f.rally(t, c.ID, "v1")
	f.withFailingLedger()

	_, err := f.crowns.CrownMomentOfGame(context.Background(), "e1")
	require.ErrorIs(t, err, errLedgerDown)
	assert.False(t, f.capture(t, c.ID).IsMomentOfGame)
}
