package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingCompleted, false},
		{BookingConfirmed, BookingCompleted, true},
		{BookingConfirmed, BookingPending, false},
		{BookingDisputed, BookingConfirmed, true},
		{BookingDisputed, BookingRefunded, true},
		{BookingCancelled, BookingCompleted, false},
		{BookingCompleted, BookingRefunded, false},
		{BookingRefunded, BookingPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestBookingStatus_Terminal(t *testing.T) {
	for _, s := range []BookingStatus{BookingCompleted, BookingCancelled, BookingRefunded} {
		assert.True(t, s.IsTerminal(), s)
	}
	for _, s := range []BookingStatus{BookingPending, BookingConfirmed, BookingDisputed} {
		assert.False(t, s.IsTerminal(), s)
	}
	assert.False(t, BookingStatus("archived").Valid())
	assert.False(t, BookingStatus("archived").IsTerminal())
}

func TestMarketEventStatus(t *testing.T) {
	assert.True(t, EventOpen.CanTransitionTo(EventClosed))
	assert.True(t, EventClosed.CanTransitionTo(EventFilled))
	assert.False(t, EventClosed.CanTransitionTo(EventOpen))
	assert.False(t, EventFilled.CanTransitionTo(EventCancelled))
	assert.True(t, EventOpen.AcceptsDecisions())
	assert.True(t, EventClosed.AcceptsDecisions())
	assert.False(t, EventExpired.AcceptsDecisions())
}

func TestMarketEvent_DeadlinePassed(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Minute)
	after := now.Add(time.Minute)

	nextWeek := now.AddDate(0, 0, 7)
	assert.True(t, (&MarketEvent{BidDeadline: &before, EventDate: nextWeek}).DeadlinePassed(now))
	assert.True(t, (&MarketEvent{BidDeadline: &now, EventDate: nextWeek}).DeadlinePassed(now))
	assert.False(t, (&MarketEvent{BidDeadline: &after, EventDate: nextWeek}).DeadlinePassed(now))
}

func TestMarketEvent_DeadlineDefaultsToEventDay(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	tomorrow := &MarketEvent{EventDate: now.AddDate(0, 0, 1)}
	assert.Equal(t, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), tomorrow.Deadline())
	assert.False(t, tomorrow.DeadlinePassed(now))

	laterToday := &MarketEvent{EventDate: now.Add(6 * time.Hour)}
	assert.True(t, laterToday.DeadlinePassed(now))

	past := &MarketEvent{EventDate: now.AddDate(0, 0, -3)}
	assert.True(t, past.DeadlinePassed(now))
}

func TestAfterToday(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 1, 0, time.UTC)

	assert.False(t, AfterToday(time.Date(2026, 5, 1, 23, 59, 0, 0, time.UTC), now))
	assert.False(t, AfterToday(now.AddDate(0, 0, -1), now))
	assert.True(t, AfterToday(time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), now))

	// 2026-05-02 01:00 in UTC+3 is still 2026-05-01 in UTC
	plus3 := time.FixedZone("UTC+3", 3*60*60)
	assert.False(t, AfterToday(time.Date(2026, 5, 2, 1, 0, 0, 0, plus3), now))
}

func TestAchievementLevelFor(t *testing.T) {
	tests := []struct {
		score float64
		want  AchievementLevel
	}{
		{0, LevelBronze},
		{99.99, LevelBronze},
		{100, LevelSilver},
		{249, LevelSilver},
		{250, LevelGold},
		{500, LevelPlatinum},
		{999, LevelPlatinum},
		{1000, LevelDiamond},
		{5000, LevelDiamond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AchievementLevelFor(tt.score), "score %v", tt.score)
	}
}

func TestPerformer_RefreshAchievement(t *testing.T) {
	p := &Performer{CompletedBookings: 20, Rating: 4.5, ProfileCompleteness: 80}
	p.RefreshAchievement()

	assert.Equal(t, 330.0, p.Score)
	assert.Equal(t, LevelGold, p.AchievementLevel)
}

func TestPerformerUpdate_HasAdminFields(t *testing.T) {
	rate := 50.0
	rating := 4.0
	assert.False(t, (&PerformerUpdate{DisplayName: "DJ", HourlyRate: &rate}).HasAdminFields())
	assert.True(t, (&PerformerUpdate{Tier: TierPro}).HasAdminFields())
	assert.True(t, (&PerformerUpdate{Rating: &rating}).HasAdminFields())
}
