package model

import (
	"math"
	"time"
)

type PerformerTier string

const (
	TierFree     PerformerTier = "free"
	TierPro      PerformerTier = "pro"
	TierFeatured PerformerTier = "featured"
)

func (t PerformerTier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierFeatured:
		return true
	}
	return false
}

type PerformerStatus string

const (
	PerformerPending   PerformerStatus = "pending"
	PerformerApproved  PerformerStatus = "approved"
	PerformerSuspended PerformerStatus = "suspended"
	PerformerRejected  PerformerStatus = "rejected"
)

func (s PerformerStatus) Valid() bool {
	switch s {
	case PerformerPending, PerformerApproved, PerformerSuspended, PerformerRejected:
		return true
	}
	return false
}

type AchievementLevel string

const (
	LevelBronze   AchievementLevel = "bronze"
	LevelSilver   AchievementLevel = "silver"
	LevelGold     AchievementLevel = "gold"
	LevelPlatinum AchievementLevel = "platinum"
	LevelDiamond  AchievementLevel = "diamond"
)

type AchievementThreshold struct {
	Min   float64
	Level AchievementLevel
}

// AchievementThresholds are ordered from the highest level down. A score at
// or above Min earns Level.
var AchievementThresholds = []AchievementThreshold{
	{1000, LevelDiamond},
	{500, LevelPlatinum},
	{250, LevelGold},
	{100, LevelSilver},
	{0, LevelBronze},
}

type Performer struct {
	ID                  string           `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	AccountID           string           `json:"account_id" bson:"account_id" validate:"required,max=64"`
	DisplayName         string           `json:"display_name" bson:"display_name" validate:"required,min=2,max=100"`
	ProfileRef          string           `json:"profile_ref,omitempty" bson:"profile_ref,omitempty" validate:"omitempty,max=200"`
	HourlyRate          float64          `json:"hourly_rate" bson:"hourly_rate" validate:"required,gt=0"`
	DepositPercentage   int              `json:"deposit_percentage" bson:"deposit_percentage" validate:"required,min=10,max=100"`
	Tier                PerformerTier    `json:"tier" bson:"tier" validate:"required,oneof=free pro featured"`
	Verified            bool             `json:"verified" bson:"verified"`
	Status              PerformerStatus  `json:"status" bson:"status" validate:"required,oneof=pending approved suspended rejected"`
	CompletedBookings   int              `json:"completed_bookings" bson:"completed_bookings" validate:"min=0"`
	Rating              float64          `json:"rating" bson:"rating" validate:"min=0,max=5"`
	ProfileCompleteness int              `json:"profile_completeness" bson:"profile_completeness" validate:"min=0,max=100"`
	Score               float64          `json:"score" bson:"score"`
	AchievementLevel    AchievementLevel `json:"achievement_level" bson:"achievement_level"`
	CreatedAt           time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at" bson:"updated_at"`
}

// PerformerUpdate carries self-edit fields. The admin-only fields are
// rejected for non-admin callers by the service.
type PerformerUpdate struct {
	DisplayName       string   `json:"display_name,omitempty" validate:"omitempty,min=2,max=100"`
	ProfileRef        *string  `json:"profile_ref,omitempty" validate:"omitempty,max=200"`
	HourlyRate        *float64 `json:"hourly_rate,omitempty" validate:"omitempty,gt=0"`
	DepositPercentage *int     `json:"deposit_percentage,omitempty" validate:"omitempty,min=10,max=100"`

	Tier                PerformerTier `json:"tier,omitempty" validate:"omitempty,oneof=free pro featured"`
	Rating              *float64      `json:"rating,omitempty" validate:"omitempty,min=0,max=5"`
	ProfileCompleteness *int          `json:"profile_completeness,omitempty" validate:"omitempty,min=0,max=100"`
}

func (u *PerformerUpdate) HasAdminFields() bool {
	return u.Tier != "" || u.Rating != nil || u.ProfileCompleteness != nil
}

type PerformerFilter struct {
	Status   PerformerStatus
	Tier     PerformerTier
	Verified *bool
}

// AchievementScore weighs completed bookings, rating and profile completeness.
func AchievementScore(completedBookings int, rating float64, profileCompleteness int) float64 {
	score := float64(completedBookings)*10 + rating*20 + float64(profileCompleteness)/2
	return math.Round(score*100) / 100
}

func AchievementLevelFor(score float64) AchievementLevel {
	for _, t := range AchievementThresholds {
		if score >= t.Min {
			return t.Level
		}
	}
	return LevelBronze
}

// RefreshAchievement recomputes Score and AchievementLevel from the inputs.
func (p *Performer) RefreshAchievement() {
	p.Score = AchievementScore(p.CompletedBookings, p.Rating, p.ProfileCompleteness)
	p.AchievementLevel = AchievementLevelFor(p.Score)
}

func (p *Performer) Bookable() bool {
	return p.Status == PerformerApproved
}

type VerificationRequest struct {
	Verified *bool `json:"verified"`
}
