package service

import (
	"context"
	"errors"
	"sync"

	performerserrors "gigmarket/internal/performers/errors"
	"gigmarket/internal/performers/repository"
	"gigmarket/internal/performers/validator"
	"gigmarket/pkg/auth"
	"gigmarket/pkg/cache"
	"gigmarket/pkg/config"
	apperrors "gigmarket/pkg/errors"
	"gigmarket/pkg/model"
	"gigmarket/pkg/sanitizer"
	"gigmarket/pkg/validation"
)

type PerformerService interface {
	Register(ctx context.Context, caller auth.Context, performer *model.Performer) error
	GetByID(ctx context.Context, id string) (*model.Performer, error)
	GetByAccount(ctx context.Context, accountID string) (*model.Performer, error)
	List(ctx context.Context, filter model.PerformerFilter, limit int, offset int64) ([]*model.Performer, int64, error)
	Update(ctx context.Context, caller auth.Context, id string, update *model.PerformerUpdate) (*model.Performer, error)
	SetStatus(ctx context.Context, caller auth.Context, id string, status string) (*model.Performer, error)
	SetVerified(ctx context.Context, caller auth.Context, id string, verified bool) (*model.Performer, error)
	RecordCompletedBooking(ctx context.Context, id string) error
}

type performerService struct {
	repo      repository.PerformerRepository
	validator *validator.PerformerValidator
	cache     cache.Cache[*model.Performer]
	cfg       *config.Config
}

// NewPerformerService wires the directory. Writes invalidate the given
// cache; pass cache.Nop when lookups are not cached.
func NewPerformerService(
	repo repository.PerformerRepository,
	validator *validator.PerformerValidator,
	performerCache cache.Cache[*model.Performer],
	cfg *config.Config,
) PerformerService {
	if performerCache == nil {
		performerCache = cache.Nop[*model.Performer]{}
	}
	return &performerService{
		repo:      repo,
		validator: validator,
		cache:     performerCache,
		cfg:       cfg,
	}
}

func (s *performerService) Register(ctx context.Context, caller auth.Context, performer *model.Performer) error {
	if performer.AccountID == "" {
		performer.AccountID = caller.AccountID
	}
	if !caller.OwnsOrAdmin(performer.AccountID) {
		return apperrors.Forbidden("Performers can only be registered for the calling account")
	}

	s.applyDefaults(performer, caller)
	s.sanitize(performer)

	if missing := s.validator.MissingFields(performer); len(missing) > 0 {
		return apperrors.MissingField(missing...)
	}
	if err := s.validator.Validate(performer); err != nil {
		s.cfg.Log.Warn("Performer validation failed", "account_id", performer.AccountID, "error", err)
		return validation.ToAppError(err)
	}

	if err := s.repo.Create(ctx, performer); err != nil {
		if errors.Is(err, performerserrors.ErrDuplicateAccount) {
			return apperrors.Conflict("Account already has a performer profile").
				WithDetails(map[string]any{"account_id": performer.AccountID})
		}
		s.cfg.Log.Error("Failed to register performer", "account_id", performer.AccountID, "error", err)
		return apperrors.Internal("Failed to register performer", err)
	}

	s.cfg.Log.Info("Performer registered successfully",
		"id", performer.ID,
		"account_id", performer.AccountID,
		"tier", performer.Tier,
	)
	return nil
}

// applyDefaults resets fields a signup cannot choose. Admins registering on
// behalf of an account may set tier and status.
func (s *performerService) applyDefaults(p *model.Performer, caller auth.Context) {
	p.ID = ""
	p.CompletedBookings = 0
	if !caller.IsAdmin() {
		p.Tier = model.TierFree
		p.Status = model.PerformerPending
		p.Verified = false
		p.Rating = 0
		p.ProfileCompleteness = 0
	}
	if p.Tier == "" {
		p.Tier = model.TierFree
	}
	if p.Status == "" {
		p.Status = model.PerformerPending
	}
}

func (s *performerService) sanitize(p *model.Performer) {
	p.AccountID = sanitizer.SanitizeIdentifier(p.AccountID)
	p.DisplayName = sanitizer.SanitizeText(p.DisplayName)
	p.ProfileRef = sanitizer.SanitizeIdentifier(p.ProfileRef)
}

func (s *performerService) GetByID(ctx context.Context, id string) (*model.Performer, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Performer ID cannot be empty")
	}

	performer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id, "Failed to retrieve performer")
	}
	return performer, nil
}

func (s *performerService) GetByAccount(ctx context.Context, accountID string) (*model.Performer, error) {
	if accountID == "" {
		return nil, apperrors.InvalidInput("Account ID cannot be empty")
	}

	performer, err := s.repo.FindByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, performerserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Performer").WithDetails(map[string]any{"account_id": accountID})
		}
		return nil, apperrors.Internal("Failed to retrieve performer", err)
	}
	return performer, nil
}

func (s *performerService) List(ctx context.Context, filter model.PerformerFilter, limit int, offset int64) ([]*model.Performer, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperrors.InvalidStatus(string(filter.Status))
	}
	if filter.Tier != "" && !filter.Tier.Valid() {
		return nil, 0, apperrors.InvalidInput("Invalid tier filter")
	}
	limit = config.NormalizePaginationLimit(limit, s.cfg.MaxPaginationLimit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var performers []*model.Performer
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count performers", "error", errCount)
			errCount = apperrors.Internal("Failed to count performers", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		performers, errFind = s.repo.FindAll(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list performers", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve performers", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return performers, count, nil
}

func (s *performerService) Update(ctx context.Context, caller auth.Context, id string, update *model.PerformerUpdate) (*model.Performer, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.OwnsOrAdmin(existing.AccountID) {
		return nil, apperrors.Forbidden("Only the performer or an admin can edit this profile")
	}
	if update.HasAdminFields() && !caller.IsAdmin() {
		return nil, apperrors.Forbidden("Only an admin can change tier, rating or profile completeness")
	}
	if err := s.validator.ValidateUpdate(update); err != nil {
		return nil, validation.ToAppError(err)
	}

	merged := mergePerformerUpdate(existing, update)
	s.sanitize(merged)
	if err := s.validator.Validate(merged); err != nil {
		return nil, validation.ToAppError(err)
	}

	updated, err := s.repo.Update(ctx, id, merged)
	if err != nil {
		return nil, s.mapRepoError(err, id, "Failed to update performer")
	}
	s.cache.Delete(ctx, id)

	s.cfg.Log.Info("Performer updated successfully", "id", id, "by", caller.AccountID)
	return updated, nil
}

func mergePerformerUpdate(existing *model.Performer, u *model.PerformerUpdate) *model.Performer {
	merged := *existing
	if u.DisplayName != "" {
		merged.DisplayName = u.DisplayName
	}
	if u.ProfileRef != nil {
		merged.ProfileRef = *u.ProfileRef
	}
	if u.HourlyRate != nil {
		merged.HourlyRate = *u.HourlyRate
	}
	if u.DepositPercentage != nil {
		merged.DepositPercentage = *u.DepositPercentage
	}
	if u.Tier != "" {
		merged.Tier = u.Tier
	}
	if u.Rating != nil {
		merged.Rating = *u.Rating
	}
	if u.ProfileCompleteness != nil {
		merged.ProfileCompleteness = *u.ProfileCompleteness
	}
	merged.RefreshAchievement()
	return &merged
}

func (s *performerService) SetStatus(ctx context.Context, caller auth.Context, id string, status string) (*model.Performer, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.Forbidden("Only an admin can change performer status")
	}
	next := model.PerformerStatus(status)
	if !next.Valid() {
		return nil, apperrors.Validation("Invalid performer status", map[string]any{
			"status":  status,
			"allowed": []model.PerformerStatus{model.PerformerPending, model.PerformerApproved, model.PerformerSuspended, model.PerformerRejected},
		})
	}

	updated, err := s.repo.SetStatus(ctx, id, next)
	if err != nil {
		return nil, s.mapRepoError(err, id, "Failed to update performer status")
	}
	s.cache.Delete(ctx, id)

	s.cfg.Log.Info("Performer status changed", "id", id, "status", next, "by", caller.AccountID)
	return updated, nil
}

func (s *performerService) SetVerified(ctx context.Context, caller auth.Context, id string, verified bool) (*model.Performer, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.Forbidden("Only an admin can change verification")
	}

	updated, err := s.repo.SetVerified(ctx, id, verified)
	if err != nil {
		return nil, s.mapRepoError(err, id, "Failed to update performer verification")
	}
	s.cache.Delete(ctx, id)

	s.cfg.Log.Info("Performer verification changed", "id", id, "verified", verified, "by", caller.AccountID)
	return updated, nil
}

func (s *performerService) RecordCompletedBooking(ctx context.Context, id string) error {
	updated, err := s.repo.IncrementCompleted(ctx, id)
	if err != nil {
		return s.mapRepoError(err, id, "Failed to record completed booking")
	}
	s.cache.Delete(ctx, id)

	s.cfg.Log.Info("Performer completion recorded",
		"id", id,
		"completed_bookings", updated.CompletedBookings,
		"achievement_level", updated.AchievementLevel,
	)
	return nil
}

func (s *performerService) mapRepoError(err error, id, message string) error {
	switch {
	case errors.Is(err, performerserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Performer", id)
	case errors.Is(err, performerserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid performer ID format")
	default:
		s.cfg.Log.Error(message, "id", id, "error", err)
		return apperrors.Internal(message, err)
	}
}
