package service

import (
	"context"

	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/repository"
	"github.com/pwendlys/viaja-mais/internal/retry"
)

type ProfileService interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id string, req *models.UpdateProfileRequest) (*models.Profile, error)
}

type profileService struct {
	repo   repository.ProfileRepository
	policy *retry.Policy
}

func NewProfileService(repo repository.ProfileRepository, policy *retry.Policy) ProfileService {
	return &profileService{repo: repo, policy: policy}
}

func (s *profileService) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperrors.NotFound("perfil")
	}
	return profile, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, id string, req *models.UpdateProfileRequest) (*models.Profile, error) {
	profile, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		profile.FullName = *req.FullName
	}
	if req.Phone != nil {
		profile.Phone = *req.Phone
	}
	if req.IsElderly != nil {
		profile.IsElderly = *req.IsElderly
	}
	if req.HasDisability != nil {
		profile.HasDisability = *req.HasDisability
	}

	err = s.policy.Do(ctx, retry.Idempotent, "update profile", func(ctx context.Context) error {
		return s.repo.Update(ctx, profile)
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}
