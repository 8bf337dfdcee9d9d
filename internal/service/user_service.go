package service

import (
	"context"
	"mime/multipart"
	"strings"

	"dreamio/internal/models"
	"dreamio/internal/repository"
	"dreamio/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
	media    *MediaService
}

// UpdateUserInput is an admin edit; empty fields are left unchanged.
type UpdateUserInput struct {
	Name  string `json:"name" validate:"max=100"`
	Email string `json:"email" validate:"omitempty,email,max=255"`
	Role  string `json:"role" validate:"role"`
}

func NewUserService(userRepo repository.UserRepository, media *MediaService) *UserService {
	return &UserService{userRepo: userRepo, media: media}
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.List(ctx)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) UpdateUser(ctx context.Context, id uint, in UpdateUserInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = models.NormalizeEmail(in.Email)
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		user.Name = in.Name
	}
	if in.Email != "" && in.Email != user.Email {
		existing, err := s.userRepo.GetByEmail(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != user.ID {
			return nil, models.NewConflictError("Email already registered")
		}
		user.Email = in.Email
	}
	if strings.TrimSpace(in.Role) != "" {
		role, _ := models.ParseRole(in.Role)
		user.Role = role
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id uint) error {
	return s.userRepo.Delete(ctx, id)
}

// UploadProfileImage stores a new profile picture and removes the previous one.
func (s *UserService) UploadProfileImage(ctx context.Context, userID uint, fh *multipart.FileHeader) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	stored, err := s.media.Save(ctx, KindProfileImage, fh)
	if err != nil {
		return "", err
	}

	previous := user.ProfileImage
	user.ProfileImage = stored
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.media.Remove(ctx, stored)
		return "", err
	}
	s.media.Remove(ctx, previous)
	return stored, nil
}
