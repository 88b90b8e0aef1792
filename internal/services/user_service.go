package services

import (
	"context"

	"github.com/google/uuid"

	"tutorchat/internal/domain/user"
	"tutorchat/internal/repository"
)

// UnknownUserName is the placeholder used when enrichment cannot resolve a
// referenced user. Fallback, not failure: a missing directory entry never
// fails the surrounding response.
const UnknownUserName = "Unknown user"

// UserService exposes the directory surface the chat core consumes.
type UserService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// ResolveName returns the user's display name and email, or the placeholder
// pair when the user cannot be found.
func (s *UserService) ResolveName(ctx context.Context, id uuid.UUID) (name, email string) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return UnknownUserName, ""
	}
	return u.FullName(), u.Email
}
