package users

import (
	"context"

	"github.com/picload/picload/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// Register creates a new user with a bcrypt-hashed password
func (s *Service) Register(ctx context.Context, email, firstName, lastName, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: string(hash),
	}
	return s.repo.Create(ctx, u)
}

// Authenticate verifies credentials and returns the user, or nil when
// the email is unknown or the password does not match.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) AppendImages(ctx context.Context, id string, refs []models.ImageRef) (*models.User, error) {
	return s.repo.AppendImages(ctx, id, refs)
}

func (s *Service) RemoveImagesByFilename(ctx context.Context, id string, filenames []string) (*models.User, error) {
	return s.repo.RemoveImagesByFilename(ctx, id, filenames)
}
