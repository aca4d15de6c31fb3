package services

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/yukikurage/consultant-worklog/internal/constants"
	"github.com/yukikurage/consultant-worklog/internal/models"
	"github.com/yukikurage/consultant-worklog/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidProfile       = errors.New("invalid profile")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToCreateUser   = errors.New("failed to create user")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{
		userRepo: userRepo,
	}
}

// ProfileInput holds the profile fields a user controls.
type ProfileInput struct {
	DisplayName        *string
	DeveloperLevel     *models.DeveloperLevel
	Company            *string
	Area               *string
	TrainingEnrolled   *bool
	TrainingDailyHours *float64
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Email    string
	Password string
	Profile  ProfileInput
}

// Signup creates a new user.
func (s *AuthService) Signup(input SignupInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, ErrInvalidEmail
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	user := &models.User{
		ID:             uuid.NewString(),
		Email:          email,
		DeveloperLevel: models.DeveloperLevelJunior,
	}
	if err := applyProfile(user, input.Profile); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}
	user.PasswordHash = string(hashedPassword)

	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateUser, err)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id string) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// UpdateProfile changes the profile fields that are set in input.
func (s *AuthService) UpdateProfile(id string, input ProfileInput) (*models.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}
	if err := applyProfile(user, input); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(user); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

func applyProfile(user *models.User, input ProfileInput) error {
	if input.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*input.DisplayName)
	}
	if input.DeveloperLevel != nil {
		switch *input.DeveloperLevel {
		case models.DeveloperLevelTrainee, models.DeveloperLevelJunior, models.DeveloperLevelSenior:
			user.DeveloperLevel = *input.DeveloperLevel
		default:
			return fmt.Errorf("%w: unknown developer level %q", ErrInvalidProfile, *input.DeveloperLevel)
		}
	}
	if input.Company != nil {
		user.Company = strings.TrimSpace(*input.Company)
	}
	if input.Area != nil {
		user.Area = strings.TrimSpace(*input.Area)
	}
	if input.TrainingEnrolled != nil {
		user.TrainingEnrolled = *input.TrainingEnrolled
	}
	if input.TrainingDailyHours != nil {
		hours := *input.TrainingDailyHours
		if hours < 0 || hours > constants.WorkdayHours {
			return fmt.Errorf("%w: training hours must be between 0 and %.0f", ErrInvalidProfile, constants.WorkdayHours)
		}
		user.TrainingDailyHours = hours
	}
	if !user.TrainingEnrolled {
		user.TrainingDailyHours = 0
	}
	return nil
}
