package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/models"
	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/repositories"
)

// SignupCredits is the free grant every new account starts with.
const SignupCredits = 5

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service handles account registration and login
type Service struct {
	userRepo    repositories.UserRepo
	balanceRepo repositories.BalanceRepo
	jwtService  *JWTService
}

func NewService(userRepo repositories.UserRepo, balanceRepo repositories.BalanceRepo, jwtService *JWTService) *Service {
	return &Service{
		userRepo:    userRepo,
		balanceRepo: balanceRepo,
		jwtService:  jwtService,
	}
}

// Register creates a new account with its starting credit balance
func (s *Service) Register(req *RegisterRequest) (*AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("email and password are required")
	}

	if _, err := s.userRepo.GetByEmail(req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         models.RoleUser,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.balanceRepo.CreateForUser(user.ID, SignupCredits); err != nil {
		return nil, fmt.Errorf("failed to create balance: %w", err)
	}

	return s.issueToken(user)
}

// Login verifies credentials and issues an access token
func (s *Service) Login(req *LoginRequest) (*AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !CheckPassword(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(user)
}

func (s *Service) issueToken(user *models.User) (*AuthResponse, error) {
	token, expiresIn, err := s.jwtService.GenerateAccessToken(&TokenClaims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		UserID:      user.ID.String(),
		Email:       user.Email,
		Role:        user.Role,
	}, nil
}
