package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/internal/repositories"
	"acai-delivery-backend/pkg/auth"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type AttendanceService struct {
	userRepo   repositories.AttendanceUserRepository
	jwtManager *auth.JWTManager
	log        *zap.Logger
}

func NewAttendanceService(userRepo repositories.AttendanceUserRepository, jwtManager *auth.JWTManager, log *zap.Logger) *AttendanceService {
	return &AttendanceService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		log:        log,
	}
}

type CreateUserRequest struct {
	Username    string              `json:"username" binding:"required"`
	Password    string              `json:"password" binding:"required"`
	Name        string              `json:"name" binding:"required"`
	Role        models.Role         `json:"role"`
	Permissions *models.Permissions `json:"permissions,omitempty"`
}

type UpdateUserRequest struct {
	Name        *string             `json:"name,omitempty"`
	Password    *string             `json:"password,omitempty"`
	Role        *models.Role        `json:"role,omitempty"`
	IsActive    *bool               `json:"is_active,omitempty"`
	Permissions *models.Permissions `json:"permissions,omitempty"`
}

type LoginResponse struct {
	User   *models.AttendanceUser `json:"user"`
	Tokens *auth.TokenPair        `json:"tokens"`
}

func validRole(r models.Role) bool {
	return r == models.RoleAttendant || r == models.RoleAdmin
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("%w: password must have at least %d characters", ErrInvalidUser, minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// identity is what the tokens of user carry. Admins hold every capability.
func identity(user *models.AttendanceUser) auth.Identity {
	perms := user.Permissions
	if user.Role == models.RoleAdmin {
		perms = models.DefaultPermissions(models.RoleAdmin)
	}
	granted := perms.Granted()
	names := make([]string, len(granted))
	for i, c := range granted {
		names[i] = string(c)
	}
	return auth.Identity{
		UserID:      user.ID.String(),
		Username:    user.Username,
		Role:        string(user.Role),
		Permissions: names,
	}
}

func (s *AttendanceService) CreateUser(ctx context.Context, req *CreateUserRequest) (*models.AttendanceUser, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: username and name are required", ErrInvalidUser)
	}
	if req.Role == "" {
		req.Role = models.RoleAttendant
	}
	if !validRole(req.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidUser, req.Role)
	}

	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	perms := models.DefaultPermissions(req.Role)
	if req.Permissions != nil {
		perms = *req.Permissions
	}

	user := &models.AttendanceUser{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Role:         req.Role,
		IsActive:     true,
		Permissions:  perms,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("attendance user created", zap.String("user_id", user.ID.String()), zap.String("role", string(user.Role)))
	return user, nil
}

func (s *AttendanceService) GetUser(ctx context.Context, id uuid.UUID) (*models.AttendanceUser, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *AttendanceService) UpdateUser(ctx context.Context, id uuid.UUID, req *UpdateUserRequest) (*models.AttendanceUser, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidUser)
		}
		user.Name = name
	}
	if req.Password != nil {
		hash, err := hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if req.Role != nil {
		if !validRole(*req.Role) {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidUser, *req.Role)
		}
		if *req.Role != user.Role && req.Permissions == nil {
			user.Permissions = models.DefaultPermissions(*req.Role)
		}
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.Permissions != nil {
		user.Permissions = *req.Permissions
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *AttendanceService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	err := s.userRepo.Delete(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	s.log.Info("attendance user deleted", zap.String("user_id", id.String()))
	return nil
}

func (s *AttendanceService) ListUsers(ctx context.Context) ([]models.AttendanceUser, error) {
	return s.userRepo.List(ctx)
}

// Authenticate checks the credentials of an active operator and issues a
// token pair carrying their role and permissions.
func (s *AttendanceService) Authenticate(ctx context.Context, username, password string) (*LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	tokens, err := s.jwtManager.GenerateTokenPair(identity(user))
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	now := time.Now()
	if err := s.userRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("last login not recorded", zap.String("user_id", user.ID.String()), zap.Error(err))
	} else {
		user.LastLogin = &now
	}

	s.log.Info("operator logged in", zap.String("user_id", user.ID.String()))
	return &LoginResponse{User: user, Tokens: tokens}, nil
}

// RefreshToken issues a new pair from a refresh token, re-reading the user
// so that deactivation and permission changes apply.
func (s *AttendanceService) RefreshToken(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.jwtManager.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.GetUser(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return s.jwtManager.GenerateTokenPair(identity(user))
}
