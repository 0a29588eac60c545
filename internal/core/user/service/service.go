package userapp

import (
	"context"
	"errors"
	"strings"
	"time"

	userEntity "newsdesk/internal/core/user"
	userPort "newsdesk/internal/ports/user"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyTaken       = errors.New("username or email already taken")
)

const (
	TokenIssuer = "newsdesk"
	TokenTTL    = 24 * time.Hour
)

// UserService سرویس مدیریت کاربران
type UserService struct {
	UserRepository userPort.UserRepository
	Logger         *zap.Logger
	jwtKey         []byte
}

func NewUserService(repo userPort.UserRepository, jwtKey []byte, logger *zap.Logger) *UserService {
	return &UserService{
		UserRepository: repo,
		Logger:         logger,
		jwtKey:         jwtKey,
	}
}

type RegisterInput struct {
	Name      string
	Username  string
	Email     string
	Password  string
	ClientKey string
}

// LoginUser ورود کاربر و صدور توکن JWT
func (s *UserService) LoginUser(ctx context.Context, username, password string) (*userPort.LoginResponse, error) {
	user, err := s.UserRepository.FindByUsername(ctx, username)
	if err != nil {
		s.Logger.Info("login failed: unknown user", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.Logger.Info("login failed: bad password", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(TokenTTL)
	token, err := s.generateJWT(user, expiresAt)
	if err != nil {
		s.Logger.Error("could not generate token", zap.Error(err))
		return nil, errors.New("could not generate token")
	}

	return &userPort.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
	}, nil
}

// generateJWT برای تولید توکن JWT
func (s *UserService) generateJWT(user *userEntity.User, expiresAt time.Time) (string, error) {
	claims := &jwt.StandardClaims{
		Subject:   user.ID.String(),
		Issuer:    TokenIssuer,
		ExpiresAt: expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtKey)
}

// RegisterUser ثبت‌نام کاربر جدید
func (s *UserService) RegisterUser(ctx context.Context, in RegisterInput) (*userPort.UserDTO, error) {
	existing, err := s.UserRepository.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	if err == nil && existing != nil {
		return nil, ErrAlreadyTaken
	}
	if in.ClientKey != "" {
		owner, err := s.UserRepository.FindByClientKey(ctx, in.ClientKey)
		if err != nil {
			return nil, err
		}
		if owner != nil {
			return nil, ErrAlreadyTaken
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &userEntity.User{
		ID:       uuid.Must(uuid.NewV4()),
		Name:     in.Name,
		Username: in.Username,
		Email:    strings.TrimSpace(in.Email),
		Password: string(hashedPassword),
	}
	if key := strings.TrimSpace(in.ClientKey); key != "" {
		user.ClientKey = &key
	}

	u, err := s.UserRepository.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	return userPort.ToDTO(u), nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*userPort.UserDTO, error) {
	u, err := s.UserRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return userPort.ToDTO(u), nil
}

// SetAutoPublish فعال/غیرفعال کردن انتشار خودکار برای کاربر
func (s *UserService) SetAutoPublish(ctx context.Context, id string, enabled bool) (*userPort.UserDTO, error) {
	if err := s.UserRepository.SetAutoPublish(ctx, id, enabled); err != nil {
		return nil, err
	}
	s.Logger.Info("auto-publish toggled", zap.String("userID", id), zap.Bool("enabled", enabled))
	return s.GetUser(ctx, id)
}
