package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/example/marketplace/pkg/marketplace"
	"github.com/example/marketplace/pkg/models"
	"github.com/example/marketplace/pkg/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidToken is returned when the presented token does not
	// resolve to a user.
	ErrInvalidToken = errors.New("invalid authentication token")
	// ErrEmailTaken is returned when registering an email that already
	// has an account.
	ErrEmailTaken = errors.New("email already registered")
)

// Service issues tokens at registration and resolves them on every
// authenticated request, with a Redis cache in front of the tokens
// table.
type Service struct {
	store  repository.Store
	cache  *repository.RedisRepository
	audit  *repository.MongoRepository
	logger *zap.Logger
}

// NewService wires the auth service. cache and audit may be nil.
func NewService(store repository.Store, cache *repository.RedisRepository, audit *repository.MongoRepository, logger *zap.Logger) *Service {
	return &Service{store: store, cache: cache, audit: audit, logger: logger}
}

// Credentials is the registration payload.
type Credentials struct {
	FirstName  string `json:"first_name"`
	SecondName string `json:"second_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

func (c *Credentials) validate() error {
	if c.FirstName == "" || c.Email == "" || c.Password == "" {
		return &marketplace.ValidationError{Message: "first_name, email and password are required"}
	}
	if !strings.Contains(c.Email, "@") {
		return &marketplace.ValidationError{Message: "invalid email address"}
	}
	return nil
}

// Register creates the user and returns a fresh token.
func (s *Service) Register(ctx context.Context, creds Credentials) (string, error) {
	if err := creds.validate(); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	key, err := newTokenKey()
	if err != nil {
		return "", err
	}

	user := &models.User{
		Email:        creds.Email,
		FirstName:    creds.FirstName,
		LastName:     creds.SecondName,
		PasswordHash: string(hash),
		Active:       true,
	}
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.GetUserByEmail(ctx, creds.Email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.CreateToken(ctx, &models.Token{Key: key, UserID: user.ID})
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("New user registered", zap.String("email", user.Email), zap.Uint("user_id", user.ID))

	if s.cache != nil {
		if err := s.cache.CacheToken(ctx, key, user.ID); err != nil {
			s.logger.Warn("Failed to cache token", zap.Error(err))
		}
	}
	if s.audit != nil {
		go func(u *models.User) {
			if err := s.audit.RecordUserRegistered(context.Background(), u); err != nil {
				s.logger.Warn("Failed to write audit log", zap.Uint("user_id", u.ID), zap.Error(err))
			}
		}(user)
	}

	return key, nil
}

// Authenticate resolves a token key to its user, cache first.
func (s *Service) Authenticate(ctx context.Context, key string) (*models.User, error) {
	if key == "" {
		return nil, ErrInvalidToken
	}

	if s.cache != nil {
		if userID, err := s.cache.GetTokenCache(ctx, key); err == nil {
			if user, err := s.store.GetUser(ctx, userID); err == nil {
				return user, nil
			}
		}
	}

	token, err := s.store.GetToken(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	user, err := s.store.GetUser(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.CacheToken(ctx, key, user.ID); err != nil {
			s.logger.Warn("Failed to cache token", zap.Error(err))
		}
	}
	return user, nil
}

func newTokenKey() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
