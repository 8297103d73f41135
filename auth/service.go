package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/perimetrix/fieldclinic/config"
	errs "github.com/perimetrix/fieldclinic/errors"
)

const minPasswordLength = 8

var (
	ErrInvalidCredentials    = fmt.Errorf("%w: invalid login credentials", errs.Unauthorized)
	ErrInvalidToken          = fmt.Errorf("%w: JWT is invalid or expired", errs.Unauthorized)
	ErrSessionNotFound       = fmt.Errorf("%w: session not found", errs.Unauthorized)
	ErrUserAlreadyRegistered = fmt.Errorf("%w: user already registered", errs.Duplicate)
)

type User struct {
	Id        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type Session struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	User        User      `json:"user"`

	sessionId string
}

func (s *Session) Auth() *Auth {
	return &Auth{
		SubjectId: s.User.Id,
		Email:     s.User.Email,
		SessionId: s.sessionId,
		ExpiresAt: s.ExpiresAt,
	}
}

//go:generate mockgen --build_flags=--mod=mod -source=./service.go -destination=./test/mock_service.go -package test Service

type Service interface {
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, token string) error
	GetSession(ctx context.Context, token string) (*Session, error)
}

func NewTokenIssuerFromConfig(cfg *config.Config) (*TokenIssuer, error) {
	return NewTokenIssuer(cfg.JwtSecret, cfg.SessionTTL)
}

func NewService(repo Repository, tokens *TokenIssuer, logger *zap.SugaredLogger) (Service, error) {
	return &service{
		repo:   repo,
		tokens: tokens,
		logger: logger,
	}, nil
}

type service struct {
	repo   Repository
	tokens *TokenIssuer
	logger *zap.SugaredLogger
}

func (s *service) SignUp(ctx context.Context, email, password string) (*Session, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("unable to hash password: %w", err)
	}
	record, err := s.repo.CreateUser(ctx, email, hash)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("user signed up", "userId", record.Id.Hex())
	return s.startSession(ctx, record.toUser())
}

func (s *service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	record, err := s.repo.FindUserByEmail(ctx, email)
	if errors.Is(err, errs.NotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(record.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, record.toUser())
}

func (s *service) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSession(ctx, claims.ID); err != nil {
		return err
	}

	s.logger.Infow("user signed out", "userId", claims.Subject, "sessionId", claims.ID)
	return nil
}

func (s *service) GetSession(ctx context.Context, token string) (*Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	session, err := s.repo.FindSession(ctx, claims.ID)
	if errors.Is(err, errs.NotFound) {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, err
	}
	if session.UserId != claims.Subject || time.Now().After(session.ExpiresAt) {
		return nil, ErrSessionNotFound
	}

	record, err := s.repo.FindUser(ctx, session.UserId)
	if errors.Is(err, errs.NotFound) {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken: token,
		ExpiresAt:   session.ExpiresAt,
		User:        record.toUser(),
		sessionId:   session.Id,
	}, nil
}

func (s *service) startSession(ctx context.Context, user User) (*Session, error) {
	sessionId := uuid.NewString()
	token, claims, err := s.tokens.Issue(user, sessionId)
	if err != nil {
		return nil, err
	}

	expiresAt := claims.ExpiresAt.Time
	err = s.repo.CreateSession(ctx, SessionRecord{
		Id:        sessionId,
		UserId:    user.Id,
		CreatedAt: claims.IssuedAt.Time,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        user,
		sessionId:   sessionId,
	}, nil
}

func validateCredentials(email, password string) error {
	v := &errs.ValidationError{}
	if _, err := mail.ParseAddress(email); err != nil {
		v.Add("email", "is not a valid email address")
	}
	if len(password) < minPasswordLength {
		v.Add("password", "must be at least %d characters", minPasswordLength)
	} else if !hasLetterAndDigit(password) {
		v.Add("password", "must contain a letter and a digit")
	}
	return v.Err()
}

func hasLetterAndDigit(password string) bool {
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}
