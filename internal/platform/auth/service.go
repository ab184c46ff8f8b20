package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrAuthentication     = errors.New("authentication failed")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrInvalidCredentials = errors.New("username and password are required")
	ErrInvalidRole        = errors.New("role must be admin or student")
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (string, Actor, error)
	Register(ctx context.Context, username, password, role string) (int64, error)
	Disable(ctx context.Context, userID int64) error
}

type Service struct {
	store  AccountStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(store AccountStore, secret []byte, ttl time.Duration) *Service {
	return &Service{store: store, secret: secret, ttl: ttl, now: time.Now}
}

func (s *Service) Login(ctx context.Context, username, password string) (string, Actor, error) {
	acct, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return "", Actor{}, err
	}
	if acct == nil {
		return "", Actor{}, ErrAuthentication
	}
	if acct.IsDisabled {
		return "", Actor{}, ErrAccountDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", Actor{}, ErrAuthentication
	}

	actor := Actor{UserID: acct.UserID, Role: acct.Role}
	token, err := s.Issue(actor)
	if err != nil {
		return "", Actor{}, err
	}
	return token, actor, nil
}

// Issue signs an HS256 token for the actor.
func (s *Service) Issue(a Actor) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatInt(a.UserID, 10),
		"role": a.Role,
		"exp":  s.now().Add(s.ttl).Unix(),
	})
	return token.SignedString(s.secret)
}

func (s *Service) Register(ctx context.Context, username, password, role string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return 0, ErrInvalidCredentials
	}
	if role == "" {
		role = RoleStudent
	}
	if role != RoleAdmin && role != RoleStudent {
		return 0, ErrInvalidRole
	}

	exists, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	if exists != nil {
		return 0, ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	return s.store.Create(ctx, &Account{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	})
}

func (s *Service) Disable(ctx context.Context, userID int64) error {
	n, err := s.store.SetDisabled(ctx, userID, true)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
