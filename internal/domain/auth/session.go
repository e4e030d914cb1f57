package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// ErrInvalidSession is returned for missing, expired or forged tokens.
var ErrInvalidSession = errors.New("invalid session")

const sessionIssuer = "orephia"

// Claims are carried in the session token.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Session identifies the authenticated customer of a request.
type Session struct {
	UserID    string
	Email     string
	Name      string
	ExpiresAt time.Time
}

// Service logs customers in and issues HS256 session tokens.
type Service struct {
	users  UserRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates an auth Service.
func NewService(users UserRepository, secret []byte, ttl time.Duration) *Service {
	return &Service{
		users:  users,
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Login verifies the credentials and returns a signed session token.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, time.Time, error) {
	u, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", time.Time{}, ErrInvalidCredentials
		}
		return nil, "", time.Time{}, errors.Wrap(err, "find user")
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	token, exp, err := s.Issue(u)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return u, token, exp, nil
}

// Register creates a customer account.
func (s *Service) Register(ctx context.Context, email, name, password string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" || len(password) < 8 {
		return nil, errors.New("email and a password of at least 8 characters are required")
	}
	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, ErrUserNotFound):
		return nil, errors.Wrap(err, "find user")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

// Issue signs a session token for u.
func (s *Service) Issue(u *User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		Email: u.Email,
		Name:  u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign session")
	}
	return signed, exp, nil
}

// Verify parses and validates a session token.
func (s *Service) Verify(token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	var claims Claims
	// jwt/v4 validates time claims against time.Now; re-check against the
	// injected clock below.
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil && !isOnlyTimeError(err) {
		return nil, errors.Wrap(ErrInvalidSession, err.Error())
	}
	now := s.now()
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrInvalidSession
	}
	if claims.Issuer != sessionIssuer || claims.Subject == "" {
		return nil, ErrInvalidSession
	}
	return &Session{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func isOnlyTimeError(err error) bool {
	var ve *jwt.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	const timeErrors = jwt.ValidationErrorExpired | jwt.ValidationErrorNotValidYet | jwt.ValidationErrorIssuedAt
	return ve.Errors&^timeErrors == 0
}
