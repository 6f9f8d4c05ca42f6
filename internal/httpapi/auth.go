package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"tokoisi/backend/internal/domain"
	"tokoisi/backend/internal/store"
	"tokoisi/backend/internal/xid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const minPasswordLength = 8

// UserStore is the slice of store.Repository the auth manager needs.
type UserStore interface {
	CreateUser(ctx context.Context, account domain.UserAccount, profile domain.Profile) error
	GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error)
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	GetUserRole(ctx context.Context, userID string) (domain.Role, error)
	SetUserRole(ctx context.Context, userID string, role domain.Role) error
}

// AuthManager issues and checks access tokens. Tokens carry identity only;
// the role is looked up on every request so revocations apply at once.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	users    UserStore
	now      func() time.Time
}

type accessClaims struct {
	jwtlib.RegisteredClaims
	Email string `json:"email"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, users UserStore) *AuthManager {
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    users,
		now:      time.Now,
	}
}

// Signup creates the credential and profile. New accounts have no role until
// a super admin assigns one.
func (a *AuthManager) Signup(ctx context.Context, req domain.SignupRequest) (domain.Profile, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.Profile{}, err
	}
	if len(req.Password) < minPasswordLength {
		return domain.Profile{}, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLength)
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("hash password: %w", err)
	}
	account := domain.UserAccount{
		UserID:       xid.New("user"),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    a.now().UTC(),
	}
	if err := a.users.CreateUser(ctx, account, domain.Profile{FullName: strings.TrimSpace(req.FullName)}); err != nil {
		return domain.Profile{}, err
	}

	profile, err := a.users.GetProfile(ctx, account.UserID)
	if err != nil {
		return domain.Profile{}, err
	}
	return *profile, nil
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	account, err := a.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.LoginResponse{}, err
	}
	if !verifyPassword(account.PasswordHash, req.Password) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}

	role, err := a.users.GetUserRole(ctx, account.UserID)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	expiresAt := a.now().UTC().Add(a.tokenTTL)
	token, err := a.sign(account.UserID, account.Email, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		AccessToken: token,
		UserID:      account.UserID,
		Role:        role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

// ParseToken returns the identity in tokenStr without a role.
func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &accessClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return domain.Actor{}, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, ErrInvalidToken
	}
	return domain.Actor{UserID: sub, Email: claims.Email}, nil
}

// Resolve parses the token and attaches the user's current role.
func (a *AuthManager) Resolve(ctx context.Context, tokenStr string) (domain.Actor, error) {
	actor, err := a.ParseToken(tokenStr)
	if err != nil {
		return domain.Actor{}, err
	}
	role, err := a.users.GetUserRole(ctx, actor.UserID)
	if err != nil {
		return domain.Actor{}, err
	}
	actor.Role = role
	return actor, nil
}

// EnsureUser creates the account when the email is unknown and assigns role.
// Existing accounts keep their password.
func (a *AuthManager) EnsureUser(ctx context.Context, email string, password string, fullName string, role domain.Role) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	account, err := a.users.GetUserByEmail(ctx, normalized)
	switch {
	case errors.Is(err, store.ErrNotFound):
		profile, err := a.Signup(ctx, domain.SignupRequest{Email: normalized, Password: password, FullName: fullName})
		if err != nil {
			return err
		}
		return a.users.SetUserRole(ctx, profile.UserID, role)
	case err != nil:
		return err
	default:
		return a.users.SetUserRole(ctx, account.UserID, role)
	}
}

func (a *AuthManager) sign(userID string, email string, expiresAt time.Time) (string, error) {
	claims := accessClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwtlib.NewNumericDate(a.now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "tokoisi",
		},
		Email: email,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: a valid email is required", domain.ErrValidation)
	}
	return email, nil
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
