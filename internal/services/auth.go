package services

import (
	"context"
	"errors"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/garuda-portal/apiserver/config"
	"github.com/garuda-portal/apiserver/internal/audit"
	"github.com/garuda-portal/apiserver/internal/store"
	"github.com/garuda-portal/apiserver/types"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL   = 5 * time.Minute
	defaultBcryptCost = 10
)

// Identity is the authenticated principal decoded from a session token.
type Identity struct {
	UserID int64
	Role   types.Role
	Name   string
}

// AuthService implements registration, login and token verification.
// The signing secret, token lifetime and clock are injected so the
// service has no process-global state.
type AuthService struct {
	store      UserStore
	audit      *audit.Recorder
	secret     []byte
	tokenTTL   time.Duration
	bcryptCost int
	now        func() time.Time
}

// NewAuthService constructs an AuthService from config.
func NewAuthService(userStore UserStore, cfg config.AuthConfig, recorder *audit.Recorder) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = defaultBcryptCost
	}
	return &AuthService{
		store:      userStore,
		audit:      recorder,
		secret:     []byte(cfg.JWTSecret),
		tokenTTL:   ttl,
		bcryptCost: cost,
		now:        time.Now,
	}
}

// RegisterInput carries the registration fields.
type RegisterInput struct {
	Username string
	Email    string
	FullName string
	Password string
}

// Register creates a new account with role User. The plaintext password
// is hashed immediately and never stored or logged.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (types.User, error) {
	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)
	fullName := strings.TrimSpace(input.FullName)

	switch {
	case username == "":
		return types.User{}, missingField("username")
	case email == "":
		return types.User{}, missingField("email")
	case fullName == "":
		return types.User{}, missingField("full_name")
	case input.Password == "":
		return types.User{}, missingField("password")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return types.User{}, &ValidationError{Field: "email", Reason: "is not a valid address"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.store.Create(ctx, types.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Role:         types.RoleUser,
		IsActive:     true,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrAccountExists
		}
		return types.User{}, err
	}

	s.audit.Record(ctx, types.AuditUserRegistered, 0, user.ID, map[string]string{"email": user.Email})
	return sanitize(user), nil
}

// Login verifies credentials against the store and issues a signed,
// short-lived session token. The error is the same for unknown email,
// wrong password and deactivated accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, types.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", types.User{}, missingField("email")
	}
	if password == "" {
		return "", types.User{}, missingField("password")
	}

	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", types.User{}, ErrInvalidCredentials
		}
		return "", types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", types.User{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", types.User{}, ErrInvalidCredentials
	}

	loginAt := s.now()
	if err := s.store.SetLastLogin(ctx, user.ID, loginAt); err != nil {
		return "", types.User{}, err
	}
	user.LastLogin = &loginAt

	token, err := s.issueToken(user)
	if err != nil {
		return "", types.User{}, err
	}

	s.audit.Record(ctx, types.AuditUserLoggedIn, user.ID, user.ID, nil)
	return token, sanitize(user), nil
}

// Profile returns the user behind an authenticated identity.
func (s *AuthService) Profile(ctx context.Context, id int64) (types.User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return sanitize(user), nil
}

// UpdateProfileInput carries self-service profile changes. Empty fields
// are left unchanged.
type UpdateProfileInput struct {
	Username string
	FullName string
	Password string
}

// UpdateProfile applies self-service changes to the caller's own record.
func (s *AuthService) UpdateProfile(ctx context.Context, id int64, input UpdateProfileInput) (types.User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}

	changed := []string{}
	if username := strings.TrimSpace(input.Username); username != "" && username != user.Username {
		user.Username = username
		changed = append(changed, "username")
	}
	if fullName := strings.TrimSpace(input.FullName); fullName != "" && fullName != user.FullName {
		user.FullName = fullName
		changed = append(changed, "full_name")
	}
	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordHash = string(hash)
		changed = append(changed, "password")
	}
	if len(changed) == 0 {
		return sanitize(user), nil
	}

	updated, err := s.store.Update(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrAccountExists
		}
		return types.User{}, err
	}

	s.audit.Record(ctx, types.AuditProfileUpdated, id, id, map[string]string{"fields": strings.Join(changed, ",")})
	return sanitize(updated), nil
}

type sessionClaims struct {
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

func (s *AuthService) issueToken(user types.User) (string, error) {
	now := s.now()
	claims := sessionClaims{
		Role: string(user.Role),
		Name: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyToken validates signature and expiry, then decodes the identity.
// Expiry is checked against the service clock.
func (s *AuthService) VerifyToken(tokenString string) (Identity, error) {
	claims := sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(strings.TrimSpace(claims.Subject), 10, 64)
	if err != nil || userID < 1 {
		return Identity{}, ErrInvalidToken
	}
	role, err := types.ParseRole(claims.Role)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: userID, Role: role, Name: claims.Name}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sanitize(user types.User) types.User {
	user.PasswordHash = ""
	return user
}
