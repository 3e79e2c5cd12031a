package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/tokens"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type AuthService struct {
	Repo     *repo.GormRepo
	Events   events.Publisher
	Secret   []byte
	TTL      time.Duration
	HashCost int
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Identity  identity.Identity
}

func (s *AuthService) hashCost() int {
	if s.HashCost == 0 {
		return bcrypt.DefaultCost
	}
	return s.HashCost
}

func (s *AuthService) Register(ctx context.Context, in transport.RegisterForm) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	in.Normalize()
	if err := validateForm(&in); err != nil {
		return nil, err
	}

	pwHash, err := hash.HashPasswordCost(in.Password, s.hashCost())
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}
	user := models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: pwHash,
		Role:         models.RoleCustomer,
		Active:       true,
	}

	if err := s.Repo.CreateUserIfNotExists(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 409, "reason", "user already exist")
			return nil, fmt.Errorf("email %s already registered: %w", in.Email, ErrConflict)
		}
		l.Error("register_error", "status", 500, "reason", "cannot create user", "error", err)
		return nil, err
	}

	events.Publish(ctx, s.Events, events.TopicUser, events.Key(user.ID), map[string]any{
		"type":    "user_registered",
		"user_id": user.ID,
	})
	return &user, nil
}

// Login keeps "no such active account" and "wrong password" apart so the
// caller can show distinct messages.
func (s *AuthService) Login(ctx context.Context, email, password, userAgent string) (res *LoginResult, err error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")
	defer func() { metrics.Logins.WithLabelValues(metrics.Result(err, classify)).Inc() }()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required: %w", ErrValidation)
	}

	user, err := s.Repo.FindActiveUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login failed", "status", 401, "reason", "no active account")
			return nil, ErrAccountNotFound
		}
		l.Error("login failed", "status", 500, "error", err)
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login failed", "status", 401, "reason", "wrong password", "user_id", user.ID)
		return nil, ErrWrongPassword
	}

	exp := time.Now().Add(s.TTL)
	jti := uuid.NewString()
	token, err := tokens.SignSession(user.ID, user.DisplayName(), user.Role, jti, exp, s.Secret)
	if err != nil {
		l.Error("login failed", "status", 500, "reason", "cannot sign session", "error", err)
		return nil, err
	}
	if len(userAgent) > 255 {
		userAgent = userAgent[:255]
	}
	if err := s.Repo.CreateSession(ctx, &models.Session{
		JTI:       jti,
		UserID:    user.ID,
		UserAgent: userAgent,
		ExpiresAt: exp.UTC(),
	}); err != nil {
		l.Error("login failed", "status", 500, "reason", "cannot store session", "error", err)
		return nil, err
	}

	events.Publish(ctx, s.Events, events.TopicUser, events.Key(user.ID), map[string]any{
		"type":    "user_logged_in",
		"user_id": user.ID,
	})
	return &LoginResult{
		Token:     token,
		ExpiresAt: exp,
		Identity:  identity.FromUser(user, jti),
	}, nil
}

// Resolve turns a session cookie value into the caller's identity.
func (s *AuthService) Resolve(ctx context.Context, token string) (identity.Identity, error) {
	claims, err := tokens.SessionClaimsFromToken(token, s.Secret)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("session token: %v: %w", err, ErrUnauthenticated)
	}
	userID, err := claims.UserID()
	if err != nil {
		return identity.Identity{}, fmt.Errorf("session token: %v: %w", err, ErrUnauthenticated)
	}

	sess, err := s.Repo.FindSessionByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return identity.Identity{}, fmt.Errorf("session %s unknown: %w", claims.ID, ErrUnauthenticated)
		}
		return identity.Identity{}, err
	}
	if sess.UserID != userID || !sess.Valid(time.Now()) {
		return identity.Identity{}, fmt.Errorf("session %s revoked or expired: %w", claims.ID, ErrUnauthenticated)
	}

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return identity.Identity{}, fmt.Errorf("user %d gone: %w", userID, ErrUnauthenticated)
		}
		return identity.Identity{}, err
	}
	if !user.Active {
		return identity.Identity{}, fmt.Errorf("user %d inactive: %w", userID, ErrUnauthenticated)
	}
	return identity.FromUser(user, sess.JTI), nil
}

func (s *AuthService) Logout(ctx context.Context, id identity.Identity) error {
	if id.SessionID == "" {
		return nil
	}
	if err := s.Repo.RevokeSession(ctx, id.SessionID); err != nil {
		logging.FromContext(ctx).Error("logout_error", "status", 500, "error", err)
		return err
	}
	events.Publish(ctx, s.Events, events.TopicUser, events.Key(id.UserID), map[string]any{
		"type":    "user_logged_out",
		"user_id": id.UserID,
	})
	return nil
}

// EnsureAdmin makes email an active admin with the given password, creating
// the account when needed.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (created bool, err error) {
	email = strings.TrimSpace(email)
	if email == "" || len(password) < 8 {
		return false, fmt.Errorf("admin email and a password of 8+ characters are required: %w", ErrValidation)
	}
	pwHash, err := hash.HashPasswordCost(password, s.hashCost())
	if err != nil {
		return false, err
	}
	u := models.User{FirstName: "Admin", Email: email, PasswordHash: pwHash}
	created, err = s.Repo.PromoteOrCreateAdmin(ctx, &u)
	if err != nil {
		return false, err
	}
	logging.FromContext(ctx).Info("admin ensured", "user_id", u.ID, "created", created)
	return created, nil
}
