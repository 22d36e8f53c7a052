// Package services contains server-side business logic. This file implements
// UserService: signup, login, logout and the admin account operations.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/docchat/internal/common"
	"github.com/dmitrijs2005/docchat/internal/dbx"
	"github.com/dmitrijs2005/docchat/internal/logging"
	"github.com/dmitrijs2005/docchat/internal/server/auth"
	"github.com/dmitrijs2005/docchat/internal/server/models"
	"github.com/dmitrijs2005/docchat/internal/server/repositories/chats"
	"github.com/dmitrijs2005/docchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docchat/internal/server/storage"
	"github.com/google/uuid"
)

// Session is a freshly issued session token together with its owner.
type Session struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// UserService handles accounts and session tokens.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	chats       chats.Repository
	blobs       storage.BlobStore
	hasher      *auth.PasswordHasher
	tokens      *auth.TokenService
	tokenTTL    time.Duration
	revocations auth.RevocationStore
	logger      logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

type UserServiceOption func(*UserService)

// WithRevocationStore makes Logout revoke the session token server-side.
func WithRevocationStore(r auth.RevocationStore) UserServiceOption {
	return func(s *UserService) { s.revocations = r }
}

func NewUserService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	chatRepo chats.Repository,
	blobs storage.BlobStore,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenService,
	tokenTTL time.Duration,
	logger logging.Logger,
	opts ...UserServiceOption,
) *UserService {
	s := &UserService{
		db:          db,
		repomanager: m,
		chats:       chatRepo,
		blobs:       blobs,
		hasher:      hasher,
		tokens:      tokens,
		tokenTTL:    tokenTTL,
		logger:      logger.With("module", "services.users"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Signup registers a regular user and logs them in.
func (s *UserService) Signup(ctx context.Context, email, password, name string) (*Session, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return nil, common.NewValidationError("", "Please provide email, password, and name")
	}
	if !auth.ValidateEmail(email) {
		return nil, common.NewValidationError("email", "Please provide a valid email")
	}
	if v := auth.ValidatePassword(password); !v.Valid {
		return nil, common.NewValidationError("password", v.Reason)
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         string(auth.RoleUser),
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return s.newSession(user)
}

// Login checks the credentials and issues a session. Unknown email and
// wrong password both yield common.ErrorUnauthorized and take about as long.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.NewValidationError("", "Please provide email and password")
	}
	if !auth.ValidateEmail(email) {
		return nil, common.NewValidationError("email", "Please provide a valid email")
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(ctx, password, s.dummyDigest(ctx))
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	if !s.hasher.Verify(ctx, password, user.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}

	return s.newSession(user)
}

// Me returns the account behind a session. A deleted account is
// common.ErrorNotFound.
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	if !validID(userID) {
		return nil, common.ErrorNotFound
	}
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// Logout revokes the token described by claims when a revocation store is
// configured. Without one it is a no-op and the client just drops the cookie.
func (s *UserService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.revocations == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.Debug(ctx, "session token revoked", "user_id", claims.UserID)
	return nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.repomanager.Users(s.db).List(ctx)
}

// DeleteUser removes an account with its stored files and chats. Admins
// cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, actorID, userID string) error {
	if !validID(userID) {
		return common.ErrorNotFound
	}
	if actorID == userID {
		return common.NewValidationError("", "You cannot delete your own account")
	}

	repo := s.repomanager.Users(s.db)
	if _, err := repo.GetByID(ctx, userID); err != nil {
		return err
	}

	objects, err := s.blobs.List(ctx, storage.UserPrefix(userID))
	if err != nil {
		return fmt.Errorf("list user blobs: %w", err)
	}
	for _, o := range objects {
		if err := s.blobs.Delete(ctx, o.Key); err != nil {
			return fmt.Errorf("delete blob %s: %w", o.Key, err)
		}
	}

	if err := s.chats.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user chats: %w", err)
	}
	if err := repo.Delete(ctx, userID); err != nil {
		return err
	}

	s.logger.Info(ctx, "user deleted", "user_id", userID, "by", actorID, "blobs", len(objects))
	return nil
}

// SetRole changes the role of userID. Admins cannot demote themselves.
func (s *UserService) SetRole(ctx context.Context, actorID, userID, role string) error {
	if !validID(userID) {
		return common.ErrorNotFound
	}
	r, ok := auth.ParseRole(role)
	if !ok {
		return common.NewValidationError("role", "Role must be user or admin")
	}
	if actorID == userID && r != auth.RoleAdmin {
		return common.NewValidationError("role", "You cannot remove your own admin role")
	}

	if err := s.repomanager.Users(s.db).UpdateRole(ctx, userID, string(r)); err != nil {
		return err
	}
	s.logger.Info(ctx, "user role changed", "user_id", userID, "role", role, "by", actorID)
	return nil
}

// ListUserBlobs lists the objects stored for userID.
func (s *UserService) ListUserBlobs(ctx context.Context, userID string) ([]storage.Object, error) {
	if !validID(userID) {
		return nil, common.ErrorNotFound
	}
	if _, err := s.repomanager.Users(s.db).GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.blobs.List(ctx, storage.UserPrefix(userID))
}

// EnsureAdmin creates an admin account, or promotes an existing account
// and resets its password. created reports which of the two happened.
func (s *UserService) EnsureAdmin(ctx context.Context, email, name, password string) (user *models.User, created bool, err error) {
	email = normalizeEmail(email)
	if !auth.ValidateEmail(email) {
		return nil, false, common.NewValidationError("email", "Please provide a valid email")
	}
	if v := auth.ValidatePassword(password); !v.Valid {
		return nil, false, common.NewValidationError("password", v.Reason)
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, false, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		existing, err := repo.GetByEmail(ctx, email)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			user, err = repo.Create(ctx, &models.User{
				Email:        email,
				Name:         strings.TrimSpace(name),
				PasswordHash: hash,
				Role:         string(auth.RoleAdmin),
			})
			created = err == nil
			return err
		case err != nil:
			return err
		}

		if err := repo.UpdateRole(ctx, existing.ID, string(auth.RoleAdmin)); err != nil {
			return err
		}
		if err := repo.UpdatePassword(ctx, existing.ID, hash); err != nil {
			return err
		}
		existing.Role = string(auth.RoleAdmin)
		existing.PasswordHash = hash
		user = existing
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}

func (s *UserService) newSession(user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(auth.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   auth.Role(user.Role),
	}, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: time.Now().Add(s.tokenTTL)}, nil
}

// dummyDigest is verified against when the email is unknown, so that a
// login for a missing account costs one bcrypt comparison too.
func (s *UserService) dummyDigest(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(context.WithoutCancel(ctx), uuid.NewString())
		if err != nil {
			s.logger.Warn(ctx, "dummy hash failed", "error", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
