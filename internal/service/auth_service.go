package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"go-school-portal/internal/event"
	"go-school-portal/internal/model"
	"go-school-portal/internal/token"
	"go-school-portal/pkg/apierror"
)

// CredentialStore is the persistence the auth flow needs.
type CredentialStore interface {
	Create(ctx context.Context, c model.Credential) (model.Credential, error)
	FindByEmail(ctx context.Context, entity string, email string) (model.Credential, error)
	FindByID(ctx context.Context, entity string, id int64) (model.Credential, error)
	ExistsByEmail(ctx context.Context, entity string, email string) (bool, error)
	ExistsByPhone(ctx context.Context, entity string, phone string) (bool, error)
	UpdatePassword(ctx context.Context, entity string, id int64, passwordHash string) error
	ListBySchool(ctx context.Context, entity string, schoolName string) ([]model.Credential, error)
}

type AuthService struct {
	store      CredentialStore
	codec      *token.Codec
	sessionTTL time.Duration
	hashCost   int
	dummyHash  []byte
	now        func() time.Time
	bus        event.Bus
}

func NewAuthService(store CredentialStore, codec *token.Codec, sessionTTL time.Duration, hashCost int) (*AuthService, error) {
	if store == nil || codec == nil {
		return nil, errors.New("auth service requires a credential store and a token codec")
	}
	if sessionTTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", sessionTTL)
	}
	if hashCost < model.MinBcryptCost || hashCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d", model.MinBcryptCost, bcrypt.MaxCost, hashCost)
	}

	// Compared against on unknown accounts so both failure paths pay the same bcrypt cost.
	dummy, err := bcrypt.GenerateFromPassword([]byte("school-portal-timing-equaliser"), hashCost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &AuthService{
		store:      store,
		codec:      codec,
		sessionTTL: sessionTTL,
		hashCost:   hashCost,
		dummyHash:  dummy,
		now:        time.Now,
	}, nil
}

func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// SetEventBus enables publishing of credential events. Without a bus nothing is published.
func (s *AuthService) SetEventBus(bus event.Bus) {
	s.bus = bus
}

func (s *AuthService) publish(t event.Type, c model.Credential) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{
		Type:       t,
		Entity:     c.Entity,
		UserID:     c.ID,
		Email:      c.Email,
		SchoolName: c.SchoolName,
		OccurredAt: s.now().UTC(),
	})
}

func (s *AuthService) Register(ctx context.Context, entity string, req model.RegisterRequest) (model.PublicCredential, error) {
	if err := checkEntity(entity); err != nil {
		return model.PublicCredential{}, err
	}

	req.Normalize()
	if err := validateRequest(req); err != nil {
		return model.PublicCredential{}, err
	}

	taken, err := s.store.ExistsByEmail(ctx, entity, req.Email)
	if err != nil {
		return model.PublicCredential{}, err
	}
	if taken {
		return model.PublicCredential{}, apierror.Conflict("email")
	}

	if model.PhoneMustBeUnique(entity) {
		taken, err = s.store.ExistsByPhone(ctx, entity, req.Phone)
		if err != nil {
			return model.PublicCredential{}, err
		}
		if taken {
			return model.PublicCredential{}, apierror.Conflict("phone")
		}
	}

	hash, err := s.hashPassword(ctx, req.Password, "password")
	if err != nil {
		return model.PublicCredential{}, err
	}

	now := s.now().UTC()
	created, err := s.store.Create(ctx, model.Credential{
		Entity:       entity,
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		SchoolName:   req.SchoolName,
		Role:         req.Role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return model.PublicCredential{}, conflictFromStore(err)
	}

	slog.Info("credential registered", "entity", entity, "id", created.ID, "role", created.Role)
	s.publish(event.TypeCredentialRegistered, created)
	return created.Public(), nil
}

func (s *AuthService) Login(ctx context.Context, entity string, req model.LoginRequest) (model.LoginResponse, error) {
	if err := checkEntity(entity); err != nil {
		return model.LoginResponse{}, err
	}

	req.Normalize()
	if err := validateRequest(req); err != nil {
		return model.LoginResponse{}, err
	}

	cred, err := s.store.FindByEmail(ctx, entity, req.Email)
	if errors.Is(err, model.ErrCredentialNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		s.publish(event.TypeLoginFailed, model.Credential{Entity: entity, Email: req.Email})
		return model.LoginResponse{}, apierror.InvalidCredentials()
	}
	if err != nil {
		return model.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.Password)); err != nil {
		s.publish(event.TypeLoginFailed, cred)
		return model.LoginResponse{}, apierror.InvalidCredentials()
	}

	signed, expiresAt, err := s.codec.Encode(model.ClaimsFor(cred), s.sessionTTL)
	if err != nil {
		return model.LoginResponse{}, err
	}

	s.publish(event.TypeLoginSucceeded, cred)
	return model.LoginResponse{
		Token:     signed,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      cred.Public(),
	}, nil
}

// ValidateToken is the Request Guard's entry point into the codec.
func (s *AuthService) ValidateToken(tokenString string) (*model.SessionClaims, error) {
	return s.codec.Decode(tokenString)
}

// Me re-reads the caller's record so deleted accounts stop resolving.
func (s *AuthService) Me(ctx context.Context, claims *model.SessionClaims) (model.PublicCredential, error) {
	cred, err := s.store.FindByID(ctx, claims.Entity, claims.UserID)
	if errors.Is(err, model.ErrCredentialNotFound) {
		return model.PublicCredential{}, apierror.New(apierror.CodeNotFound, "account not found", "", http.StatusNotFound)
	}
	if err != nil {
		return model.PublicCredential{}, err
	}
	return cred.Public(), nil
}

func (s *AuthService) ChangePassword(ctx context.Context, claims *model.SessionClaims, req model.ChangePasswordRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	cred, err := s.store.FindByID(ctx, claims.Entity, claims.UserID)
	if errors.Is(err, model.ErrCredentialNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.CurrentPassword))
		return apierror.InvalidCredentials()
	}
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return apierror.InvalidCredentials()
	}

	hash, err := s.hashPassword(ctx, req.NewPassword, "newPassword")
	if err != nil {
		return err
	}

	if err := s.store.UpdatePassword(ctx, cred.Entity, cred.ID, hash); err != nil {
		return err
	}

	slog.Info("password changed", "entity", cred.Entity, "id", cred.ID)
	s.publish(event.TypePasswordChanged, cred)
	return nil
}

// ResetPassword replaces a password without the current one. Only the admin CLI calls it.
func (s *AuthService) ResetPassword(ctx context.Context, entity string, email string, newPassword string) error {
	if err := checkEntity(entity); err != nil {
		return err
	}

	if err := validateRequest(model.ResetPasswordRequest{Password: newPassword}); err != nil {
		return err
	}

	lookup := model.LoginRequest{Email: email}
	lookup.Normalize()
	cred, err := s.store.FindByEmail(ctx, entity, lookup.Email)
	if errors.Is(err, model.ErrCredentialNotFound) {
		return apierror.New(apierror.CodeNotFound, "account not found", lookup.Email, http.StatusNotFound)
	}
	if err != nil {
		return err
	}

	hash, err := s.hashPassword(ctx, newPassword, "password")
	if err != nil {
		return err
	}

	if err := s.store.UpdatePassword(ctx, entity, cred.ID, hash); err != nil {
		return err
	}

	s.publish(event.TypePasswordReset, cred)
	return nil
}

// ListMembers returns the registry's members that share the caller's school.
func (s *AuthService) ListMembers(ctx context.Context, entity string, claims *model.SessionClaims) ([]model.PublicCredential, error) {
	if err := checkEntity(entity); err != nil {
		return nil, err
	}

	creds, err := s.store.ListBySchool(ctx, entity, claims.SchoolName)
	if err != nil {
		return nil, err
	}

	out := make([]model.PublicCredential, 0, len(creds))
	for _, c := range creds {
		out = append(out, c.Public())
	}
	return out, nil
}

func (s *AuthService) hashPassword(ctx context.Context, password string, field string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apierror.Validation(map[string]string{field: field + " must be at most 72 bytes"})
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func checkEntity(entity string) error {
	if !model.IsEntity(entity) {
		return apierror.New(apierror.CodeNotFound, "unknown registry", entity, http.StatusNotFound)
	}
	return nil
}

func validateRequest(v any) error {
	fields, err := model.Validate(v)
	if err != nil {
		return fmt.Errorf("validate request: %w", err)
	}
	if len(fields) > 0 {
		return apierror.Validation(fields)
	}
	return nil
}

func conflictFromStore(err error) error {
	switch {
	case errors.Is(err, model.ErrEmailTaken):
		return apierror.Conflict("email")
	case errors.Is(err, model.ErrPhoneTaken):
		return apierror.Conflict("phone")
	default:
		return err
	}
}
