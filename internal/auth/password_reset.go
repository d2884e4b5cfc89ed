package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/cellarbook-backend/internal/users"
	"github.com/angelmondragon/cellarbook-backend/pkg/config"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	"github.com/angelmondragon/cellarbook-backend/pkg/email"
	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
	"github.com/angelmondragon/cellarbook-backend/pkg/logger"
	"github.com/angelmondragon/cellarbook-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ForgotPasswordMessage is returned whether or not the account exists.
const ForgotPasswordMessage = "If an account with that email exists, a reset link has been sent."

const (
	ReasonTokenUsed    = "TOKEN_USED"
	ReasonTokenExpired = "TOKEN_EXPIRED"
)

const resetMailTimeout = 15 * time.Second

// PasswordService drives the forgot/reset password flow.
type PasswordService interface {
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

type resetUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type resetTokenRepository interface {
	Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*models.PasswordResetToken, error)
	FindByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

type sessionRevoker interface {
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

type PasswordServiceParams struct {
	TxRunner         txRunner
	UserRepo         resetUserRepository
	TokenRepo        resetTokenRepository
	UserRepoFactory  func(tx *gorm.DB) resetUserRepository
	TokenRepoFactory func(tx *gorm.DB) resetTokenRepository
	Sessions         sessionRevoker
	Mailer           email.Mailer
	Logger           *logger.Logger
	PasswordConfig   config.PasswordConfig
	AppBaseURL       string
	Now              func() time.Time
	// Dispatch runs reset mail delivery off the request path. Defaults to a
	// new goroutine.
	Dispatch func(task func())
}

type passwordService struct {
	tx          txRunner
	users       resetUserRepository
	tokens      resetTokenRepository
	txUsers     func(tx *gorm.DB) resetUserRepository
	txTokens    func(tx *gorm.DB) resetTokenRepository
	sessions    sessionRevoker
	mailer      email.Mailer
	logg        *logger.Logger
	passwordCfg config.PasswordConfig
	baseURL     string
	now         func() time.Time
	dispatch    func(task func())
}

func NewPasswordService(params PasswordServiceParams) (PasswordService, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.TokenRepo == nil {
		return nil, fmt.Errorf("reset token repository is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	txUsers := params.UserRepoFactory
	if txUsers == nil {
		txUsers = func(tx *gorm.DB) resetUserRepository { return users.NewRepository(tx) }
	}
	txTokens := params.TokenRepoFactory
	if txTokens == nil {
		txTokens = func(tx *gorm.DB) resetTokenRepository { return NewResetTokenRepository(tx) }
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	dispatch := params.Dispatch
	if dispatch == nil {
		dispatch = func(task func()) { go task() }
	}
	return &passwordService{
		tx:          params.TxRunner,
		users:       params.UserRepo,
		tokens:      params.TokenRepo,
		txUsers:     txUsers,
		txTokens:    txTokens,
		sessions:    params.Sessions,
		mailer:      params.Mailer,
		logg:        params.Logger,
		passwordCfg: params.PasswordConfig,
		baseURL:     strings.TrimRight(params.AppBaseURL, "/"),
		now:         now,
		dispatch:    dispatch,
	}, nil
}

// ForgotPassword never reveals whether the email is registered. Only storage
// failures surface. The mail goes out after the call returns, so response time
// does not depend on delivery, and delivery failures are only logged.
func (s *passwordService) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	normalized := users.NormalizeEmail(req.Email)
	if normalized == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	token, err := security.GenerateResetToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	ttl := s.passwordCfg.ResetTokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	if _, err := s.tokens.Create(ctx, user.ID, token, s.now().UTC().Add(ttl)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store reset token")
	}

	msg := email.Message{
		To:      user.Email,
		Subject: "Reset your Cellarbook password",
		Body:    fmt.Sprintf("Hi %s,\n\nUse the link below to choose a new password. It expires in one hour.\n\n%s\n", user.Name, s.resetURL(token)),
	}
	mailCtx := context.WithoutCancel(ctx)
	s.dispatch(func() {
		sendCtx, cancel := context.WithTimeout(mailCtx, resetMailTimeout)
		defer cancel()
		if err := s.mailer.Send(sendCtx, msg); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithUserID(sendCtx, user.ID), "send reset email failed", err)
		}
	})
	return nil
}

func (s *passwordService) resetURL(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, url.QueryEscape(token))
}

func (s *passwordService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token and password are required")
	}
	if len(req.Password) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 6 characters")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	now := s.now().UTC()
	var userID uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		tokens := s.txTokens(tx)
		record, err := tokens.FindByToken(ctx, token)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired reset link")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup reset token")
		}
		if record.UsedAt != nil {
			return tokenUsedError()
		}
		if now.After(record.ExpiresAt) {
			return pkgerrors.New(pkgerrors.CodeGone, "this reset link has expired").
				WithReason(ReasonTokenExpired)
		}

		if err := s.txUsers(tx).UpdatePasswordHash(ctx, record.UserID, hash); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
		}
		consumed, err := tokens.MarkUsed(ctx, record.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark reset token used")
		}
		if !consumed {
			return tokenUsedError()
		}
		userID = record.UserID
		return nil
	})
	if err != nil {
		return err
	}

	if s.sessions != nil {
		if err := s.sessions.RevokeAll(ctx, userID); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithUserID(ctx, userID), "revoke sessions after reset failed", err)
		}
	}
	return nil
}

func tokenUsedError() error {
	return pkgerrors.New(pkgerrors.CodeGone, "this reset link has already been used").
		WithReason(ReasonTokenUsed)
}
