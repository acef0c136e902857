package application

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	billingDomain "github.com/fakturly/fakturly/internal/billing/domain"
	"github.com/fakturly/fakturly/internal/identity/domain"
	sharedApplication "github.com/fakturly/fakturly/internal/shared/application"
	"github.com/fakturly/fakturly/internal/shared/infrastructure/outbox"
)

var (
	// ErrInvalidOTP is returned when a verification code does not match.
	ErrInvalidOTP = errors.New("invalid or expired verification code")
)

// OTPStore keeps short-lived email verification codes, keyed by address.
type OTPStore interface {
	Set(ctx context.Context, email, code string, ttl time.Duration) error
	Get(ctx context.Context, email string) (string, error)
	Delete(ctx context.Context, email string) error
}

// Mailer sends transactional email.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code string) error
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}

// AuthConfig carries the tunables of the auth service.
type AuthConfig struct {
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
	OTPTTL        time.Duration
	FrontendURL   string
	AdminEmails   []string
}

// AuthResult is returned by operations that establish a session.
type AuthResult struct {
	User  *domain.User
	Token string
}

// AuthService handles registration, email verification, and sessions.
type AuthService struct {
	users  domain.UserRepository
	tokens domain.TokenRepository
	otps   OTPStore
	mailer Mailer
	outbox outbox.Repository
	uow    sharedApplication.UnitOfWork
	config AuthConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewAuthService creates an AuthService.
func NewAuthService(
	users domain.UserRepository,
	tokens domain.TokenRepository,
	otps OTPStore,
	mailer Mailer,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	config AuthConfig,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		otps:   otps,
		mailer: mailer,
		outbox: outboxRepo,
		uow:    uow,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Register creates a new account and emails a verification code. The
// account cannot log in until the code is confirmed.
func (s *AuthService) Register(ctx context.Context, emailRaw, nameRaw, password string) (*domain.User, error) {
	email, err := domain.NewEmail(emailRaw)
	if err != nil {
		return nil, err
	}
	name, err := domain.NewName(nameRaw)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := domain.NewUser(email, name, string(hash))
	if s.isAdminEmail(email) {
		user.PromoteToAdmin()
	}

	err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		if err := s.users.Save(txCtx, user); err != nil {
			return err
		}
		return outbox.StageEvents(txCtx, s.outbox, user)
	})
	if err != nil {
		return nil, err
	}

	if err := s.sendVerificationCode(ctx, email); err != nil {
		// Registration already committed. The user can request a resend.
		s.logger.Warn("failed to send verification code",
			slog.String("email", email.String()),
			slog.String("error", err.Error()))
	}
	return user, nil
}

// ResendVerification issues a fresh code for an unverified account.
func (s *AuthService) ResendVerification(ctx context.Context, emailRaw string) error {
	email, err := domain.NewEmail(emailRaw)
	if err != nil {
		return err
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.IsVerified() {
		return nil
	}
	return s.sendVerificationCode(ctx, email)
}

// VerifyEmail confirms the code sent at registration and opens a session.
func (s *AuthService) VerifyEmail(ctx context.Context, emailRaw, code string) (*AuthResult, error) {
	email, err := domain.NewEmail(emailRaw)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	stored, err := s.otps.Get(ctx, email.String())
	if err != nil || stored == "" || stored != code {
		return nil, ErrInvalidOTP
	}

	err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		user.VerifyEmail(s.now())
		if err := s.users.Save(txCtx, user); err != nil {
			return err
		}
		return outbox.StageEvents(txCtx, s.outbox, user)
	})
	if err != nil {
		return nil, err
	}

	if err := s.otps.Delete(ctx, email.String()); err != nil {
		s.logger.Warn("failed to delete used verification code", slog.String("error", err.Error()))
	}
	return s.openSession(ctx, user)
}

// Login authenticates with email and password. An expired premium
// subscription is downgraded here, on the read path.
func (s *AuthService) Login(ctx context.Context, emailRaw, password string) (*AuthResult, error) {
	email, err := domain.NewEmail(emailRaw)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash()), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsVerified() {
		return nil, domain.ErrEmailNotVerified
	}

	if user.EffectivePlan(s.now()).Downgraded {
		err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
			user.Downgrade()
			if err := s.users.Save(txCtx, user); err != nil {
				return err
			}
			return outbox.StageEvents(txCtx, s.outbox, user)
		})
		if err != nil {
			return nil, err
		}
		s.logger.Info("subscription expired, downgraded to free",
			slog.String("user_id", user.ID().String()))
	}

	return s.openSession(ctx, user)
}

// Logout revokes the given session token.
func (s *AuthService) Logout(ctx context.Context, tokenValue string) error {
	return s.tokens.Delete(ctx, tokenValue)
}

// Authenticate resolves a bearer token to its user.
func (s *AuthService) Authenticate(ctx context.Context, tokenValue string) (*domain.User, error) {
	token, err := s.tokens.FindByValue(ctx, tokenValue)
	if err != nil {
		return nil, err
	}
	if token.Kind != domain.TokenKindAPI {
		return nil, domain.ErrTokenNotFound
	}
	if token.IsExpired(s.now()) {
		return nil, domain.ErrTokenExpired
	}
	return s.users.FindByID(ctx, token.UserID)
}

// ForgotPassword mints a reset token and mails the reset link. Unknown
// addresses are not reported to the caller.
func (s *AuthService) ForgotPassword(ctx context.Context, emailRaw string) error {
	email, err := domain.NewEmail(emailRaw)
	if err != nil {
		return nil
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}

	if err := s.tokens.DeleteByUserAndKind(ctx, user.ID(), domain.TokenKindReset); err != nil {
		return err
	}
	token, err := domain.NewToken(user.ID(), domain.TokenKindReset, s.config.ResetTokenTTL, s.now())
	if err != nil {
		return err
	}
	if err := s.tokens.Save(ctx, token); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.config.FrontendURL, token.Value)
	return s.mailer.SendPasswordReset(ctx, email.String(), resetURL)
}

// ResetPassword consumes a reset token and replaces the password. All
// existing sessions are revoked.
func (s *AuthService) ResetPassword(ctx context.Context, tokenValue, newPassword string) error {
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}
	token, err := s.tokens.FindByValue(ctx, tokenValue)
	if err != nil {
		return err
	}
	if token.Kind != domain.TokenKindReset {
		return domain.ErrTokenNotFound
	}
	if token.IsExpired(s.now()) {
		return domain.ErrTokenExpired
	}

	user, err := s.users.FindByID(ctx, token.UserID)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		user.ChangePassword(string(hash))
		if err := s.users.Save(txCtx, user); err != nil {
			return err
		}
		return outbox.StageEvents(txCtx, s.outbox, user)
	})
	if err != nil {
		return err
	}

	if err := s.tokens.DeleteByUserAndKind(ctx, user.ID(), domain.TokenKindReset); err != nil {
		return err
	}
	return s.tokens.DeleteByUserAndKind(ctx, user.ID(), domain.TokenKindAPI)
}

// ChangePassword replaces the password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword string) error {
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash()), []byte(current)); err != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		user.ChangePassword(string(hash))
		if err := s.users.Save(txCtx, user); err != nil {
			return err
		}
		return outbox.StageEvents(txCtx, s.outbox, user)
	})
}

// UpdateProfile changes the display name.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, nameRaw string) (*domain.User, error) {
	name, err := domain.NewName(nameRaw)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		user.UpdateName(name)
		if err := s.users.Save(txCtx, user); err != nil {
			return err
		}
		return outbox.StageEvents(txCtx, s.outbox, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CurrentUser loads the account, downgrading an expired subscription on
// the way out so callers always see the effective plan.
func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*domain.User, billingDomain.EffectivePlan, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, billingDomain.EffectivePlan{}, err
	}

	effective := user.EffectivePlan(s.now())
	if effective.Downgraded {
		err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
			user.Downgrade()
			if err := s.users.Save(txCtx, user); err != nil {
				return err
			}
			return outbox.StageEvents(txCtx, s.outbox, user)
		})
		if err != nil {
			return nil, billingDomain.EffectivePlan{}, err
		}
	}
	return user, effective, nil
}

func (s *AuthService) openSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	token, err := domain.NewToken(user.ID(), domain.TokenKindAPI, s.config.TokenTTL, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Save(ctx, token); err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token.Value}, nil
}

func (s *AuthService) sendVerificationCode(ctx context.Context, email domain.Email) error {
	code, err := generateOTP()
	if err != nil {
		return err
	}
	if err := s.otps.Set(ctx, email.String(), code, s.config.OTPTTL); err != nil {
		return err
	}
	return s.mailer.SendVerificationCode(ctx, email.String(), code)
}

func (s *AuthService) isAdminEmail(email domain.Email) bool {
	for _, admin := range s.config.AdminEmails {
		if email.String() == admin {
			return true
		}
	}
	return false
}

// generateOTP returns a six digit numeric code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
