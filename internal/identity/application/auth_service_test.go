package application

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	billingDomain "github.com/fakturly/fakturly/internal/billing/domain"
	"github.com/fakturly/fakturly/internal/identity/domain"
	"github.com/fakturly/fakturly/internal/shared/infrastructure/outbox"
)

type noopUnitOfWork struct{}

func (noopUnitOfWork) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (noopUnitOfWork) Commit(ctx context.Context) error                   { return nil }
func (noopUnitOfWork) Rollback(ctx context.Context) error                 { return nil }

type fakeUserRepo struct {
	byID map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) Save(ctx context.Context, u *domain.User) error {
	r.byID[u.ID()] = u
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email domain.Email) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Email().Equals(email) {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) Search(ctx context.Context, filter domain.UserSearchFilter) ([]*domain.User, int, error) {
	return nil, 0, nil
}
func (r *fakeUserRepo) CountAll(ctx context.Context) (int, error)              { return len(r.byID), nil }
func (r *fakeUserRepo) CountByPlan(ctx context.Context, plan string) (int, error) { return 0, nil }
func (r *fakeUserRepo) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	return 0, nil
}

type fakeTokenRepo struct {
	byValue map[string]*domain.Token
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{byValue: make(map[string]*domain.Token)}
}

func (r *fakeTokenRepo) Save(ctx context.Context, t *domain.Token) error {
	r.byValue[t.Value] = t
	return nil
}

func (r *fakeTokenRepo) FindByValue(ctx context.Context, value string) (*domain.Token, error) {
	t, ok := r.byValue[value]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	return t, nil
}

func (r *fakeTokenRepo) Delete(ctx context.Context, value string) error {
	delete(r.byValue, value)
	return nil
}

func (r *fakeTokenRepo) DeleteByUserAndKind(ctx context.Context, userID uuid.UUID, kind domain.TokenKind) error {
	for value, t := range r.byValue {
		if t.UserID == userID && t.Kind == kind {
			delete(r.byValue, value)
		}
	}
	return nil
}

func (r *fakeTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type fakeOTPStore struct {
	codes map[string]string
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{codes: make(map[string]string)}
}

func (s *fakeOTPStore) Set(ctx context.Context, email, code string, ttl time.Duration) error {
	s.codes[email] = code
	return nil
}

func (s *fakeOTPStore) Get(ctx context.Context, email string) (string, error) {
	return s.codes[email], nil
}

func (s *fakeOTPStore) Delete(ctx context.Context, email string) error {
	delete(s.codes, email)
	return nil
}

type fakeMailer struct {
	verifications map[string]string
	resetURLs     map[string]string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{verifications: make(map[string]string), resetURLs: make(map[string]string)}
}

func (m *fakeMailer) SendVerificationCode(ctx context.Context, to, code string) error {
	m.verifications[to] = code
	return nil
}

func (m *fakeMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	m.resetURLs[to] = resetURL
	return nil
}

type fakeOutbox struct {
	messages []*outbox.Message
}

func (o *fakeOutbox) Save(ctx context.Context, msg *outbox.Message) error {
	o.messages = append(o.messages, msg)
	return nil
}

func (o *fakeOutbox) SaveBatch(ctx context.Context, msgs []*outbox.Message) error {
	o.messages = append(o.messages, msgs...)
	return nil
}

func (o *fakeOutbox) GetUnpublished(ctx context.Context, limit int) ([]*outbox.Message, error) {
	return nil, nil
}
func (o *fakeOutbox) MarkPublished(ctx context.Context, id int64) error { return nil }
func (o *fakeOutbox) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	return nil
}
func (o *fakeOutbox) MarkDead(ctx context.Context, id int64, reason string) error { return nil }
func (o *fakeOutbox) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	return 0, nil
}

type authFixture struct {
	service *AuthService
	users   *fakeUserRepo
	tokens  *fakeTokenRepo
	otps    *fakeOTPStore
	mailer  *fakeMailer
	outbox  *fakeOutbox
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:  newFakeUserRepo(),
		tokens: newFakeTokenRepo(),
		otps:   newFakeOTPStore(),
		mailer: newFakeMailer(),
		outbox: &fakeOutbox{},
	}
	f.service = NewAuthService(
		f.users, f.tokens, f.otps, f.mailer, f.outbox, noopUnitOfWork{},
		AuthConfig{
			TokenTTL:      30 * 24 * time.Hour,
			ResetTokenTTL: time.Hour,
			OTPTTL:        10 * time.Minute,
			FrontendURL:   "https://app.fakturly.test",
			AdminEmails:   []string{"admin@fakturly.test"},
		},
		slog.New(slog.DiscardHandler),
	)
	return f
}

func (f *authFixture) registerAndVerify(t *testing.T, email, password string) *AuthResult {
	t.Helper()
	_, err := f.service.Register(context.Background(), email, "Test User", password)
	require.NoError(t, err)
	result, err := f.service.VerifyEmail(context.Background(), email, f.otps.codes[email])
	require.NoError(t, err)
	return result
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.service.Register(context.Background(), "budi@example.com", "Budi", "s3cret-password")
	require.NoError(t, err)

	assert.Equal(t, "budi@example.com", user.Email().String())
	assert.Equal(t, billingDomain.PlanFree, user.Plan())
	assert.False(t, user.IsVerified())
	assert.False(t, user.IsAdmin())

	// Password stored hashed, never plaintext.
	assert.NotEqual(t, "s3cret-password", user.PasswordHash())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash()), []byte("s3cret-password")))

	// A verification code went out.
	code := f.mailer.verifications["budi@example.com"]
	require.Len(t, code, 6)
	assert.Equal(t, code, f.otps.codes["budi@example.com"])
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.Register(context.Background(), "budi@example.com", "Budi", "s3cret-password")
	require.NoError(t, err)

	_, err = f.service.Register(context.Background(), "budi@example.com", "Other", "other-password")
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestRegister_WeakPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.Register(context.Background(), "budi@example.com", "Budi", "short")
	assert.ErrorIs(t, err, domain.ErrPasswordTooWeak)
}

func TestRegister_AdminEmailGetsAdminRole(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.service.Register(context.Background(), "admin@fakturly.test", "Admin", "s3cret-password")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
}

func TestVerifyEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.Register(context.Background(), "budi@example.com", "Budi", "s3cret-password")
	require.NoError(t, err)

	// Wrong code rejected.
	_, err = f.service.VerifyEmail(context.Background(), "budi@example.com", "000000")
	assert.ErrorIs(t, err, ErrInvalidOTP)

	result, err := f.service.VerifyEmail(context.Background(), "budi@example.com", f.otps.codes["budi@example.com"])
	require.NoError(t, err)
	assert.True(t, result.User.IsVerified())
	assert.NotEmpty(t, result.Token)

	// Code is single use.
	assert.Empty(t, f.otps.codes["budi@example.com"])
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	f.registerAndVerify(t, "budi@example.com", "s3cret-password")

	result, err := f.service.Login(context.Background(), "budi@example.com", "s3cret-password")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	// Token resolves back to the user.
	user, err := f.service.Authenticate(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID(), user.ID())
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.registerAndVerify(t, "budi@example.com", "s3cret-password")

	_, err := f.service.Login(context.Background(), "budi@example.com", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	// Unknown address reports the same error, not a user-not-found.
	_, err = f.service.Login(context.Background(), "nobody@example.com", "s3cret-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLogin_UnverifiedEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.Register(context.Background(), "budi@example.com", "Budi", "s3cret-password")
	require.NoError(t, err)

	_, err = f.service.Login(context.Background(), "budi@example.com", "s3cret-password")
	assert.ErrorIs(t, err, domain.ErrEmailNotVerified)
}

func TestLogin_DowngradesExpiredPremium(t *testing.T) {
	f := newAuthFixture(t)
	result := f.registerAndVerify(t, "budi@example.com", "s3cret-password")

	// Premium that expired yesterday.
	user := result.User
	user.Upgrade(time.Now().Add(-24 * time.Hour))
	user.ClearDomainEvents()
	require.NoError(t, f.users.Save(context.Background(), user))

	login, err := f.service.Login(context.Background(), "budi@example.com", "s3cret-password")
	require.NoError(t, err)

	assert.Equal(t, billingDomain.PlanFree, login.User.Plan())
	assert.Nil(t, login.User.SubscriptionExpiresAt())
}

func TestLogin_ActivePremiumKept(t *testing.T) {
	f := newAuthFixture(t)
	result := f.registerAndVerify(t, "budi@example.com", "s3cret-password")

	user := result.User
	user.Upgrade(time.Now().Add(10 * 24 * time.Hour))
	user.ClearDomainEvents()
	require.NoError(t, f.users.Save(context.Background(), user))

	login, err := f.service.Login(context.Background(), "budi@example.com", "s3cret-password")
	require.NoError(t, err)
	assert.Equal(t, billingDomain.PlanPremium, login.User.Plan())
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t)
	result := f.registerAndVerify(t, "budi@example.com", "s3cret-password")

	require.NoError(t, f.service.Logout(context.Background(), result.Token))

	_, err := f.service.Authenticate(context.Background(), result.Token)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	result := f.registerAndVerify(t, "budi@example.com", "s3cret-password")

	token, err := domain.NewToken(result.User.ID(), domain.TokenKindAPI, time.Nanosecond, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.NoError(t, f.tokens.Save(context.Background(), token))

	_, err = f.service.Authenticate(context.Background(), token.Value)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newAuthFixture(t)
	session := f.registerAndVerify(t, "budi@example.com", "s3cret-password")

	require.NoError(t, f.service.ForgotPassword(context.Background(), "budi@example.com"))
	resetURL := f.mailer.resetURLs["budi@example.com"]
	require.Contains(t, resetURL, "https://app.fakturly.test/reset-password?token=")

	var resetToken string
	for value, tok := range f.tokens.byValue {
		if tok.Kind == domain.TokenKindReset {
			resetToken = value
		}
	}
	require.NotEmpty(t, resetToken)

	require.NoError(t, f.service.ResetPassword(context.Background(), resetToken, "new-password-1"))

	// Old sessions are revoked.
	_, err := f.service.Authenticate(context.Background(), session.Token)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)

	// Old password no longer works, the new one does.
	_, err = f.service.Login(context.Background(), "budi@example.com", "s3cret-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.service.Login(context.Background(), "budi@example.com", "new-password-1")
	assert.NoError(t, err)
}

func TestForgotPassword_UnknownAddressIsSilent(t *testing.T) {
	f := newAuthFixture(t)
	assert.NoError(t, f.service.ForgotPassword(context.Background(), "nobody@example.com"))
	assert.Empty(t, f.mailer.resetURLs)
}

func TestResetPassword_RejectsAPIToken(t *testing.T) {
	f := newAuthFixture(t)
	session := f.registerAndVerify(t, "budi@example.com", "s3cret-password")

	err := f.service.ResetPassword(context.Background(), session.Token, "new-password-1")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	session := f.registerAndVerify(t, "budi@example.com", "s3cret-password")

	err := f.service.ChangePassword(context.Background(), session.User.ID(), "wrong", "new-password-1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	err = f.service.ChangePassword(context.Background(), session.User.ID(), "s3cret-password", "new-password-1")
	require.NoError(t, err)

	_, err = f.service.Login(context.Background(), "budi@example.com", "new-password-1")
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	f := newAuthFixture(t)
	session := f.registerAndVerify(t, "budi@example.com", "s3cret-password")

	user, err := f.service.UpdateProfile(context.Background(), session.User.ID(), "Budi Santoso")
	require.NoError(t, err)
	assert.Equal(t, "Budi Santoso", user.Name().String())
}

func TestCurrentUser_DowngradesExpiredPremium(t *testing.T) {
	f := newAuthFixture(t)
	session := f.registerAndVerify(t, "budi@example.com", "s3cret-password")

	user := session.User
	user.Upgrade(time.Now().Add(-time.Hour))
	user.ClearDomainEvents()
	require.NoError(t, f.users.Save(context.Background(), user))

	current, effective, err := f.service.CurrentUser(context.Background(), user.ID())
	require.NoError(t, err)
	assert.True(t, effective.Downgraded)
	assert.Equal(t, billingDomain.PlanFree, effective.Plan)
	assert.Equal(t, billingDomain.PlanFree, current.Plan())
}
