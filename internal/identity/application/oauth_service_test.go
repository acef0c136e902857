package application

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/fakturly/fakturly/internal/identity/domain"
)

type stubFetcher struct {
	profile *Profile
}

func (f *stubFetcher) Fetch(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	return f.profile, nil
}

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "provider-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func newOAuthFixture(t *testing.T, profile *Profile) (*OAuthService, *fakeUserRepo, *fakeTokenRepo) {
	t.Helper()
	tokenServer := newTokenServer(t)

	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	svc, err := NewOAuthService(
		"google",
		"client-id",
		"client-secret",
		"https://accounts.example.com/auth",
		tokenServer.URL,
		"https://accounts.example.com/userinfo",
		"https://app.fakturly.test/auth/callback",
		[]string{"openid", "email", "profile"},
		users, tokens, &fakeOutbox{}, noopUnitOfWork{},
		30*24*time.Hour,
	)
	require.NoError(t, err)
	svc.fetcher = &stubFetcher{profile: profile}
	return svc, users, tokens
}

func TestOAuthAuthURL(t *testing.T) {
	svc, _, _ := newOAuthFixture(t, &Profile{})

	url := svc.AuthURL("state-123")
	assert.Contains(t, url, "https://accounts.example.com/auth")
	assert.Contains(t, url, "state=state-123")
	assert.Contains(t, url, "client_id=client-id")
}

func TestOAuthCallback_CreatesVerifiedAccount(t *testing.T) {
	svc, users, _ := newOAuthFixture(t, &Profile{Email: "budi@example.com", Name: "Budi"})

	result, err := svc.HandleCallback(context.Background(), "auth-code")
	require.NoError(t, err)

	assert.True(t, result.User.IsVerified())
	assert.Equal(t, "google", result.User.OAuthProvider())
	assert.NotEmpty(t, result.Token)

	email, _ := domain.NewEmail("budi@example.com")
	stored, err := users.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID(), stored.ID())
}

func TestOAuthCallback_SignsInExistingAccount(t *testing.T) {
	svc, users, _ := newOAuthFixture(t, &Profile{Email: "budi@example.com", Name: "Budi"})

	first, err := svc.HandleCallback(context.Background(), "auth-code")
	require.NoError(t, err)
	second, err := svc.HandleCallback(context.Background(), "auth-code")
	require.NoError(t, err)

	assert.Equal(t, first.User.ID(), second.User.ID())
	assert.NotEqual(t, first.Token, second.Token)
	assert.Len(t, users.byID, 1)
}

func TestOAuthCallback_VerifiesExistingPasswordAccount(t *testing.T) {
	svc, users, _ := newOAuthFixture(t, &Profile{Email: "budi@example.com", Name: "Budi"})

	email, _ := domain.NewEmail("budi@example.com")
	name, _ := domain.NewName("Budi")
	existing := domain.NewUser(email, name, "hash")
	existing.ClearDomainEvents()
	require.NoError(t, users.Save(context.Background(), existing))

	result, err := svc.HandleCallback(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, existing.ID(), result.User.ID())
	assert.True(t, result.User.IsVerified())
}

func TestOAuthCallback_MissingNameFallsBackToEmail(t *testing.T) {
	svc, _, _ := newOAuthFixture(t, &Profile{Email: "budi@example.com"})

	result, err := svc.HandleCallback(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "budi@example.com", result.User.Name().String())
}

func TestNewOAuthService_IncompleteConfig(t *testing.T) {
	_, err := NewOAuthService(
		"google", "", "", "", "", "", "", nil,
		newFakeUserRepo(), newFakeTokenRepo(), &fakeOutbox{}, noopUnitOfWork{},
		time.Hour,
	)
	assert.Error(t, err)
}
