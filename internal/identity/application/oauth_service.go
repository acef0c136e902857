package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/fakturly/fakturly/internal/identity/domain"
	sharedApplication "github.com/fakturly/fakturly/internal/shared/application"
	"github.com/fakturly/fakturly/internal/shared/infrastructure/outbox"
)

// Profile is the subset of the provider's userinfo the service needs.
type Profile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ProfileFetcher loads the signed-in user's profile from the provider.
type ProfileFetcher interface {
	Fetch(ctx context.Context, token *oauth2.Token) (*Profile, error)
}

// httpProfileFetcher fetches the profile from a userinfo endpoint using
// the provider-issued access token.
type httpProfileFetcher struct {
	config      *oauth2.Config
	userInfoURL string
}

func (f *httpProfileFetcher) Fetch(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	client := f.config.Client(ctx, token)
	resp, err := client.Get(f.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetching userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decoding userinfo: %w", err)
	}
	return &profile, nil
}

// OAuthService signs users in through an external identity provider.
// Accounts created this way start verified, since the provider has
// already confirmed the address.
type OAuthService struct {
	oauthConfig *oauth2.Config
	provider    string
	fetcher     ProfileFetcher
	users       domain.UserRepository
	tokens      domain.TokenRepository
	outbox      outbox.Repository
	uow         sharedApplication.UnitOfWork
	tokenTTL    time.Duration
	now         func() time.Time
}

// NewOAuthService creates an OAuthService for one provider.
func NewOAuthService(
	provider string,
	clientID string,
	clientSecret string,
	authURL string,
	tokenURL string,
	userInfoURL string,
	redirectURL string,
	scopes []string,
	users domain.UserRepository,
	tokens domain.TokenRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	tokenTTL time.Duration,
) (*OAuthService, error) {
	if provider == "" {
		return nil, errors.New("oauth provider is required")
	}
	if clientID == "" || clientSecret == "" || authURL == "" || tokenURL == "" || redirectURL == "" {
		return nil, errors.New("oauth configuration is incomplete")
	}

	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
		RedirectURL: redirectURL,
		Scopes:      scopes,
	}

	return &OAuthService{
		oauthConfig: cfg,
		provider:    provider,
		fetcher:     &httpProfileFetcher{config: cfg, userInfoURL: userInfoURL},
		users:       users,
		tokens:      tokens,
		outbox:      outboxRepo,
		uow:         uow,
		tokenTTL:    tokenTTL,
		now:         time.Now,
	}, nil
}

// AuthURL returns the provider authorization URL for the given state.
func (s *OAuthService) AuthURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// HandleCallback exchanges the authorization code, loads the profile,
// and signs the user in, creating the account on first sign-in.
func (s *OAuthService) HandleCallback(ctx context.Context, code string) (*AuthResult, error) {
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	profile, err := s.fetcher.Fetch(ctx, token)
	if err != nil {
		return nil, err
	}

	email, err := domain.NewEmail(profile.Email)
	if err != nil {
		return nil, err
	}
	name, err := domain.NewName(profile.Name)
	if err != nil {
		// Some providers omit the display name.
		name, err = domain.NewName(email.String())
		if err != nil {
			return nil, err
		}
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		user = domain.NewOAuthUser(email, name, s.provider, s.now())
		err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
			if err := s.users.Save(txCtx, user); err != nil {
				return err
			}
			return outbox.StageEvents(txCtx, s.outbox, user)
		})
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		// Existing password accounts may also sign in with the provider,
		// which verifies the address as a side effect.
		if !user.IsVerified() {
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
		}
	}

	apiToken, err := domain.NewToken(user.ID(), domain.TokenKindAPI, s.tokenTTL, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Save(ctx, apiToken); err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: apiToken.Value}, nil
}
