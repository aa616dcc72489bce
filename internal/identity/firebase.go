package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// Firebase authenticates against Firebase Authentication. Password sign-in
// goes through the Identity Toolkit REST API, account management through the
// Admin SDK.
type Firebase struct {
	*Broadcaster
	toolkit *identitytoolkit.Service
	auth    *auth.Client
	ttl     time.Duration
}

// Firebase session cookies must live between 5 minutes and 2 weeks
const (
	minSessionCookie = 5 * time.Minute
	maxSessionCookie = 14 * 24 * time.Hour
)

func sessionLifetime(ttl time.Duration) time.Duration {
	switch {
	case ttl <= 0:
		return 7 * 24 * time.Hour
	case ttl < minSessionCookie:
		return minSessionCookie
	case ttl > maxSessionCookie:
		return maxSessionCookie
	}
	return ttl
}

// NewFirebase signs users in for ttl, clamped to the session cookie limits.
// The one-hour ID token from password sign-in is exchanged for a session
// cookie, so dashboard sessions outlive it.
func NewFirebase(ctx context.Context, app *firebase.App, apiKey string, ttl time.Duration) (*Firebase, error) {
	if apiKey == "" {
		return nil, errors.New("firebase web API key is required for password sign-in")
	}
	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("error creating identity toolkit client: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting auth client: %w", err)
	}
	return &Firebase{
		Broadcaster: NewBroadcaster(),
		toolkit:     toolkit,
		auth:        client,
		ttl:         sessionLifetime(ttl),
	}, nil
}

// credentialError maps Identity Toolkit 400 responses such as
// EMAIL_NOT_FOUND or INVALID_PASSWORD to ErrInvalidCredentials
func credentialError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == 400 {
		msg := strings.ToUpper(gerr.Message)
		if strings.Contains(msg, "EMAIL_NOT_FOUND") ||
			strings.Contains(msg, "INVALID_PASSWORD") ||
			strings.Contains(msg, "INVALID_LOGIN_CREDENTIALS") ||
			strings.Contains(msg, "USER_DISABLED") {
			return ErrInvalidCredentials
		}
	}
	return err
}

func (f *Firebase) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	resp, err := f.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		log.Printf("❌ Firebase sign-in failed for %s: %v", email, err)
		return nil, credentialError(err)
	}

	cookie, err := f.auth.SessionCookie(ctx, resp.IdToken, f.ttl)
	if err != nil {
		return nil, fmt.Errorf("error creating session cookie: %w", err)
	}

	id := &Identity{
		UID:       resp.LocalId,
		Email:     resp.Email,
		Token:     cookie,
		ExpiresAt: time.Now().Add(f.ttl),
	}
	f.Track(id)
	return id, nil
}

func (f *Firebase) Register(ctx context.Context, email, password, displayName string) (*Identity, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)
	record, err := f.auth.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	log.Printf("✅ Firebase account created: %s (%s)", email, record.UID)

	return f.SignIn(ctx, email, password)
}

// SignOut ends the session locally. Other sessions of the user keep their
// cookies; Revoke ends those.
func (f *Firebase) SignOut(ctx context.Context, id *Identity) error {
	f.SignedOut(id)
	return nil
}

func (f *Firebase) Revoke(ctx context.Context, uid string) error {
	if err := f.auth.RevokeRefreshTokens(ctx, uid); err != nil {
		return fmt.Errorf("error revoking tokens for %s: %w", uid, err)
	}
	f.RevokeLocal(uid)
	return nil
}
