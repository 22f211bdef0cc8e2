package identity

import (
	"context"
	"fmt"
	"net/http"

	"keepalive/config"
)

// Identity is the caller as vouched for by the identity provider.
type Identity struct {
	UserID string
	Email  string
}

// Verifier exchanges an inbound token for a stable user id.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (Identity, error)
}

func NewVerifier(authCfg *config.AuthConfig, client *http.Client) (Verifier, error) {
	switch authCfg.Provider {
	case "google":
		return NewGoogleVerifier(authCfg.TokenInfoURL, client), nil
	case "jwt":
		return NewTokenService(authCfg), nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", authCfg.Provider)
	}
}
