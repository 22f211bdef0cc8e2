package identity

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"keepalive/pkg/apperror"
)

type tokenInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
}

// GoogleVerifier checks OAuth access tokens against Google's tokeninfo
// endpoint. The verified email is the user id.
type GoogleVerifier struct {
	client       *http.Client
	tokenInfoURL string
}

func NewGoogleVerifier(tokenInfoURL string, client *http.Client) *GoogleVerifier {
	return &GoogleVerifier{
		client:       client,
		tokenInfoURL: tokenInfoURL,
	}
}

func (g *GoogleVerifier) VerifyToken(ctx context.Context, token string) (Identity, error) {
	const op = "identity.google.verify_token"

	endpoint, err := url.Parse(g.tokenInfoURL)
	if err != nil {
		return Identity{}, apperror.New(apperror.Internal, op, err)
	}
	q := endpoint.Query()
	q.Set("access_token", token)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Identity{}, unauthorised(op, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Identity{}, unauthorised(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return Identity{}, unauthorised(op, nil)
	}

	var info tokenInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&info); err != nil {
		return Identity{}, unauthorised(op, err)
	}
	if info.Email == "" || info.EmailVerified != "true" {
		return Identity{}, unauthorised(op, nil)
	}

	return Identity{UserID: info.Email, Email: info.Email}, nil
}

func unauthorised(op string, err error) error {
	return &apperror.Error{
		Kind:    apperror.Unauthorised,
		Op:      op,
		Err:     err,
		Message: "Unauthorized",
	}
}
