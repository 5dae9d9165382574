package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sony/gobreaker"

	"github.com/steve-kings/project-management-system/logging"
)

// CredentialError is returned when a Google credential is rejected.
// Reason is safe to show to the caller.
type CredentialError struct {
	Reason string
}

func (e *CredentialError) Error() string {
	return e.Reason
}

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// GoogleIdentity is the verified subset of a Google ID token.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

type googleClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// tokenInfo mirrors the tokeninfo endpoint response; numbers arrive as strings.
type tokenInfo struct {
	Iss           string `json:"iss"`
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Exp           string `json:"exp"`
}

// GoogleVerifier checks Google Sign-In ID tokens. Claims are checked locally
// first, then the tokeninfo endpoint confirms the signature.
type GoogleVerifier struct {
	clientID     string
	tokenInfoURL string
	client       *http.Client
	breaker      *gobreaker.CircuitBreaker
	now          func() time.Time
}

func NewGoogleVerifier(clientID, tokenInfoURL string, client *http.Client, breaker *gobreaker.CircuitBreaker) *GoogleVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoogleVerifier{
		clientID:     clientID,
		tokenInfoURL: tokenInfoURL,
		client:       client,
		breaker:      breaker,
		now:          time.Now,
	}
}

func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (*GoogleIdentity, error) {
	claims := &googleClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return nil, &CredentialError{Reason: "Malformed Google credential"}
	}
	if err := v.checkClaims(claims.Issuer, claims.Audience, claims.ExpiresAt); err != nil {
		return nil, err
	}

	info, err := v.fetchTokenInfo(ctx, credential)
	if err != nil {
		return nil, err
	}
	if info.Sub != claims.Subject {
		return nil, &CredentialError{Reason: "Invalid Google credential"}
	}

	return &GoogleIdentity{
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified == "true",
		Name:          info.Name,
		Picture:       info.Picture,
	}, nil
}

func (v *GoogleVerifier) checkClaims(iss string, aud jwt.ClaimStrings, exp *jwt.NumericDate) error {
	if !googleIssuers[iss] {
		return &CredentialError{Reason: "Invalid token issuer"}
	}
	if exp == nil || exp.Time.Before(v.now()) {
		return &CredentialError{Reason: "Token expired"}
	}
	for _, a := range aud {
		if a == v.clientID {
			return nil
		}
	}
	return &CredentialError{Reason: "Invalid token audience"}
}

func (v *GoogleVerifier) fetchTokenInfo(ctx context.Context, credential string) (*tokenInfo, error) {
	endpoint := v.tokenInfoURL + "?" + url.Values{"id_token": {credential}}.Encode()

	result, err := v.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := v.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		// 4xx means the token was rejected, which is not a failure of the endpoint.
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("tokeninfo returned status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, nil
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		var info tokenInfo
		if err := json.Unmarshal(body, &info); err != nil {
			return nil, err
		}
		return &info, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Logger.Warnf("Event ID: GOOGLE_VERIFY_UNAVAILABLE, Description: Circuit breaker rejected tokeninfo call: %v", err)
		} else {
			logging.Logger.Errorf("Event ID: GOOGLE_VERIFY_FAILED, Description: tokeninfo call failed: %v", err)
		}
		return nil, fmt.Errorf("google token verification unavailable: %w", err)
	}

	info, _ := result.(*tokenInfo)
	if info == nil {
		return nil, &CredentialError{Reason: "Invalid Google credential"}
	}

	exp, err := strconv.ParseInt(info.Exp, 10, 64)
	if err != nil {
		return nil, &CredentialError{Reason: "Invalid Google credential"}
	}
	if err := v.checkClaims(info.Iss, jwt.ClaimStrings{info.Aud}, jwt.NewNumericDate(time.Unix(exp, 0))); err != nil {
		return nil, err
	}
	return info, nil
}
