package services

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/steve-kings/project-management-system/logging"
	"github.com/steve-kings/project-management-system/models"
	"github.com/steve-kings/project-management-system/repositories"
	"github.com/steve-kings/project-management-system/utils"
)

type AuthService struct {
	users    UserStore
	verifier CredentialVerifier
	tokens   SessionTokens
}

func NewAuthService(users UserStore, verifier CredentialVerifier, tokens SessionTokens) *AuthService {
	return &AuthService{users: users, verifier: verifier, tokens: tokens}
}

// SignInWithGoogle verifies the credential, finds or creates the matching
// user and issues a session token for it. An existing account with the same
// email is linked to the Google identity only when Google has verified the
// address.
func (s *AuthService) SignInWithGoogle(ctx context.Context, credential string) (*models.User, string, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, "", newError(ErrValidation, "Google credential is required")
	}

	identity, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		var ce *utils.CredentialError
		if errors.As(err, &ce) {
			logging.Logger.Warnf("Event ID: GOOGLE_CREDENTIAL_REJECTED, Description: %s", ce.Reason)
			return nil, "", newError(ErrUnauthorized, "%s", ce.Reason)
		}
		return nil, "", err
	}

	user, err := s.resolveUser(ctx, identity)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.GenerateToken(user.ID.Hex())
	if err != nil {
		return nil, "", err
	}
	logging.Logger.WithField("user", user.ID.Hex()).Info("Event ID: USER_SIGNED_IN, Description: User signed in with Google")
	return user, token, nil
}

func (s *AuthService) resolveUser(ctx context.Context, identity *utils.GoogleIdentity) (*models.User, error) {
	user, err := s.users.FindByGoogleID(ctx, identity.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fromStore(err, "User")
	}

	email := strings.ToLower(strings.TrimSpace(identity.Email))
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !identity.EmailVerified {
			logging.Logger.WithField("user", existing.ID.Hex()).
				Warn("Event ID: USER_GOOGLE_LINK_REFUSED, Description: Google email is not verified")
			return nil, newError(ErrUnauthorized, "Google email is not verified")
		}
		linked, err := s.users.LinkGoogle(ctx, existing.ID, identity.Subject, identity.Picture)
		if err != nil {
			return nil, fromStore(err, "User")
		}
		logging.Logger.WithField("user", linked.ID.Hex()).Info("Event ID: USER_GOOGLE_LINKED, Description: Linked Google account to existing user")
		return linked, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, fromStore(err, "User")
	}

	user = &models.User{
		GoogleID: identity.Subject,
		Name:     identity.Name,
		Email:    email,
		Image:    identity.Picture,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fromStore(err, "User")
	}
	logging.Logger.WithField("user", user.ID.Hex()).Info("Event ID: USER_CREATED, Description: Created user from Google sign-in")
	return user, nil
}

// Authenticate resolves a session token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, newError(ErrUnauthorized, "Not authorized, no token")
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, newError(ErrUnauthorized, "Not authorized, token failed")
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, newError(ErrUnauthorized, "Not authorized, token failed")
	}

	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(ErrUnauthorized, "Not authorized, user not found")
	}
	if err != nil {
		return nil, fromStore(err, "User")
	}
	return user, nil
}
