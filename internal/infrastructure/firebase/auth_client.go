package firebase

import (
	"context"
	"time"

	"firebase.google.com/go/v4/auth"

	"chatsync/pkg/errors"
)

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// CreateUser registers an email/password account and returns its uid.
func (f *FirebaseAuthClient) CreateUser(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)

	user, err := f.client.CreateUser(ctx, params)
	if err != nil {
		return "", mapAuthError(err)
	}

	return user.UID, nil
}

func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (string, time.Time, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", time.Time{}, errors.Unauthorized("Invalid or expired token", err)
	}

	return result.UID, time.Unix(result.Expires, 0), nil
}

// GenerateToken mints a custom token that clients exchange for an ID token.
func (f *FirebaseAuthClient) GenerateToken(ctx context.Context, uid string) (string, error) {
	token, err := f.client.CustomToken(ctx, uid)
	if err != nil {
		return "", errors.Internal("Failed to generate token", err)
	}

	return token, nil
}

func mapAuthError(err error) error {
	switch {
	case auth.IsEmailAlreadyExists(err):
		return errors.Conflict("Email already in use")
	case auth.IsInvalidEmail(err):
		return errors.BadRequest("Invalid email address", err)
	default:
		return errors.Internal("Failed to create user", err)
	}
}
