// ===============================
// internal/services/firebase.go - Firebase Admin Verification
// ===============================

package services

import (
	"context"
	"fmt"

	"dramafeed/internal/config"
	"dramafeed/internal/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// AdminClaim is the custom claim that marks a Firebase user as a catalog admin
const AdminClaim = "admin"

// TokenVerifier checks a Firebase ID token
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type FirebaseService struct {
	verifier TokenVerifier
}

// NewFirebaseService creates and initializes a new Firebase service
func NewFirebaseService(ctx context.Context, cfg *config.Config) (*FirebaseService, error) {
	var opts []option.ClientOption
	if cfg.FirebaseCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentials))
	}

	firebaseApp, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID: cfg.FirebaseProjectID,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase Auth: %w", err)
	}

	return NewFirebaseServiceWithVerifier(authClient), nil
}

// NewFirebaseServiceWithVerifier wraps an existing verifier
func NewFirebaseServiceWithVerifier(v TokenVerifier) *FirebaseService {
	return &FirebaseService{verifier: v}
}

// VerifyAdmin accepts only tokens carrying admin=true; it returns the uid.
func (fs *FirebaseService) VerifyAdmin(ctx context.Context, idToken string) (string, error) {
	token, err := fs.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", models.ErrUnauthorized
	}
	if isAdmin, _ := token.Claims[AdminClaim].(bool); !isAdmin {
		return "", models.ErrUnauthorized
	}
	return token.UID, nil
}
