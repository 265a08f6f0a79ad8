package usecase

import (
	authdomain "mailboard-backend/internal/auth/domain"
	authdto "mailboard-backend/internal/auth/dto"
)

// AuthUsecase defines the authentication operations
type AuthUsecase interface {
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	// GoogleSignIn exchanges an OAuth2 authorization code for Google tokens,
	// signs the user in (creating the account on first sign-in) and stores
	// the Gmail credentials for the sync engine.
	GoogleSignIn(code string) (*authdto.TokenResponse, error)
	RefreshToken(refreshToken string) (*authdto.TokenResponse, error)
	Logout(refreshToken string) error
	ValidateToken(tokenString string) (*authdomain.User, error)
	// SetSignInHook wires a callback invoked after each successful Google
	// sign-in, outside the request path.
	SetSignInHook(hook func(userID string))
}
