package service

import (
	"context"
	"errors"
	"time"

	"cierrecaja/internal/config"
	"cierrecaja/internal/dto"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenAcceso  = "access"
	TokenRefresh = "refresh"
)

// AuthService issues tokens for anonymous operators. There are no accounts:
// an identity is a random id that survives as long as its refresh token.
type AuthService interface {
	Anonimo(ctx context.Context) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
}

type authService struct {
	cfg *config.Config
	now func() time.Time
}

func NewAuthService(cfg *config.Config) AuthService {
	return &authService{cfg: cfg, now: time.Now}
}

func (s *authService) Anonimo(_ context.Context) (*dto.TokenResponse, error) {
	return s.emitir(uuid.NewString())
}

func (s *authService) Refresh(_ context.Context, refreshToken string) (*dto.TokenResponse, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("refresh token invalido o expirado")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["typ"] != TokenRefresh {
		return nil, errors.New("refresh token invalido o expirado")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("token mal formado")
	}
	if _, err := uuid.Parse(sub); err != nil {
		return nil, errors.New("token mal formado")
	}
	return s.emitir(sub)
}

func (s *authService) emitir(usuarioID string) (*dto.TokenResponse, error) {
	access, err := s.generateToken(usuarioID, TokenAcceso, s.cfg.JWTExpiration())
	if err != nil {
		return nil, err
	}
	refresh, err := s.generateToken(usuarioID, TokenRefresh, s.cfg.JWTRefresh())
	if err != nil {
		return nil, err
	}
	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		UsuarioID:    usuarioID,
	}, nil
}

func (s *authService) generateToken(usuarioID, typ string, duration time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":     usuarioID,
		"typ":     typ,
		"anonimo": true,
		"exp":     now.Add(duration).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
