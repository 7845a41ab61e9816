package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sidequest-rpg/sidequest_api/dto"
)

type JWTConfig struct {
	Secret        string        `env:"JWT_SECRET,required"`
	Issuer        string        `env:"JWT_ISSUER"`
	Audience      string        `env:"JWT_AUDIENCE" envDefault:"authenticated"`
	TokenDuration time.Duration `env:"JWT_TOKEN_DURATION" envDefault:"24h"`
}

// JWTService verifies the HS256 access tokens issued by the auth provider.
// IssueToken exists for local development and seeding.
type JWTService struct {
	context.DefaultService

	cfg JWTConfig
}

// CustomClaims mirrors the provider's access token: sub is the user id.
type CustomClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

const JWT_SVC = "jwt_svc"

func (svc JWTService) Id() string {
	return JWT_SVC
}

func (svc *JWTService) Configure(ctx *context.Context) error {
	if err := env.Parse(&svc.cfg); err != nil {
		return fmt.Errorf("jwt config: %w", err)
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *JWTService) Start() error {
	return nil
}

// NewJWTService builds a verifier outside the service container.
func NewJWTService(cfg JWTConfig) *JWTService {
	return &JWTService{cfg: cfg}
}

func (svc *JWTService) VerifyJWTToken(jwtToken string) (*dto.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if svc.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(svc.cfg.Issuer))
	}
	if svc.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(svc.cfg.Audience))
	}

	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(jwtToken, claims, svc.getJWTKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return &dto.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

func (svc *JWTService) getJWTKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	return []byte(svc.cfg.Secret), nil
}

func (svc *JWTService) IssueToken(userID, email string) (*dto.TokenResponse, error) {
	now := time.Now()
	claims := &CustomClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(svc.cfg.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    svc.cfg.Issuer,
		},
	}
	if svc.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{svc.cfg.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(svc.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %v", err)
	}

	return &dto.TokenResponse{
		AccessToken: tokenString,
		ExpiresIn:   int64(svc.cfg.TokenDuration.Seconds()),
	}, nil
}

func (svc *JWTService) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		return "", errors.New("invalid authorization header format")
	}
	return token, nil
}
