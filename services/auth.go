package services

import (
	"context"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/sidequest-rpg/sidequest_api/dto"
	"github.com/sidequest-rpg/sidequest_api/shared"
	log "github.com/sirupsen/logrus"
)

type tokenVerifier interface {
	ExtractTokenFromHeader(authHeader string) (string, error)
	VerifyJWTToken(token string) (*dto.Identity, error)
}

type profileProvisioner interface {
	EnsureProfile(ctx context.Context, userID, email string) error
}

// AuthMiddleware authenticates bearer tokens and provisions a profile for
// first-time callers.
type AuthMiddleware struct {
	appContext.DefaultService

	verifier    tokenVerifier
	provisioner profileProvisioner
}

const AUTH_MIDDLEWARE_SVC = "auth"

func (svc AuthMiddleware) Id() string {
	return AUTH_MIDDLEWARE_SVC
}

func (svc *AuthMiddleware) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *AuthMiddleware) Start() error {
	svc.verifier = svc.Service(JWT_SVC).(*JWTService)
	svc.provisioner = svc.Service(PROFILE_SVC).(*ProfileService)
	return nil
}

func (svc *AuthMiddleware) authenticate(c *fiber.Ctx) (*dto.Identity, error) {
	token, err := svc.verifier.ExtractTokenFromHeader(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return nil, shared.NewUnauthorizedError(err, "Unauthorized").WithData(err.Error())
	}

	identity, err := svc.verifier.VerifyJWTToken(token)
	if err != nil {
		return nil, shared.NewUnauthorizedError(err, "Unauthorized").WithData("Invalid JWT token")
	}

	if err := svc.provisioner.EnsureProfile(c.UserContext(), identity.UserID, identity.Email); err != nil {
		log.WithError(err).WithField("user_id", identity.UserID).Error("Failed to provision profile")
		return nil, err
	}
	return identity, nil
}

func (svc *AuthMiddleware) RequiredAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := svc.authenticate(c)
		if err != nil {
			return err
		}

		c.Locals(shared.UserID, identity.UserID)
		c.Locals(shared.UserEmail, identity.Email)
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and lets
// anonymous requests through otherwise.
func (svc *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}

		identity, err := svc.authenticate(c)
		if err == nil {
			c.Locals(shared.UserID, identity.UserID)
			c.Locals(shared.UserEmail, identity.Email)
		}
		return c.Next()
	}
}
