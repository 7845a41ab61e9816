package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/caarlos0/env/v11"
	"github.com/sidequest-rpg/sidequest_api/config"
	"github.com/sidequest-rpg/sidequest_api/dto"
	"github.com/sidequest-rpg/sidequest_api/services/repositories"
	"github.com/sidequest-rpg/sidequest_api/shared"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SubscriptionConfig struct {
	WebhookSecret string `env:"SUBSCRIPTION_WEBHOOK_SECRET"`
}

// SubscriptionService mirrors Hero Pass state pushed by the billing provider.
type SubscriptionService struct {
	appContext.DefaultService

	cfg      SubscriptionConfig
	profiles *repositories.ProfileRepository
	game     *config.Game
	cards    cardInvalidator
	now      func() time.Time
}

type cardInvalidator interface {
	InvalidateCard(userID string)
}

const SUBSCRIPTION_SVC = "subscription_svc"

func (svc SubscriptionService) Id() string {
	return SUBSCRIPTION_SVC
}

func (svc *SubscriptionService) Configure(ctx *appContext.Context) error {
	if err := env.Parse(&svc.cfg); err != nil {
		return fmt.Errorf("subscription config: %w", err)
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *SubscriptionService) Start() error {
	svc.profiles = repositories.NewProfileRepository(svc.Service(DATABASE_SVC).(*DatabaseService).Db())
	svc.game = svc.Service(GAME_SVC).(*GameService).Config()
	svc.cards = svc.Service(PROFILE_SVC).(*ProfileService)
	svc.now = time.Now

	if svc.cfg.WebhookSecret == "" {
		log.Warn("SUBSCRIPTION_WEBHOOK_SECRET not set, subscription sync is disabled")
	}
	return nil
}

func NewSubscriptionService(db *gorm.DB, game *config.Game, cards cardInvalidator, secret string) *SubscriptionService {
	return &SubscriptionService{
		cfg:      SubscriptionConfig{WebhookSecret: secret},
		profiles: repositories.NewProfileRepository(db),
		game:     game,
		cards:    cards,
		now:      time.Now,
	}
}

func (svc *SubscriptionService) Status(ctx context.Context, userID string) (*dto.SubscriptionStatus, error) {
	profile, err := svc.profiles.GetProfile(userID)
	if err != nil {
		return nil, HandleError(err)
	}

	status := &dto.SubscriptionStatus{
		Subscribed:   profile.HeroPassActive(svc.now()),
		PriceMonthly: svc.game.Monetization.HeroPriceMonthly,
		PriceYearly:  svc.game.Monetization.HeroPriceYearly,
	}
	if status.Subscribed {
		status.ProductID = profile.SubscriptionProductID
		status.SubscriptionEnd = profile.SubscriptionEnd
	}
	return status, nil
}

// Sync applies a billing webhook. The caller must present the shared secret.
func (svc *SubscriptionService) Sync(ctx context.Context, secret string, req dto.SyncSubscriptionRequest) (*dto.SubscriptionStatus, error) {
	if svc.cfg.WebhookSecret == "" ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(svc.cfg.WebhookSecret)) != 1 {
		return nil, shared.NewUnauthorizedError(nil, "Invalid webhook secret")
	}
	if err := dto.GetValidator().Struct(req); err != nil {
		return nil, shared.NewBadRequestError(err, "Validation failed").WithData(dto.FormatValidationErrors(err))
	}

	productID, end := req.ProductID, req.SubscriptionEnd
	if !req.Subscribed {
		productID, end = "", nil
	}
	if err := svc.profiles.UpdateSubscription(req.UserID, req.Subscribed, productID, end); err != nil {
		return nil, HandleError(err)
	}
	svc.cards.InvalidateCard(req.UserID)

	log.WithFields(log.Fields{
		"user_id":    req.UserID,
		"subscribed": req.Subscribed,
		"product_id": productID,
	}).Info("Hero Pass synced")

	return svc.Status(ctx, req.UserID)
}
