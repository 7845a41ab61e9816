package services

import (
	"errors"
	"fmt"

	"github.com/alphabatem/common/context"
	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/sidequest-rpg/sidequest_api/docs"
	"github.com/sidequest-rpg/sidequest_api/services/handlers"
	"github.com/sidequest-rpg/sidequest_api/shared"
	log "github.com/sirupsen/logrus"
)

type HttpConfig struct {
	Port        int    `env:"HTTP_PORT" envDefault:"8000"`
	BodyLimit   int    `env:"HTTP_BODY_LIMIT" envDefault:"12582912"`
	CORSOrigins string `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
}

type HttpService struct {
	context.DefaultService

	cfg HttpConfig
	app *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if err := env.Parse(&svc.cfg); err != nil {
		return fmt.Errorf("http config: %w", err)
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	game := svc.Service(GAME_SVC).(*GameService).Config()
	auth := svc.Service(AUTH_MIDDLEWARE_SVC).(*AuthMiddleware)
	limits := svc.Service(RATE_LIMIT_SVC).(*RateLimitService)
	monitoring := svc.Service(MONITORING_SVC).(*MonitoringService)
	profiles := svc.Service(PROFILE_SVC).(*ProfileService)

	svc.app = NewApp(svc.cfg)
	svc.app.Use(MonitoringMiddleware(monitoring))
	svc.app.Use(limits.IPRateLimit())

	RegisterRoutes(svc.app, Routes{
		RequiredAuth: auth.RequiredAuth(),
		OptionalAuth: auth.OptionalAuth(),
		RateLimit:    limits.UserBasedRateLimit,

		Profile:      handlers.NewProfileHandler(profiles),
		Leaderboard:  handlers.NewLeaderboardHandler(profiles),
		Quest:        handlers.NewQuestHandler(svc.Service(QUEST_SVC).(*QuestService), game.Verification.MaxProofBytes),
		Feed:         handlers.NewFeedHandler(svc.Service(FEED_SVC).(*FeedService)),
		Subscription: handlers.NewSubscriptionHandler(svc.Service(SUBSCRIPTION_SVC).(*SubscriptionService)),
	})

	log.WithField("port", svc.cfg.Port).Info("HTTP server starting")
	return svc.app.Listen(fmt.Sprintf(":%v", svc.cfg.Port))
}

func (svc *HttpService) Shutdown() {
	if svc.app != nil {
		_ = svc.app.Shutdown()
	}
}

// NewApp builds the fiber app with the shared JSON codec, error handler and
// global middleware. Routes are added by RegisterRoutes.
func NewApp(cfg HttpConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Sidequest API",
		DisableStartupMessage: true,
		BodyLimit:             cfg.BodyLimit,
		JSONEncoder:           shared.JSONAPI.Marshal,
		JSONDecoder:           shared.JSONAPI.Unmarshal,
		ErrorHandler:          ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	return app
}

// Routes holds the middleware and handlers mounted by RegisterRoutes.
type Routes struct {
	RequiredAuth fiber.Handler
	OptionalAuth fiber.Handler
	RateLimit    func(endpointType string) fiber.Handler

	Profile      *handlers.ProfileHandler
	Leaderboard  *handlers.LeaderboardHandler
	Quest        *handlers.QuestHandler
	Feed         *handlers.FeedHandler
	Subscription *handlers.SubscriptionHandler
}

func RegisterRoutes(app *fiber.App, r Routes) {
	docs.SwaggerInfo.BasePath = "/"

	app.Get("/ping", ping)
	app.Get("/swagger/*", swagger.HandlerDefault)

	v1 := app.Group("/api/v1")
	v1.Get("/ping", ping)

	progression := v1.Group("/progression")
	progression.Get("/levels", handlers.GetLevelTable)
	progression.Get("/classes", r.Profile.ListClasses)

	leaderboard := v1.Group("/leaderboard", r.OptionalAuth)
	leaderboard.Get("/xp", r.Leaderboard.GetXPLeaderboard)
	leaderboard.Get("/streak", r.Leaderboard.GetStreakLeaderboard)

	v1.Post("/subscription/sync", r.Subscription.Sync)

	profile := v1.Group("/profile", r.RequiredAuth)
	profile.Get("/", r.Profile.GetProfile)
	profile.Put("/onboarding", r.Profile.CompleteOnboarding)
	profile.Get("/progress", r.Profile.GetProgress)
	profile.Get("/search", r.Profile.SearchPlayers)
	profile.Get("/:userId", r.Profile.GetPublicProfile)

	quests := v1.Group("/quests", r.RequiredAuth)
	quests.Get("/", r.Quest.ListActiveQuests)
	quests.Get("/today", r.Quest.ListTodayQuests)
	quests.Post("/daily", r.RateLimit(RateLimitQuestGenerate), r.Quest.GenerateDailyQuests)
	quests.Post("/:questId/reroll", r.RateLimit(RateLimitQuestReroll), r.Quest.RerollQuest)
	quests.Post("/:questId/proof", r.RateLimit(RateLimitProofSubmit), r.Quest.SubmitProof)

	feed := v1.Group("/feed", r.RequiredAuth)
	feed.Get("/", r.Feed.GetFeed)
	feed.Post("/posts", r.Feed.CreatePost)
	feed.Delete("/posts/:postId", r.Feed.DeletePost)
	feed.Post("/posts/:postId/like", r.Feed.ToggleLike)

	social := v1.Group("/social", r.RequiredAuth)
	social.Get("/follow/:userId", r.Feed.IsFollowing)
	social.Post("/follow/:userId", r.Feed.ToggleFollow)

	v1.Get("/subscription", r.RequiredAuth, r.Subscription.GetStatus)

	app.Use(func(c *fiber.Ctx) error {
		return shared.NewNotFoundError(nil, "Not Found")
	})
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func ping(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "max-age=10")

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", "pong")
}

// ErrorHandler renders every error returned by a handler in the response
// envelope. Errors without a status are classified by HandleError.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	appErr, _ := shared.GetAppError(HandleError(err))
	return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, nil)
}
