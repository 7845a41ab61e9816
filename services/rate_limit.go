package services

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/sidequest-rpg/sidequest_api/dto"
	"github.com/sidequest-rpg/sidequest_api/shared"
	log "github.com/sirupsen/logrus"
)

const (
	RateLimitProofSubmit   = "proof_submit"
	RateLimitQuestGenerate = "quest_generate"
	RateLimitQuestReroll   = "quest_reroll"
	RateLimitAPIGeneral    = "api_general"
)

type counterStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type RateLimitService struct {
	appContext.DefaultService

	configs map[string]*RateLimitConfig
	mutex   sync.RWMutex

	store counterStore
	now   func() time.Time
}

// RateLimitConfig represents rate limiting configuration
type RateLimitConfig struct {
	EndpointType string
	MaxRequests  int
	WindowSize   time.Duration
	Message      string
	IsActive     bool
}

const RATE_LIMIT_SVC = "rate_limit_svc"

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

func (svc *RateLimitService) Configure(ctx *appContext.Context) error {
	svc.initDefaultConfigs()
	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	svc.store = svc.Service(REDIS_SVC).(*RedisService)
	svc.now = time.Now
	return nil
}

// NewRateLimitService builds a limiter over store with the default limits.
func NewRateLimitService(store counterStore) *RateLimitService {
	svc := &RateLimitService{store: store, now: time.Now}
	svc.initDefaultConfigs()
	return svc
}

func (svc *RateLimitService) initDefaultConfigs() {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	svc.configs = map[string]*RateLimitConfig{
		RateLimitProofSubmit: {
			EndpointType: RateLimitProofSubmit,
			MaxRequests:  20,
			WindowSize:   time.Hour,
			Message:      "Too many proof submissions. Please try again later.",
			IsActive:     true,
		},
		RateLimitQuestGenerate: {
			EndpointType: RateLimitQuestGenerate,
			MaxRequests:  10,
			WindowSize:   time.Hour,
			Message:      "Too many quest generation requests. Please try again later.",
			IsActive:     true,
		},
		RateLimitQuestReroll: {
			EndpointType: RateLimitQuestReroll,
			MaxRequests:  10,
			WindowSize:   time.Hour,
			Message:      "Too many rerolls. Please try again later.",
			IsActive:     true,
		},
		RateLimitAPIGeneral: {
			EndpointType: RateLimitAPIGeneral,
			MaxRequests:  1000,
			WindowSize:   time.Hour,
			Message:      "Too many requests. Please slow down.",
			IsActive:     true,
		},
	}
}

// SetLimit overrides the limit for an endpoint type.
func (svc *RateLimitService) SetLimit(endpointType string, maxRequests int, window time.Duration) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	if config, exists := svc.configs[endpointType]; exists {
		config.MaxRequests = maxRequests
		config.WindowSize = window
	}
}

func (svc *RateLimitService) IsAllowed(ctx context.Context, identifier, endpointType string) (bool, *dto.RateLimitInfo, error) {
	svc.mutex.RLock()
	config, exists := svc.configs[endpointType]
	svc.mutex.RUnlock()

	if !exists || !config.IsActive {
		return true, &dto.RateLimitInfo{Allowed: true, Remaining: -1}, nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", endpointType, identifier)
	count, ttl, err := svc.store.IncrementWindow(ctx, key, config.WindowSize)
	if err != nil {
		return false, nil, err
	}

	resetTime := svc.now().Add(ttl)
	remaining := config.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	info := &dto.RateLimitInfo{
		Allowed:   int(count) <= config.MaxRequests,
		Limit:     config.MaxRequests,
		Remaining: remaining,
		ResetTime: &resetTime,
	}
	return info.Allowed, info, nil
}

// IPRateLimit applies general rate limiting by IP address
func (svc *RateLimitService) IPRateLimit() fiber.Handler {
	return svc.limit(RateLimitAPIGeneral, getClientIP)
}

// UserBasedRateLimit applies rate limiting based on authenticated user
func (svc *RateLimitService) UserBasedRateLimit(endpointType string) fiber.Handler {
	return svc.limit(endpointType, func(c *fiber.Ctx) string {
		if userID := shared.CurrentUserID(c); userID != "" {
			return userID
		}
		return getClientIP(c)
	})
}

func (svc *RateLimitService) limit(endpointType string, identify func(*fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := identify(c)

		allowed, info, err := svc.IsAllowed(c.UserContext(), identifier, endpointType)
		if err != nil {
			// Fail open so a cache outage does not take the API down.
			log.WithError(err).WithFields(log.Fields{
				"endpoint_type": endpointType,
				"identifier":    identifier,
			}).Warn("Rate limit check failed")
			return c.Next()
		}

		svc.addRateLimitHeaders(c, info)

		if !allowed {
			return svc.handleRateLimitExceeded(endpointType, info)
		}

		return c.Next()
	}
}

func (svc *RateLimitService) addRateLimitHeaders(c *fiber.Ctx, info *dto.RateLimitInfo) {
	if info == nil || info.Remaining < 0 {
		return
	}

	c.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))

	if info.ResetTime != nil {
		c.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
		if !info.Allowed {
			retryAfter := int(info.ResetTime.Sub(svc.now()).Seconds())
			if retryAfter > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			}
		}
	}
}

func (svc *RateLimitService) handleRateLimitExceeded(endpointType string, info *dto.RateLimitInfo) error {
	svc.mutex.RLock()
	message := "Too many requests. Please try again later."
	if config, ok := svc.configs[endpointType]; ok && config.Message != "" {
		message = config.Message
	}
	svc.mutex.RUnlock()

	data := map[string]interface{}{
		"error": "Rate limit exceeded",
	}
	if info.ResetTime != nil {
		data["reset_time"] = info.ResetTime.Unix()
	}

	return shared.NewTooManyRequestsError(message, data)
}

func getClientIP(c *fiber.Ctx) string {
	// Forwarded headers first, for load balancers and proxies
	if forwarded := c.Get(fiber.HeaderXForwardedFor); forwarded != "" {
		ip := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if ip != "" {
			return ip
		}
	}

	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	if cfIP := c.Get("CF-Connecting-IP"); cfIP != "" {
		return cfIP
	}

	ip, _, err := net.SplitHostPort(c.Context().RemoteAddr().String())
	if err != nil {
		return c.Context().RemoteAddr().String()
	}

	return ip
}
