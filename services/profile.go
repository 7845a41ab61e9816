package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"
	"github.com/sidequest-rpg/sidequest_api/config"
	"github.com/sidequest-rpg/sidequest_api/dto"
	"github.com/sidequest-rpg/sidequest_api/model"
	"github.com/sidequest-rpg/sidequest_api/progression"
	"github.com/sidequest-rpg/sidequest_api/services/repositories"
	"github.com/sidequest-rpg/sidequest_api/shared"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	LeaderboardXP     = "xp"
	LeaderboardStreak = "streak"

	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 100
	leaderboardCacheTTL     = 30 * time.Second

	searchCandidatePool = 500
	maxSearchResults    = 20

	profileCacheSize = 2048
)

type jsonCache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

type ProfileService struct {
	appContext.DefaultService

	profiles *repositories.ProfileRepository
	quests   *repositories.QuestRepository
	social   *repositories.SocialRepository
	game     *config.Game
	cache    jsonCache

	// known remembers ids already provisioned so auth skips the insert.
	known *lru.Cache
	cards *lru.Cache
	now   func() time.Time
}

const PROFILE_SVC = "profile_svc"

func (svc ProfileService) Id() string {
	return PROFILE_SVC
}

func (svc *ProfileService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *ProfileService) Start() error {
	db := svc.Service(DATABASE_SVC).(*DatabaseService).Db()
	game := svc.Service(GAME_SVC).(*GameService).Config()
	cache := svc.Service(REDIS_SVC).(*RedisService)

	return svc.init(db, game, cache)
}

// NewProfileService builds the service outside the container. cache may be nil.
func NewProfileService(db *gorm.DB, game *config.Game, cache jsonCache) (*ProfileService, error) {
	svc := &ProfileService{}
	if err := svc.init(db, game, cache); err != nil {
		return nil, err
	}
	return svc, nil
}

func (svc *ProfileService) init(db *gorm.DB, game *config.Game, cache jsonCache) (err error) {
	svc.profiles = repositories.NewProfileRepository(db)
	svc.quests = repositories.NewQuestRepository(db)
	svc.social = repositories.NewSocialRepository(db)
	svc.game = game
	svc.cache = cache
	svc.now = func() time.Time { return time.Now().UTC() }

	if svc.known, err = lru.New(profileCacheSize); err != nil {
		return err
	}
	if svc.cards, err = lru.New(profileCacheSize); err != nil {
		return err
	}
	return nil
}

func (svc *ProfileService) EnsureProfile(ctx context.Context, userID, email string) error {
	if _, ok := svc.known.Get(userID); ok {
		return nil
	}

	if _, err := svc.profiles.GetOrCreateProfile(userID, email); err != nil {
		return HandleError(err)
	}
	svc.known.Add(userID, struct{}{})
	return nil
}

func (svc *ProfileService) loadProfile(userID string) (*model.UserProfile, error) {
	profile, err := svc.profiles.GetProfile(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.NewNotFoundError(err, "Profile not found")
	}
	if err != nil {
		return nil, HandleError(err)
	}
	return profile, nil
}

func (svc *ProfileService) GetProfile(ctx context.Context, userID string) (*dto.ProfileResponse, error) {
	profile, err := svc.loadProfile(userID)
	if err != nil {
		return nil, err
	}

	progress, err := svc.progressFor(profile)
	if err != nil {
		return nil, err
	}
	return svc.profileResponse(profile, progress), nil
}

func (svc *ProfileService) GetProgress(ctx context.Context, userID string) (*dto.ProgressResponse, error) {
	profile, err := svc.loadProfile(userID)
	if err != nil {
		return nil, err
	}
	return svc.progressFor(profile)
}

func (svc *ProfileService) progressFor(profile *model.UserProfile) (*dto.ProgressResponse, error) {
	completed, err := svc.quests.CountCompletions(profile.ID)
	if err != nil {
		return nil, HandleError(err)
	}
	progress := BuildProgress(profile, progression.DateOf(svc.now()))
	progress.CompletedQuests = completed
	return &progress, nil
}

// BuildProgress renders stored progression as seen on the given day. A streak
// whose last quest is older than yesterday reads as zero.
func BuildProgress(profile *model.UserProfile, today progression.Date) dto.ProgressResponse {
	p := profile.Progress()
	level := progression.CalculateLevel(p.TotalXP)
	fraction, _ := progression.ProgressFraction(p.TotalXP, level)
	streak := progression.EffectiveStreak(p, today)

	return dto.ProgressResponse{
		Level:         level,
		MaxLevel:      progression.MaxLevel,
		TotalXP:       p.TotalXP,
		LevelProgress: fraction,
		XPToNextLevel: progression.XPToNextLevel(p.TotalXP),
		CurrentStreak: streak,
		LongestStreak: p.LongestStreak,
		StreakBonus:   progression.StreakBonus(streak),
		LastQuestDate: profile.LastQuestDate,
	}
}

func (svc *ProfileService) profileResponse(profile *model.UserProfile, progress *dto.ProgressResponse) *dto.ProfileResponse {
	return &dto.ProfileResponse{
		ID:              profile.ID,
		Email:           profile.Email,
		Username:        profile.Username,
		PlayerClass:     profile.PlayerClass,
		AvatarURL:       profile.AvatarURL,
		Onboarded:       profile.OnboardedAt != nil,
		HasHeroPass:     profile.HeroPassActive(svc.now()),
		SubscriptionEnd: profile.SubscriptionEnd,
		Progress:        *progress,
		CreatedAt:       profile.CreatedAt,
	}
}

func (svc *ProfileService) CompleteOnboarding(ctx context.Context, userID string, req dto.OnboardingRequest) (*dto.ProfileResponse, error) {
	if err := dto.GetValidator().Struct(req); err != nil {
		return nil, shared.NewBadRequestError(err, "Validation failed").WithData(dto.FormatValidationErrors(err))
	}

	taken, err := svc.profiles.UsernameTaken(req.Username, userID)
	if err != nil {
		return nil, HandleError(err)
	}
	if taken {
		return nil, shared.NewConflictError(nil, "Username is already taken")
	}

	class := svc.game.ClassOrDefault(req.PlayerClass)
	if err := svc.profiles.CompleteOnboarding(userID, req.Username, class.Name, svc.now()); err != nil {
		return nil, HandleError(err)
	}

	svc.InvalidateCard(userID)
	log.WithFields(log.Fields{
		"user_id":      userID,
		"player_class": class.Name,
	}).Info("Player onboarded")

	return svc.GetProfile(ctx, userID)
}

func (svc *ProfileService) ListClasses() []dto.PlayerClassResponse {
	classes := make([]dto.PlayerClassResponse, len(svc.game.Classes))
	for i, c := range svc.game.Classes {
		classes[i] = dto.PlayerClassResponse{
			Name:            c.Name,
			Description:     c.Description,
			QuestPreference: c.QuestPreference,
		}
	}
	return classes
}

// cachedCard holds the stored fields behind a public card. Streak and pass
// state depend on the day they are read, so they are derived per request.
type cachedCard struct {
	profile   model.UserProfile
	followers int64
	following int64
}

// GetPublicProfile returns the card other players see. Stored fields are
// served from memory until the profile changes.
func (svc *ProfileService) GetPublicProfile(ctx context.Context, userID string) (*dto.ProfileCard, error) {
	if cached, ok := svc.cards.Get(userID); ok {
		return svc.buildCard(cached.(cachedCard)), nil
	}

	profile, err := svc.loadProfile(userID)
	if err != nil {
		return nil, err
	}
	followers, following, err := svc.social.FollowCounts(userID)
	if err != nil {
		return nil, HandleError(err)
	}

	entry := cachedCard{profile: *profile, followers: followers, following: following}
	svc.cards.Add(userID, entry)
	return svc.buildCard(entry), nil
}

func (svc *ProfileService) buildCard(entry cachedCard) *dto.ProfileCard {
	profile := &entry.profile
	now := svc.now()
	return &dto.ProfileCard{
		ID:            profile.ID,
		Username:      profile.DisplayName(),
		PlayerClass:   profile.PlayerClass,
		AvatarURL:     profile.AvatarURL,
		Level:         profile.Level,
		TotalXP:       profile.TotalXP,
		CurrentStreak: progression.EffectiveStreak(profile.Progress(), progression.DateOf(now)),
		LongestStreak: profile.LongestStreak,
		HasHeroPass:   profile.HeroPassActive(now),
		Followers:     entry.followers,
		Following:     entry.following,
	}
}

// InvalidateCard drops cached public data after the profile changed.
func (svc *ProfileService) InvalidateCard(userID string) {
	svc.cards.Remove(userID)
	if svc.cache != nil {
		if err := svc.cache.Delete(context.Background(), leaderboardKey(LeaderboardXP), leaderboardKey(LeaderboardStreak)); err != nil {
			log.WithError(err).Warn("Failed to drop cached leaderboards")
		}
	}
}

// SearchPlayers fuzzy-matches usernames among recently active players.
func (svc *ProfileService) SearchPlayers(ctx context.Context, query string, limit int) ([]dto.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, shared.NewBadRequestError(nil, "Search query is required")
	}
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}

	candidates, err := svc.profiles.RecentlyActive(searchCandidatePool)
	if err != nil {
		return nil, HandleError(err)
	}

	names := make([]string, len(candidates))
	for i, p := range candidates {
		names[i] = p.DisplayName()
	}

	matches := fuzzy.Find(query, names)
	results := make([]dto.SearchResult, 0, limit)
	for _, m := range matches {
		if len(results) == limit {
			break
		}
		p := candidates[m.Index]
		results = append(results, dto.SearchResult{
			ID:          p.ID,
			Username:    m.Str,
			PlayerClass: p.PlayerClass,
			Level:       p.Level,
			Score:       m.Score,
		})
	}
	return results, nil
}

func leaderboardKey(board string) string {
	return "leaderboard:" + board
}

func (svc *ProfileService) Leaderboard(ctx context.Context, board string, limit int, viewerID string) (*dto.LeaderboardResponse, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		return nil, shared.NewBadRequestError(nil, fmt.Sprintf("limit must be between 1 and %d", maxLeaderboardLimit))
	}

	entries, err := svc.leaderboardEntries(ctx, board)
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	resp := &dto.LeaderboardResponse{Board: board, Entries: entries}
	if viewerID != "" {
		rank, err := svc.viewerRank(board, viewerID)
		if err != nil {
			return nil, err
		}
		resp.UserRank = rank
	}
	return resp, nil
}

// leaderboardEntries returns the full top list, shared across callers for a short while.
func (svc *ProfileService) leaderboardEntries(ctx context.Context, board string) ([]dto.LeaderboardEntry, error) {
	var entries []dto.LeaderboardEntry
	if svc.cache != nil {
		found, err := svc.cache.GetJSON(ctx, leaderboardKey(board), &entries)
		if err != nil {
			log.WithError(err).Warn("Leaderboard cache read failed")
		} else if found {
			return entries, nil
		}
	}

	var profiles []model.UserProfile
	var err error
	switch board {
	case LeaderboardXP:
		profiles, err = svc.profiles.TopByXP(maxLeaderboardLimit)
	case LeaderboardStreak:
		profiles, err = svc.profiles.TopByStreak(maxLeaderboardLimit, progression.DateOf(svc.now()).AddDays(-1))
	default:
		return nil, shared.NewBadRequestError(nil, "Unknown leaderboard")
	}
	if err != nil {
		return nil, HandleError(err)
	}

	entries = make([]dto.LeaderboardEntry, len(profiles))
	for i, p := range profiles {
		entries[i] = dto.LeaderboardEntry{
			Rank:          i + 1,
			UserID:        p.ID,
			Username:      p.DisplayName(),
			PlayerClass:   p.PlayerClass,
			Level:         p.Level,
			TotalXP:       p.TotalXP,
			CurrentStreak: p.CurrentStreak,
		}
	}

	if svc.cache != nil {
		if err := svc.cache.Set(ctx, leaderboardKey(board), entries, leaderboardCacheTTL); err != nil {
			log.WithError(err).Warn("Leaderboard cache write failed")
		}
	}
	return entries, nil
}

func (svc *ProfileService) viewerRank(board, viewerID string) (*int, error) {
	profile, err := svc.profiles.GetProfile(viewerID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && profile.Username == nil) {
		return nil, nil
	}
	if err != nil {
		return nil, HandleError(err)
	}

	var rank int
	switch board {
	case LeaderboardXP:
		rank, err = svc.profiles.RankByXP(profile)
	case LeaderboardStreak:
		today := progression.DateOf(svc.now())
		streak := progression.EffectiveStreak(profile.Progress(), today)
		if streak == 0 {
			return nil, nil
		}
		rank, err = svc.profiles.RankByStreak(streak, today.AddDays(-1))
	}
	if err != nil {
		return nil, HandleError(err)
	}
	return &rank, nil
}
