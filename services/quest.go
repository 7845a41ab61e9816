package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/sidequest-rpg/sidequest_api/config"
	"github.com/sidequest-rpg/sidequest_api/dto"
	"github.com/sidequest-rpg/sidequest_api/model"
	"github.com/sidequest-rpg/sidequest_api/progression"
	"github.com/sidequest-rpg/sidequest_api/services/repositories"
	"github.com/sidequest-rpg/sidequest_api/shared"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const generateLockTTL = time.Minute

// allowedProofTypes maps accepted proof content types to their object extension.
var allowedProofTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

type questOracle interface {
	GenerateQuests(ctx context.Context, playerClass string, count int) ([]dto.GeneratedQuest, bool)
	VerifyProof(ctx context.Context, questDescription string, proof dto.Proof) (dto.Verdict, bool)
}

type proofStore interface {
	UploadProof(ctx context.Context, objectName string, data []byte, contentType string) error
	DeleteProof(ctx context.Context, objectName string) error
}

type locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

type questMetrics interface {
	QuestsGenerated(source string, n int)
	ProofVerdict(outcome string)
	XPAwarded(amount int, leveledUp bool)
}

type noopQuestMetrics struct{}

func (noopQuestMetrics) QuestsGenerated(string, int) {}
func (noopQuestMetrics) ProofVerdict(string)         {}
func (noopQuestMetrics) XPAwarded(int, bool)         {}

type questConfig struct {
	SweepInterval time.Duration `env:"QUEST_SWEEP_INTERVAL" envDefault:"5m"`
}

// QuestService owns the quest lifecycle: generation, rerolls, proof
// submission and expiry.
type QuestService struct {
	appContext.DefaultService

	cfg      questConfig
	db       *gorm.DB
	quests   *repositories.QuestRepository
	profiles *repositories.ProfileRepository
	game     *config.Game
	oracle   questOracle
	proofs   proofStore
	locks    locker
	metrics  questMetrics
	cards    cardInvalidator
	now      func() time.Time

	stop     chan struct{}
	sweeping sync.WaitGroup
}

const QUEST_SVC = "quest_svc"

func (svc QuestService) Id() string {
	return QUEST_SVC
}

func (svc *QuestService) Configure(ctx *appContext.Context) error {
	if err := env.Parse(&svc.cfg); err != nil {
		return fmt.Errorf("quest config: %w", err)
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *QuestService) Start() error {
	svc.init(QuestDeps{
		DB:      svc.Service(DATABASE_SVC).(*DatabaseService).Db(),
		Game:    svc.Service(GAME_SVC).(*GameService).Config(),
		Oracle:  svc.Service(ORACLE_SVC).(*OracleService),
		Proofs:  svc.Service(MINIO_SVC).(*MinIOService),
		Locks:   svc.Service(REDIS_SVC).(*RedisService),
		Metrics: svc.Service(MONITORING_SVC).(*MonitoringService),
		Cards:   svc.Service(PROFILE_SVC).(*ProfileService),
	})

	svc.StartSweeper(svc.cfg.SweepInterval)
	return nil
}

func (svc *QuestService) Shutdown() {
	svc.StopSweeper()
}

// QuestDeps are the collaborators of a QuestService. Locks, Metrics and
// Cards are optional.
type QuestDeps struct {
	DB      *gorm.DB
	Game    *config.Game
	Oracle  questOracle
	Proofs  proofStore
	Locks   locker
	Metrics questMetrics
	Cards   cardInvalidator
	Now     func() time.Time
}

func NewQuestService(deps QuestDeps) *QuestService {
	svc := &QuestService{}
	svc.init(deps)
	return svc
}

func (svc *QuestService) init(deps QuestDeps) {
	svc.db = deps.DB
	svc.quests = repositories.NewQuestRepository(deps.DB)
	svc.profiles = repositories.NewProfileRepository(deps.DB)
	svc.game = deps.Game
	svc.oracle = deps.Oracle
	svc.proofs = deps.Proofs
	svc.locks = deps.Locks
	svc.metrics = deps.Metrics
	svc.cards = deps.Cards
	svc.now = deps.Now

	if svc.metrics == nil {
		svc.metrics = noopQuestMetrics{}
	}
	if svc.now == nil {
		svc.now = func() time.Time { return time.Now().UTC() }
	}
}

func startOfDay(t time.Time) time.Time {
	return progression.DateOf(t).Time()
}

func toQuestResponse(q *model.Quest) dto.QuestResponse {
	return dto.QuestResponse{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		Difficulty:  q.Difficulty,
		XPReward:    q.XPReward,
		Status:      q.Status,
		GeneratedAt: q.GeneratedAt,
		ExpiresAt:   q.ExpiresAt,
		CompletedAt: q.CompletedAt,
	}
}

func toQuestResponses(quests []model.Quest) []dto.QuestResponse {
	out := make([]dto.QuestResponse, len(quests))
	for i := range quests {
		out[i] = toQuestResponse(&quests[i])
	}
	return out
}

func (svc *QuestService) newQuest(userID string, g dto.GeneratedQuest, now time.Time) model.Quest {
	id, _ := uuid.NewV7()
	return model.Quest{
		ID:          id.String(),
		UserID:      userID,
		Title:       g.Title,
		Description: g.Description,
		Difficulty:  g.Difficulty,
		XPReward:    g.XPReward,
		Status:      shared.QuestStatusActive,
		GeneratedAt: now,
		ExpiresAt:   now.Add(svc.game.QuestLifetime()),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (svc *QuestService) profile(userID string) (*model.UserProfile, error) {
	profile, err := svc.profiles.GetProfile(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.NewNotFoundError(err, "Profile not found")
	}
	if err != nil {
		return nil, HandleError(err)
	}
	return profile, nil
}

// GenerateDailyQuests hands out today's quests. It refuses when today's set
// is already out or the player holds the maximum number of active quests.
func (svc *QuestService) GenerateDailyQuests(ctx context.Context, userID string) ([]dto.QuestResponse, error) {
	if svc.locks != nil {
		release, err := svc.locks.AcquireLock(ctx, "quests:generate:"+userID, generateLockTTL)
		if errors.Is(err, ErrLockHeld) {
			return nil, shared.NewConflictError(err, "Quest generation already in progress")
		}
		if err != nil {
			return nil, shared.NewServiceUnavailableError(err, "Quest generation is unavailable")
		}
		defer release()
	}

	profile, err := svc.profile(userID)
	if err != nil {
		return nil, err
	}

	now := svc.now()
	rules := svc.game.Quests

	today, err := svc.quests.CountActiveCreatedSince(userID, startOfDay(now), now)
	if err != nil {
		return nil, HandleError(err)
	}
	if today >= int64(rules.DailyCount) {
		return nil, shared.NewConflictError(nil, "Daily quests already generated")
	}

	active, err := svc.quests.CountActive(userID, now)
	if err != nil {
		return nil, HandleError(err)
	}
	if active >= int64(rules.MaxActive) {
		return nil, shared.NewConflictError(nil, fmt.Sprintf("You already have %d active quests", active))
	}

	count := rules.DailyCount
	if room := rules.MaxActive - int(active); room < count {
		count = room
	}

	generated, fromFallback := svc.oracle.GenerateQuests(ctx, profile.PlayerClass, count)
	quests := make([]model.Quest, 0, len(generated))
	for _, g := range generated {
		quests = append(quests, svc.newQuest(userID, g, now))
	}
	if err := svc.quests.CreateQuests(quests); err != nil {
		return nil, HandleError(err)
	}

	source := "oracle"
	if fromFallback {
		source = "fallback"
	}
	svc.metrics.QuestsGenerated(source, len(quests))
	log.WithFields(log.Fields{
		"user_id": userID,
		"count":   len(quests),
		"source":  source,
	}).Info("Daily quests generated")

	return toQuestResponses(quests), nil
}

func (svc *QuestService) ListActiveQuests(ctx context.Context, userID string) ([]dto.QuestResponse, error) {
	quests, err := svc.quests.ListActive(userID, svc.now())
	if err != nil {
		return nil, HandleError(err)
	}
	return toQuestResponses(quests), nil
}

// ListTodayQuests returns every quest created today, whatever its status.
// Overdue quests the sweeper has not reached yet are reported as expired.
func (svc *QuestService) ListTodayQuests(ctx context.Context, userID string) ([]dto.QuestResponse, error) {
	now := svc.now()
	quests, err := svc.quests.ListCreatedSince(userID, startOfDay(now))
	if err != nil {
		return nil, HandleError(err)
	}
	for i := range quests {
		if quests[i].Status == shared.QuestStatusActive && !quests[i].ExpiresAt.After(now) {
			quests[i].Status = shared.QuestStatusExpired
		}
	}
	return toQuestResponses(quests), nil
}

func (svc *QuestService) activeQuest(userID, questID string, now time.Time) (*model.Quest, error) {
	quest, err := svc.quests.GetUserQuest(userID, questID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.NewNotFoundError(err, "Quest not found")
	}
	if err != nil {
		return nil, HandleError(err)
	}
	if quest.Status != shared.QuestStatusActive || !quest.ExpiresAt.After(now) {
		return nil, shared.NewConflictError(repositories.ErrQuestNotActive, "Quest is no longer active")
	}
	return quest, nil
}

// RerollQuest swaps an active quest for a fresh one. Without a Hero Pass
// rerolls are subject to a cooldown.
func (svc *QuestService) RerollQuest(ctx context.Context, userID, questID string) (*dto.QuestResponse, error) {
	now := svc.now()

	profile, err := svc.profile(userID)
	if err != nil {
		return nil, err
	}
	if _, err := svc.activeQuest(userID, questID, now); err != nil {
		return nil, err
	}

	if !profile.HeroPassActive(now) && profile.LastRerollAt != nil {
		if wait := profile.LastRerollAt.Add(svc.game.RerollCooldown()).Sub(now); wait > 0 {
			minutes := int(math.Ceil(wait.Minutes()))
			return nil, shared.NewTooManyRequestsError(
				fmt.Sprintf("Reroll available in %d minutes", minutes),
				map[string]interface{}{"retry_after": int(math.Ceil(wait.Seconds()))},
			)
		}
	}

	generated, fromFallback := svc.oracle.GenerateQuests(ctx, profile.PlayerClass, 1)
	if len(generated) == 0 {
		return nil, shared.NewServiceUnavailableError(nil, "No replacement quest available")
	}
	replacement := svc.newQuest(userID, generated[0], now)

	err = svc.db.Transaction(func(tx *gorm.DB) error {
		quests := svc.quests.WithTx(tx)
		if err := quests.DeleteActive(userID, questID, now); err != nil {
			return err
		}
		if err := quests.CreateQuests([]model.Quest{replacement}); err != nil {
			return err
		}
		return svc.profiles.WithTx(tx).TouchReroll(userID, now)
	})
	if err != nil {
		return nil, HandleError(err)
	}

	source := "oracle"
	if fromFallback {
		source = "fallback"
	}
	svc.metrics.QuestsGenerated(source, 1)
	log.WithFields(log.Fields{
		"user_id":  userID,
		"quest_id": questID,
		"new_id":   replacement.ID,
	}).Info("Quest rerolled")

	resp := toQuestResponse(&replacement)
	return &resp, nil
}

func (svc *QuestService) validateProof(proof dto.Proof) error {
	if len(proof.Data) == 0 {
		return shared.NewBadRequestError(nil, "Proof image is required")
	}
	if limit := svc.game.Verification.MaxProofBytes; limit > 0 && int64(len(proof.Data)) > limit {
		return shared.NewBadRequestError(nil, fmt.Sprintf("Proof image must be at most %d bytes", limit))
	}
	if _, ok := allowedProofTypes[proofMimeType(proof)]; !ok {
		return shared.NewBadRequestError(nil, "Proof image must be JPEG, PNG or WebP")
	}
	return nil
}

func proofMimeType(proof dto.Proof) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(proof.MimeType, ";")[0]))
}

// SubmitProof verifies a proof photo and, when accepted, completes the quest
// and awards the judge's score as experience in a single transaction.
func (svc *QuestService) SubmitProof(ctx context.Context, userID, questID string, proof dto.Proof) (*dto.SubmitProofResponse, error) {
	if err := svc.validateProof(proof); err != nil {
		return nil, err
	}

	now := svc.now()
	quest, err := svc.activeQuest(userID, questID, now)
	if err != nil {
		return nil, err
	}

	verdict, honor := svc.oracle.VerifyProof(ctx, quest.Description, proof)
	switch {
	case honor:
		svc.metrics.ProofVerdict("honor_system")
	case verdict.Success:
		svc.metrics.ProofVerdict("accepted")
	default:
		svc.metrics.ProofVerdict("rejected")
	}

	if !verdict.Success {
		return &dto.SubmitProofResponse{Verdict: verdict}, nil
	}

	completionID, _ := uuid.NewV7()
	objectName := ProofObjectName(userID, completionID.String(), now, allowedProofTypes[proofMimeType(proof)])
	if err := svc.proofs.UploadProof(ctx, objectName, proof.Data, proof.MimeType); err != nil {
		return nil, shared.NewServiceUnavailableError(err, "Failed to store proof")
	}

	today := progression.DateOf(now)
	var award progression.Award
	var updated *model.UserProfile

	err = svc.db.Transaction(func(tx *gorm.DB) error {
		quests := svc.quests.WithTx(tx)
		if err := quests.CompleteQuest(userID, questID, now); err != nil {
			return err
		}
		if err := quests.CreateCompletion(&model.QuestCompletion{
			ID:          completionID.String(),
			UserID:      userID,
			QuestID:     questID,
			ProofObject: objectName,
			Score:       verdict.Score,
			Comment:     verdict.Comment,
			XPAwarded:   verdict.Score,
			CreatedAt:   now,
		}); err != nil {
			return err
		}

		var err error
		updated, err = svc.profiles.WithTx(tx).UpdateProgress(userID, func(p progression.Progress) (progression.Progress, error) {
			a, err := progression.ApplyAward(p, verdict.Score)
			if err != nil {
				return p, err
			}
			award = a
			return progression.AdvanceStreak(a.Progress, today), nil
		})
		return err
	})
	if err != nil {
		if delErr := svc.proofs.DeleteProof(context.Background(), objectName); delErr != nil {
			log.WithError(delErr).WithField("object", objectName).Warn("Failed to remove orphaned proof")
		}
		if errors.Is(err, repositories.ErrQuestNotActive) {
			return nil, shared.NewConflictError(err, "Quest is no longer active")
		}
		return nil, HandleError(err)
	}

	svc.metrics.XPAwarded(verdict.Score, award.LeveledUp)
	if svc.cards != nil {
		svc.cards.InvalidateCard(userID)
	}

	log.WithFields(log.Fields{
		"user_id":    userID,
		"quest_id":   questID,
		"score":      verdict.Score,
		"leveled_up": award.LeveledUp,
		"level":      award.NewLevel,
		"honor":      honor,
	}).Info("Quest completed")

	progress := BuildProgress(updated, today)
	return &dto.SubmitProofResponse{
		Verdict:      verdict,
		CompletionID: completionID.String(),
		XPAwarded:    verdict.Score,
		LeveledUp:    award.LeveledUp,
		NewLevel:     award.NewLevel,
		Progress:     &progress,
	}, nil
}

// ExpireOverdueQuests marks every quest past its deadline as expired.
func (svc *QuestService) ExpireOverdueQuests() (int64, error) {
	return svc.quests.ExpireOverdue(svc.now())
}

// StartSweeper expires overdue quests every interval until StopSweeper.
func (svc *QuestService) StartSweeper(interval time.Duration) {
	if interval <= 0 || svc.stop != nil {
		return
	}
	svc.stop = make(chan struct{})
	svc.sweeping.Add(1)

	go func() {
		defer svc.sweeping.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				n, err := svc.ExpireOverdueQuests()
				if err != nil {
					log.WithError(err).Error("Failed to expire overdue quests")
					continue
				}
				if n > 0 {
					log.WithField("expired", n).Info("Expired overdue quests")
				}
			case <-svc.stop:
				return
			}
		}
	}()
}

func (svc *QuestService) StopSweeper() {
	if svc.stop == nil {
		return
	}
	close(svc.stop)
	svc.sweeping.Wait()
	svc.stop = nil
}
