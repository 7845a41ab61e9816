package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	appContext "github.com/alphabatem/common/context"
	"github.com/caarlos0/env/v11"
	"github.com/sidequest-rpg/sidequest_api/config"
	"github.com/sidequest-rpg/sidequest_api/dto"
	"github.com/sidequest-rpg/sidequest_api/shared"
	log "github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const (
	oracleOpGenerate = "generate_quests"
	oracleOpVerify   = "verify_proof"

	maxQuestTitleLength = 50
	maxJudgeComment     = 100
)

var (
	errOracleDisabled = errors.New("oracle has no API key configured")

	jsonArrayPattern  = regexp.MustCompile(`(?s)\[.*\]`)
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

type OracleConfig struct {
	APIKey  string        `env:"GEMINI_API_KEY"`
	Model   string        `env:"ORACLE_MODEL" envDefault:"gemini-2.5-flash"`
	Timeout time.Duration `env:"ORACLE_TIMEOUT" envDefault:"30s"`
}

// textGenerator sends a system instruction plus user parts to a model and
// returns the reply text.
type textGenerator interface {
	Generate(ctx context.Context, system string, parts []*genai.Part, temperature float32) (string, error)
}

type oracleMetrics interface {
	OracleCall(operation, outcome string, duration time.Duration)
}

type noopOracleMetrics struct{}

func (noopOracleMetrics) OracleCall(string, string, time.Duration) {}

type genaiGenerator struct {
	client *genai.Client
	model  string
}

func (g *genaiGenerator) Generate(ctx context.Context, system string, parts []*genai.Part, temperature float32) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			Temperature:       &temperature,
		})
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty model response")
	}
	return text, nil
}

// OracleService asks the model to invent quests and to judge proof photos.
// Every call degrades to a local answer when the model is unavailable.
type OracleService struct {
	appContext.DefaultService

	cfg       OracleConfig
	game      *config.Game
	generator textGenerator
	metrics   oracleMetrics
}

const ORACLE_SVC = "oracle_svc"

func (svc OracleService) Id() string {
	return ORACLE_SVC
}

func (svc *OracleService) Configure(ctx *appContext.Context) error {
	if err := env.Parse(&svc.cfg); err != nil {
		return fmt.Errorf("oracle config: %w", err)
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *OracleService) Start() error {
	svc.game = svc.Service(GAME_SVC).(*GameService).Config()
	svc.metrics = svc.Service(MONITORING_SVC).(*MonitoringService)

	if svc.cfg.APIKey == "" {
		log.Warn("GEMINI_API_KEY not set, quests and verification will use local fallbacks")
		return nil
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  svc.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("failed to create GenAI client: %w", err)
	}
	svc.generator = &genaiGenerator{client: client, model: svc.cfg.Model}

	log.WithField("model", svc.cfg.Model).Info("Quest oracle ready")
	return nil
}

// NewOracleService builds an oracle outside the service container. A nil
// generator always answers from the fallbacks.
func NewOracleService(game *config.Game, generator textGenerator, timeout time.Duration) *OracleService {
	return &OracleService{
		cfg:       OracleConfig{Timeout: timeout},
		game:      game,
		generator: generator,
		metrics:   noopOracleMetrics{},
	}
}

func (svc *OracleService) call(ctx context.Context, op, system string, parts []*genai.Part, temperature float32) (string, error) {
	if svc.generator == nil {
		return "", errOracleDisabled
	}

	if svc.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, svc.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := svc.generator.Generate(ctx, system, parts, temperature)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	svc.metrics.OracleCall(op, outcome, time.Since(start))
	return text, err
}

// GenerateQuests returns count quests for the player class. fromFallback
// reports whether the local pool answered instead of the model.
func (svc *OracleService) GenerateQuests(ctx context.Context, playerClass string, count int) (quests []dto.GeneratedQuest, fromFallback bool) {
	if count <= 0 {
		return nil, false
	}

	class := svc.game.ClassOrDefault(playerClass)
	text, err := svc.call(ctx, oracleOpGenerate, svc.questPrompt(class, count),
		[]*genai.Part{genai.NewPartFromText(fmt.Sprintf("Generate %d unique quests for today.", count))}, 0.9)
	if err == nil {
		quests, err = svc.parseQuests(text, count)
	}
	if err != nil {
		log.WithError(err).WithField("player_class", class.Name).Warn("Quest generation fell back to the local pool")
		svc.metrics.OracleCall(oracleOpGenerate, "fallback", 0)
		return svc.fallbackQuests(count, nil), true
	}

	if len(quests) < count {
		quests = append(quests, svc.fallbackQuests(count-len(quests), quests)...)
	}
	return quests, false
}

func (svc *OracleService) questPrompt(class config.PlayerClass, count int) string {
	d := svc.game.Quests.Difficulties
	return fmt.Sprintf(`You are a creative Dungeon Master for a real-life RPG app called Sidequest. Generate fun, safe, and achievable real-world quests.

Player Class: %s (%s)
Quest Preference: %s

IMPORTANT RULES:
- All quests must be completable in 15 minutes or less
- Quests must be safe and legal
- Quests should encourage real-world interaction, creativity, or exploration
- Match the player's class preference when possible

Generate %d quests with varying difficulties:
- Easy: %s
- Medium: %s
- Hard: %s

Return ONLY a JSON array with this exact structure:
[{"title": "Quest title (max %d chars)", "description": "Clear instructions on what to do", "difficulty": "easy" | "medium" | "hard"}]`,
		class.Name, class.Description, class.QuestPreference, count,
		d[config.DifficultyEasy].Summary, d[config.DifficultyMedium].Summary, d[config.DifficultyHard].Summary,
		maxQuestTitleLength)
}

type rawQuest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
}

// parseQuests pulls the first JSON array out of the reply. Rewards always
// come from the difficulty table, whatever the model says.
func (svc *OracleService) parseQuests(text string, count int) ([]dto.GeneratedQuest, error) {
	match := jsonArrayPattern.FindString(text)
	if match == "" {
		return nil, errors.New("no JSON array in model response")
	}

	var raw []rawQuest
	if err := shared.JSONAPI.UnmarshalFromString(match, &raw); err != nil {
		return nil, fmt.Errorf("decode quests: %w", err)
	}

	quests := make([]dto.GeneratedQuest, 0, count)
	for _, r := range raw {
		title := truncateRunes(strings.TrimSpace(r.Title), maxQuestTitleLength)
		description := strings.TrimSpace(r.Description)
		if title == "" || description == "" {
			continue
		}
		difficulty := svc.game.NormalizeDifficulty(r.Difficulty)
		quests = append(quests, dto.GeneratedQuest{
			Title:       title,
			Description: description,
			Difficulty:  difficulty,
			XPReward:    svc.game.XPReward(difficulty),
		})
		if len(quests) == count {
			break
		}
	}
	if len(quests) == 0 {
		return nil, errors.New("model returned no usable quests")
	}
	return quests, nil
}

// fallbackQuests takes count quests from the configured pool, skipping titles already in use.
func (svc *OracleService) fallbackQuests(count int, taken []dto.GeneratedQuest) []dto.GeneratedQuest {
	used := make(map[string]bool, len(taken))
	for _, q := range taken {
		used[strings.ToLower(q.Title)] = true
	}

	out := make([]dto.GeneratedQuest, 0, count)
	for _, q := range svc.game.FallbackQuests(len(svc.game.Fallback)) {
		if len(out) == count {
			break
		}
		if used[strings.ToLower(q.Title)] {
			continue
		}
		out = append(out, dto.GeneratedQuest{
			Title:       q.Title,
			Description: q.Description,
			Difficulty:  q.Difficulty,
			XPReward:    svc.game.XPReward(q.Difficulty),
		})
	}
	return out
}

// VerifyProof judges a proof photo. When the model cannot answer the player
// is trusted and gets the honor-system verdict; honor reports that case.
func (svc *OracleService) VerifyProof(ctx context.Context, questDescription string, proof dto.Proof) (verdict dto.Verdict, honor bool) {
	system := fmt.Sprintf(`You are an AI judge for Sidequest, a real-life RPG app.
Your job: Analyze the provided image and determine if it shows the user completed the quest.

Quest to verify: %q

Evaluation criteria:
- Does the image show genuine attempt at completing the quest?
- Is it creative or well-executed?
- Score 1-100 based on effort and creativity (be generous - 70+ for any real effort)

Return ONLY this JSON structure:
{"success": true/false, "score": 1-100, "comment": "A witty, encouraging comment (max %d chars)"}

Be lenient and encouraging. If the image shows ANY reasonable attempt, mark success as true with a score of at least 70.`,
		questDescription, maxJudgeComment)

	parts := []*genai.Part{
		genai.NewPartFromText("Does this image show quest completion? Respond ONLY with the JSON format specified."),
		genai.NewPartFromBytes(proof.Data, proof.MimeType),
	}

	text, err := svc.call(ctx, oracleOpVerify, system, parts, 0.4)
	if err == nil {
		verdict, err = parseVerdict(text)
	}
	if err != nil {
		log.WithError(err).Warn("Proof verification fell back to the honor system")
		svc.metrics.OracleCall(oracleOpVerify, "fallback", 0)
		return svc.HonorVerdict(), true
	}
	return verdict, false
}

func (svc *OracleService) HonorVerdict() dto.Verdict {
	return dto.Verdict{
		Success: true,
		Score:   svc.game.Verification.FallbackScore,
		Comment: svc.game.Verification.FallbackComment,
	}
}

type rawVerdict struct {
	Success *bool   `json:"success"`
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

func parseVerdict(text string) (dto.Verdict, error) {
	match := jsonObjectPattern.FindString(text)
	if match == "" {
		return dto.Verdict{}, errors.New("no JSON object in model response")
	}

	var raw rawVerdict
	if err := shared.JSONAPI.UnmarshalFromString(match, &raw); err != nil {
		return dto.Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	if raw.Success == nil {
		return dto.Verdict{}, errors.New("verdict is missing success")
	}

	return dto.Verdict{
		Success: *raw.Success,
		Score:   clampScore(raw.Score),
		Comment: truncateRunes(strings.TrimSpace(raw.Comment), maxJudgeComment),
	}, nil
}

func clampScore(score float64) int {
	s := int(score + 0.5)
	if s < 1 {
		return 1
	}
	if s > 100 {
		return 100
	}
	return s
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
