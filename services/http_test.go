package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sidequest-rpg/sidequest_api/config"
	"github.com/sidequest-rpg/sidequest_api/services/handlers"
	"github.com/sidequest-rpg/sidequest_api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	app    *fiber.App
	jwt    *JWTService
	clock  *clock
	oracle *fakeOracle
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	db := newTestDB(t)
	game := config.Default()
	clk := newClock("2024-03-10T10:00:00Z")
	oracle := newFakeOracle(game)
	proofs := newFakeProofStore()
	jwtSvc := NewJWTService(JWTConfig{Secret: "test-secret", Audience: "authenticated", TokenDuration: time.Hour})

	profiles, err := NewProfileService(db, game, newMemoryCache())
	require.NoError(t, err)
	profiles.now = clk.Now

	quests := NewQuestService(QuestDeps{
		DB: db, Game: game, Oracle: oracle, Proofs: proofs, Locks: newFakeLocker(), Cards: profiles, Now: clk.Now,
	})
	auth := &AuthMiddleware{verifier: jwtSvc, provisioner: profiles}
	limits := NewRateLimitService(newMemoryCounter())

	app := NewApp(HttpConfig{BodyLimit: 12 << 20, CORSOrigins: "*"})
	app.Use(limits.IPRateLimit())
	RegisterRoutes(app, Routes{
		RequiredAuth: auth.RequiredAuth(),
		OptionalAuth: auth.OptionalAuth(),
		RateLimit:    limits.UserBasedRateLimit,
		Profile:      handlers.NewProfileHandler(profiles),
		Leaderboard:  handlers.NewLeaderboardHandler(profiles),
		Quest:        handlers.NewQuestHandler(quests, game.Verification.MaxProofBytes),
		Feed:         handlers.NewFeedHandler(NewFeedService(db, proofs, profiles)),
		Subscription: handlers.NewSubscriptionHandler(NewSubscriptionService(db, game, profiles, "hook")),
	})

	return &apiFixture{app: app, jwt: jwtSvc, clock: clk, oracle: oracle}
}

func (f *apiFixture) do(t *testing.T, method, path, userID string, body io.Reader, contentType string) (int, shared.Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if userID != "" {
		token, err := f.jwt.IssueToken(userID, userID+"@example.com")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out shared.Response
	require.NoError(t, shared.JSONAPI.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func multipartProof(t *testing.T, data []byte) (io.Reader, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="proof"; filename="proof.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func dataMap(t *testing.T, r shared.Response) map[string]interface{} {
	t.Helper()
	m, ok := r.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", r.Data)
	return m
}

func TestAPIPublicRoutes(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.do(t, "GET", "/ping", "", nil, "")
	assert.Equal(t, 200, status)
	assert.Equal(t, "pong", body.Data)

	status, _ = f.do(t, "GET", "/api/v1/progression/levels", "", nil, "")
	assert.Equal(t, 200, status)

	status, body = f.do(t, "GET", "/api/v1/leaderboard/xp", "", nil, "")
	assert.Equal(t, 200, status)
	assert.Equal(t, "xp", dataMap(t, body)["board"])

	status, _ = f.do(t, "GET", "/api/v1/nowhere", "", nil, "")
	assert.Equal(t, 404, status)
}

func TestAPIRequiresToken(t *testing.T) {
	f := newAPIFixture(t)

	status, _ := f.do(t, "GET", "/api/v1/profile", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	req := httptest.NewRequest("GET", "/api/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPIQuestJourney(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.do(t, "PUT", "/api/v1/profile/onboarding", "hero", strings.NewReader(`{"username":"hero_one","player_class":"Ranger"}`), "application/json")
	require.Equal(t, 200, status, body.Message)

	status, body = f.do(t, "POST", "/api/v1/quests/daily", "hero", nil, "")
	require.Equal(t, 201, status, body.Message)
	quests, ok := body.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, quests, 3)
	first := quests[0].(map[string]interface{})["id"].(string)
	second := quests[1].(map[string]interface{})["id"].(string)

	status, _ = f.do(t, "POST", "/api/v1/quests/daily", "hero", nil, "")
	assert.Equal(t, 409, status)

	for _, id := range []string{first, second} {
		reader, ct := multipartProof(t, []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0})
		status, body = f.do(t, "POST", "/api/v1/quests/"+id+"/proof", "hero", reader, ct)
		require.Equal(t, 200, status, body.Message)
	}
	result := dataMap(t, body)
	assert.Equal(t, true, result["leveled_up"])

	status, body = f.do(t, "GET", "/api/v1/profile/progress", "hero", nil, "")
	require.Equal(t, 200, status)
	progress := dataMap(t, body)
	assert.Equal(t, "120", fmt.Sprint(progress["total_xp"]))
	assert.Equal(t, "2", fmt.Sprint(progress["level"]))
	assert.Equal(t, "1", fmt.Sprint(progress["current_streak"]))

	status, body = f.do(t, "GET", "/api/v1/leaderboard/xp", "hero", nil, "")
	require.Equal(t, 200, status)
	assert.NotNil(t, dataMap(t, body)["user_rank"])

	status, body = f.do(t, "GET", "/api/v1/quests", "hero", nil, "")
	require.Equal(t, 200, status)
	assert.Len(t, body.Data, 1)
}

func TestAPIWebhookSecret(t *testing.T) {
	f := newAPIFixture(t)
	_, _ = f.do(t, "GET", "/api/v1/profile", "hero", nil, "")

	payload := `{"user_id":"hero","subscribed":true,"product_id":"hero_yearly"}`
	status, _ := f.do(t, "POST", "/api/v1/subscription/sync", "", strings.NewReader(payload), "application/json")
	assert.Equal(t, 401, status)

	req := httptest.NewRequest("POST", "/api/v1/subscription/sync", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(shared.WebhookSecretHeader, "hook")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	status, body := f.do(t, "GET", "/api/v1/subscription", "hero", nil, "")
	require.Equal(t, 200, status)
	assert.Equal(t, true, dataMap(t, body)["subscribed"])
}

func TestErrorHandlerFallbacks(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/fiber", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })
	app.Get("/plain", func(c *fiber.Ctx) error { return context.DeadlineExceeded })

	resp, err := app.Test(httptest.NewRequest("GET", "/fiber", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/plain", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
}
