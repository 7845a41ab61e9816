package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sidequest-rpg/sidequest_api/config"
	"github.com/sidequest-rpg/sidequest_api/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	reply   string
	err     error
	calls   int
	systems []string
	parts   [][]*genai.Part
}

func (f *fakeGenerator) Generate(_ context.Context, system string, parts []*genai.Part, _ float32) (string, error) {
	f.calls++
	f.systems = append(f.systems, system)
	f.parts = append(f.parts, parts)
	return f.reply, f.err
}

func TestGenerateQuestsUsesDifficultyTable(t *testing.T) {
	gen := &fakeGenerator{reply: "Here you go:\n```json\n[" +
		`{"title":"Sky Hunter","description":"Photograph a bird","difficulty":"HARD","xp_reward":9999},` +
		`{"title":"Leaf Pile","description":"Find three colours of leaves","difficulty":"legendary"},` +
		`{"title":"","description":"ignored","difficulty":"easy"},` +
		`{"title":"Street Bard","description":"Hum a tune for a friend","difficulty":"medium"}` +
		"]\n```"}
	oracle := NewOracleService(config.Default(), gen, time.Second)

	quests, fallback := oracle.GenerateQuests(context.Background(), "Ranger", 3)
	require.False(t, fallback)
	require.Len(t, quests, 3)

	assert.Equal(t, dto.GeneratedQuest{Title: "Sky Hunter", Description: "Photograph a bird", Difficulty: "hard", XPReward: 200}, quests[0])
	assert.Equal(t, "easy", quests[1].Difficulty)
	assert.Equal(t, 50, quests[1].XPReward)
	assert.Equal(t, 100, quests[2].XPReward)

	require.Len(t, gen.systems, 1)
	assert.Contains(t, gen.systems[0], "Player Class: Ranger (Nature explorer)")
	assert.Contains(t, gen.systems[0], "Outdoor exploration")
}

func TestGenerateQuestsTopsUpShortReplies(t *testing.T) {
	gen := &fakeGenerator{reply: `[{"title":"Yellow Discovery","description":"Find something yellow","difficulty":"easy"}]`}
	oracle := NewOracleService(config.Default(), gen, time.Second)

	quests, fallback := oracle.GenerateQuests(context.Background(), "Bard", 3)
	assert.False(t, fallback)
	require.Len(t, quests, 3)
	assert.Equal(t, "Yellow Discovery", quests[0].Title)
	assert.Equal(t, "Cloud Gazer", quests[1].Title)
	assert.Equal(t, "Random Act of Kindness", quests[2].Title)
}

func TestGenerateQuestsFallsBack(t *testing.T) {
	for name, gen := range map[string]textGenerator{
		"error":    &fakeGenerator{err: errors.New("quota")},
		"garbage":  &fakeGenerator{reply: "I cannot do that"},
		"empty":    &fakeGenerator{reply: "[]"},
		"disabled": nil,
	} {
		t.Run(name, func(t *testing.T) {
			oracle := NewOracleService(config.Default(), gen, time.Second)

			quests, fallback := oracle.GenerateQuests(context.Background(), "Rogue", 3)
			assert.True(t, fallback)
			require.Len(t, quests, 3)
			assert.Equal(t, "Yellow Discovery", quests[0].Title)
			assert.Equal(t, 200, quests[2].XPReward)
		})
	}
}

func TestGenerateQuestsTruncatesLongTitles(t *testing.T) {
	long := "An Extraordinarily Long Quest Title That Keeps Going On"
	gen := &fakeGenerator{reply: `[{"title":"` + long + `","description":"d","difficulty":"easy"}]`}
	oracle := NewOracleService(config.Default(), gen, time.Second)

	quests, _ := oracle.GenerateQuests(context.Background(), "Scholar", 1)
	require.Len(t, quests, 1)
	assert.Equal(t, long[:50], quests[0].Title)
}

func TestVerifyProof(t *testing.T) {
	gen := &fakeGenerator{reply: `Sure! {"success": true, "score": 88.4, "comment": "Majestic cloud."}`}
	oracle := NewOracleService(config.Default(), gen, time.Second)

	verdict, honor := oracle.VerifyProof(context.Background(), "Take a photo of a cloud", dto.Proof{Data: []byte{0xff, 0xd8}, MimeType: "image/jpeg"})
	assert.False(t, honor)
	assert.Equal(t, dto.Verdict{Success: true, Score: 88, Comment: "Majestic cloud."}, verdict)

	require.Len(t, gen.parts, 1)
	require.Len(t, gen.parts[0], 2)
	require.NotNil(t, gen.parts[0][1].InlineData)
	assert.Equal(t, "image/jpeg", gen.parts[0][1].InlineData.MIMEType)
	assert.Contains(t, gen.systems[0], "Take a photo of a cloud")
}

func TestVerifyProofClampsScore(t *testing.T) {
	cases := map[string]int{
		`{"success": true, "score": 250, "comment": "x"}`: 100,
		`{"success": false, "score": 0, "comment": "x"}`:  1,
		`{"success": false, "score": -20}`:                1,
	}
	for reply, want := range cases {
		oracle := NewOracleService(config.Default(), &fakeGenerator{reply: reply}, time.Second)
		verdict, honor := oracle.VerifyProof(context.Background(), "q", dto.Proof{})
		assert.False(t, honor)
		assert.Equal(t, want, verdict.Score, reply)
	}
}

func TestVerifyProofHonorSystem(t *testing.T) {
	for name, gen := range map[string]textGenerator{
		"error":      &fakeGenerator{err: errors.New("timeout")},
		"no json":    &fakeGenerator{reply: "looks great"},
		"no success": &fakeGenerator{reply: `{"score": 90}`},
		"disabled":   nil,
	} {
		t.Run(name, func(t *testing.T) {
			oracle := NewOracleService(config.Default(), gen, time.Second)

			verdict, honor := oracle.VerifyProof(context.Background(), "q", dto.Proof{})
			assert.True(t, honor)
			assert.True(t, verdict.Success)
			assert.Equal(t, 75, verdict.Score)
			assert.Equal(t, "AI verification unavailable. Quest completed on honor system! 🎯", verdict.Comment)
		})
	}
}
