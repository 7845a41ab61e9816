package services

import (
	"fmt"

	"github.com/alphabatem/common/context"
	"github.com/caarlos0/env/v11"
	"github.com/sidequest-rpg/sidequest_api/config"
	log "github.com/sirupsen/logrus"
)

// GameService owns the game tuning every other service reads.
type GameService struct {
	context.DefaultService

	game *config.Game
}

type gameConfig struct {
	Path string `env:"GAME_CONFIG_PATH"`
}

const GAME_SVC = "game_svc"

func (svc GameService) Id() string {
	return GAME_SVC
}

func (svc *GameService) Configure(ctx *context.Context) error {
	var cfg gameConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("game config: %w", err)
	}

	game, err := config.Load(cfg.Path)
	if err != nil {
		return err
	}
	svc.game = game

	log.WithFields(log.Fields{
		"path":        cfg.Path,
		"daily_count": game.Quests.DailyCount,
		"classes":     len(game.Classes),
	}).Info("Game config loaded")
	return svc.DefaultService.Configure(ctx)
}

func (svc *GameService) Start() error {
	return nil
}

func (svc *GameService) Config() *config.Game {
	return svc.game
}
