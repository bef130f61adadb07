package main

import (
	"log/slog"
	"strings"
	"sync"

	"darkroom/internal/config"
	"darkroom/internal/history"
	"darkroom/internal/ledger"
	"darkroom/internal/logging"
	"darkroom/internal/notifications"
	"darkroom/internal/workflow"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

// newRunner wires the full pipeline. The caller owns closing the
// returned history store.
func (c *commandContext) newRunner(logger *slog.Logger) (*workflow.Runner, *history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.RequireRemote(); err != nil {
		return nil, nil, err
	}

	hist, err := history.Open(cfg)
	if err != nil {
		return nil, nil, err
	}

	led := ledger.Open(cfg.LedgerPath(), logger)
	notifier := notifications.NewService(cfg)
	return workflow.NewRunner(cfg, led, hist, notifier, logger), hist, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
