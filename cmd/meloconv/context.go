package main

import (
	"fmt"

	"meloconv/internal/config"
)

// commandContext lazily loads configuration shared by the subcommands.
type commandContext struct {
	configFlag *string

	cfg     *config.Config
	cfgPath string
	loaded  bool
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads the configuration once and caches it.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.loaded {
		return c.cfg, nil
	}

	flagValue := ""
	if c.configFlag != nil {
		flagValue = *c.configFlag
	}

	cfg, path, _, err := config.Load(flagValue)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	c.cfgPath = path
	c.loaded = true
	return cfg, nil
}
