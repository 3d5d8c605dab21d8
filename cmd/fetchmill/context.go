package main

import (
	"strings"
	"sync"

	"fetchmill/internal/config"
)

// commandContext resolves shared CLI state lazily: the loaded configuration
// and the daemon API address derived from it or from the --server flag.
type commandContext struct {
	serverFlag *string
	configFlag *string

	once sync.Once
	cfg  *config.Config
	err  error
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{serverFlag: serverFlag, configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.once.Do(func() {
		path := ""
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.cfg, _, _, c.err = config.Load(path)
	})
	return c.cfg, c.err
}

// serverAddr picks the daemon address: flag first, then configuration.
func (c *commandContext) serverAddr() (string, error) {
	if c.serverFlag != nil {
		if addr := strings.TrimSpace(*c.serverFlag); addr != "" {
			return addr, nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return cfg.Paths.APIBind, nil
}

func (c *commandContext) client() (*apiClient, error) {
	addr, err := c.serverAddr()
	if err != nil {
		return nil, err
	}
	return newAPIClient(addr), nil
}
