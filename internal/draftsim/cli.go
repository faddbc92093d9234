package draftsim

import (
	"errors"
	"fmt"

	"github.com/gavelhq/gavel/pkg/logger"
)

// SetupLogging initializes the shared logger for a CLI run
func SetupLogging(verbose bool) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	level := "info"
	if verbose {
		level = "debug"
	}
	return logger.SetLevelString(level)
}

// Validate checks the configuration before a run starts. Picks beyond
// the pool size are allowed and silently capped by the generator, since
// a player can only be sold once.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base url is required")
	}
	if c.Players < 1 {
		return fmt.Errorf("players must be at least 1, got %d", c.Players)
	}
	if c.Picks < 1 {
		return fmt.Errorf("picks must be at least 1, got %d", c.Picks)
	}
	if c.TotalBudget <= 0 {
		return fmt.Errorf("total budget must be positive, got %g", c.TotalBudget)
	}
	if c.TotalSlots < 1 {
		return fmt.Errorf("total slots must be at least 1, got %d", c.TotalSlots)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.TopN < 1 {
		return fmt.Errorf("board size must be at least 1, got %d", c.TopN)
	}
	return nil
}
