package engine

import (
	"sync"
	"time"

	"github.com/lixenwraith/beatframe/parameter"
)

// modeController owns the quality/performance switch with hysteresis.
// Downgrades apply immediately under sustained overrun; upgrades are
// suppressed for a cooldown window after any switch
type modeController struct {
	mu         sync.RWMutex
	mode       Mode
	lastSwitch time.Time
}

func newModeController() *modeController {
	return &modeController{mode: ModeQuality}
}

// Mode returns the active mode
func (c *modeController) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Budget returns the active frame budget
func (c *modeController) Budget() time.Duration {
	return c.Mode().Budget()
}

// LastSwitch returns when the mode last changed
func (c *modeController) LastSwitch() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSwitch
}

// Set forces a mode, bypassing hysteresis. Integrator override
func (c *modeController) Set(mode Mode, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != mode {
		c.mode = mode
		c.lastSwitch = now
	}
}

// Evaluate applies the hysteretic switch rule against the rolling average
// frame time. Returns true when the mode changed
func (c *modeController) Evaluate(avg time.Duration, now time.Time) bool {
	if avg <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	budget := c.mode.Budget()
	switch c.mode {
	case ModeQuality:
		if float64(avg) > float64(budget)*parameter.ModeDowngradeFraction {
			c.mode = ModePerformance
			c.lastSwitch = now
			return true
		}
	case ModePerformance:
		if float64(avg) < float64(budget)*parameter.ModeUpgradeFraction &&
			now.Sub(c.lastSwitch) >= parameter.ModeSwitchCooldown {
			c.mode = ModeQuality
			c.lastSwitch = now
			return true
		}
	}
	return false
}
