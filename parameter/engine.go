package parameter

import "time"

// Frame Loop & Budget Timing
const (
	// QualityFrameBudget is the per-frame time budget in quality mode (~60 FPS)
	QualityFrameBudget = 16 * time.Millisecond

	// PerformanceFrameBudget is the per-frame time budget in performance mode
	PerformanceFrameBudget = 8 * time.Millisecond

	// DefaultFrameInterval is the nominal host callback interval (~60 FPS)
	DefaultFrameInterval = 16 * time.Millisecond

	// RecoveryDelay is the extra scheduling delay after a severe overrun,
	// giving the host a chance to catch up before the next frame
	RecoveryDelay = 4 * time.Millisecond
)

// Budget headroom fractions, applied against the active frame budget
const (
	// ClientBudgetFraction stops animation-client execution once
	// elapsed-this-frame reaches this share of the budget
	ClientBudgetFraction = 0.9

	// LerpBudgetFraction gates interpolation and beat-sync processing
	LerpBudgetFraction = 0.7

	// ChoreoBudgetFraction gates the adaptive choreography tick
	ChoreoBudgetFraction = 0.8

	// OverrunFraction marks a frame dropped (and triggers delayed
	// rescheduling) when measured time exceeds budget by this factor
	OverrunFraction = 1.5

	// ModeDowngradeFraction switches quality -> performance when the rolling
	// average frame time exceeds budget by this factor
	ModeDowngradeFraction = 1.2

	// ModeUpgradeFraction allows performance -> quality only when the rolling
	// average falls below budget by this factor
	ModeUpgradeFraction = 0.8
)

// CallbackHeadroom is the minimum remaining budget after frame callbacks
// before any animation-client system is allowed to run
const CallbackHeadroom = 2 * time.Millisecond

// ModeSwitchCooldown is the hysteresis window after a mode switch during
// which performance -> quality upgrades are suppressed
const ModeSwitchCooldown = 5000 * time.Millisecond

// FrameHistorySize is the fixed capacity of the frame-time ring buffer
const FrameHistorySize = 60

// DefaultTargetFPS is used for visual systems registered without an
// explicit frame rate
const DefaultTargetFPS = 60
