package engine

import (
	"errors"
	"time"
)

var (
	ErrScanTimeout        = errors.New("scan execution timeout")
	ErrMatchLimitExceeded = errors.New("match limit exceeded")
)

// defaultCheckInterval is how many symbols pass between clock reads.
const defaultCheckInterval = 1024

// ScanContext tracks execution limits and timeout for one scan. A struct
// literal is usable; NewScanContext only fills in the deadline.
type ScanContext struct {
	// Deadline is ignored when zero.
	Deadline time.Time

	// MaxMatches is ignored when <= 0.
	MaxMatches int

	SymbolsScanned int
	Matches        int

	// checkCounter amortizes time checks.
	checkCounter  int
	checkInterval int

	TimedOut      bool
	LimitExceeded bool
}

// NewScanContext creates a context with the given timeout and match limit.
// A zero timeout or limit disables that check.
func NewScanContext(timeout time.Duration, maxMatches int) *ScanContext {
	ctx := &ScanContext{
		MaxMatches:    maxMatches,
		checkInterval: defaultCheckInterval,
	}
	if timeout > 0 {
		ctx.Deadline = time.Now().Add(timeout)
	}
	return ctx
}

// Unlimited returns a context that never stops a scan.
func Unlimited() *ScanContext {
	return NewScanContext(0, 0)
}

// Advance records one consumed input symbol.
// Time checks are amortized to avoid calling time.Now() on every symbol.
func (ctx *ScanContext) Advance() error {
	if ctx.checkInterval <= 0 {
		ctx.checkInterval = defaultCheckInterval
	}
	ctx.SymbolsScanned++
	ctx.checkCounter++
	if ctx.checkCounter%ctx.checkInterval == 0 && !ctx.Deadline.IsZero() {
		if time.Now().After(ctx.Deadline) {
			ctx.TimedOut = true
			return ErrScanTimeout
		}
	}
	return nil
}

// Record accounts for one reported match. It fails without counting once
// MaxMatches matches have been recorded.
func (ctx *ScanContext) Record() error {
	if ctx.MaxMatches > 0 && ctx.Matches >= ctx.MaxMatches {
		ctx.LimitExceeded = true
		return ErrMatchLimitExceeded
	}
	ctx.Matches++
	return nil
}

// Truncated reports whether the scan stopped before the end of its input.
func (ctx *ScanContext) Truncated() bool {
	return ctx.TimedOut || ctx.LimitExceeded
}
