package rescue

import (
	"errors"
	"fmt"
)

// Sentinel configuration errors, wrapped with fmt.Errorf the way
// actuators.MAVLinkController reports protocol errors — never panics.
var (
	ErrInvalidThrottleRange = errors.New("rescue: throttleMin must be less than throttleMax")
	ErrInvalidRates         = errors.New("rescue: ascend/descend rates must be positive")
	ErrInvalidAngle         = errors.New("rescue: angle must be positive")
)

// Validate checks a Config for internally-consistent parameters before it is
// handed to New. In-flight failures (spec.md §7) are never errors; this is
// purely a boot-time sanity check on the persisted parameter set.
func (c Config) Validate() error {
	if c.ThrottleMin >= c.ThrottleMax {
		return fmt.Errorf("validate config: %w (min=%v max=%v)", ErrInvalidThrottleRange, c.ThrottleMin, c.ThrottleMax)
	}
	if c.AscendRateCmS <= 0 || c.DescendRateCmS <= 0 {
		return fmt.Errorf("validate config: %w (ascend=%v descend=%v)", ErrInvalidRates, c.AscendRateCmS, c.DescendRateCmS)
	}
	if c.AngleDeg <= 0 {
		return fmt.Errorf("validate config: %w (angle=%v)", ErrInvalidAngle, c.AngleDeg)
	}
	return nil
}
