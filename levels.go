package vhkb

// device registers
const (
	regSpeed   = 1130 // 0 off, 2/3/4 fan level; 1 is written for "on"
	regMode    = 1161
	regTimer   = 1110
	modeBoost  = 4
	timerCount = 2
)

// percentToLevel buckets a HomeKit RotationSpeed into the three fan levels.
func percentToLevel(percent int) int {
	switch {
	case percent <= 0:
		return 0
	case percent <= 34:
		return 2
	case percent <= 57:
		return 3
	default:
		return 4
	}
}

// levelToPercent is lossy; each level reads back as one representative percentage.
func levelToPercent(level int) int {
	switch level {
	case 2:
		return 25
	case 3:
		return 45
	case 4:
		return 70
	default:
		return 0
	}
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
