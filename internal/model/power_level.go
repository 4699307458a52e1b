package model

import "github.com/logpass/node/internal/config"

// PowerLevel is the quantized authorization tier reached by a set of
// signatures: a level index 0..P-1, the raw accumulated power capped at
// config.MaxPower, and the participant count that contributed to it.
type PowerLevel struct {
	Level        uint8
	Power        uint32
	Participants uint32
}

var namedLevels = [config.PowerLevels]PowerLevel{
	{Level: 0, Power: 0, Participants: 0}, // INVALID
	{Level: 1, Power: 1, Participants: 1}, // LOWEST
	{Level: 2, Power: 1, Participants: 1}, // LOW
	{Level: 3, Power: 1, Participants: 1}, // MEDIUM
	{Level: 4, Power: 1, Participants: 1}, // HIGH
}

func Invalid() PowerLevel { return namedLevels[0] }
func Lowest() PowerLevel  { return namedLevels[1] }
func Low() PowerLevel     { return namedLevels[2] }
func Medium() PowerLevel  { return namedLevels[3] }
func High() PowerLevel    { return namedLevels[4] }

func NewPowerLevel(level uint8, power, participants uint32) PowerLevel {
	if power > config.MaxPower {
		power = config.MaxPower
	}
	return PowerLevel{Level: level, Power: power, Participants: participants}
}

func (p PowerLevel) Index() uint8 { return p.Level }

func (p PowerLevel) AtLeast(other PowerLevel) bool { return p.Level >= other.Level }

// LevelForPower returns the highest level k such that rawPower >=
// rules.powerLevels[k]; ties in raw power resolve to the highest k whose
// threshold is satisfied.
func LevelForPower(rawPower uint32, thresholds [config.PowerLevels]uint32) uint8 {
	best := uint8(0)
	for k := config.PowerLevels - 1; k >= 0; k-- {
		if rawPower >= thresholds[k] {
			best = uint8(k)
			break
		}
	}
	return best
}
