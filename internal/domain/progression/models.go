package progression

// XPPerLevel is the fixed divisor of the leveling formula.
const XPPerLevel = 500

// Progression is the user's gamification state. XP only ever grows.
type Progression struct {
	XP                int64 `json:"xp"`
	Level             int   `json:"level"`
	HasSeenOnboarding bool  `json:"hasSeenOnboarding"`
}

// LevelForXP computes the level tier for a given XP total:
// floor(xp/500) + 1.
func LevelForXP(xp int64) int {
	if xp < 0 {
		return 1
	}
	return int(xp/XPPerLevel) + 1
}

// Grant adds xp and recomputes the level. It returns true when the level
// strictly increased.
func (p *Progression) Grant(xp int64) bool {
	if xp <= 0 {
		return false
	}
	p.XP += xp
	level := LevelForXP(p.XP)
	leveledUp := level > p.Level
	p.Level = level
	return leveledUp
}
