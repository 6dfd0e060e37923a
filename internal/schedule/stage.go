package schedule

import "strings"

// Growth stages a schedule can be generated for.
const (
	StageSeed       = "seed"
	StageSeedling   = "seedling"
	StageVegetative = "vegetative"
	StageFlowering  = "flowering"
	StageFruiting   = "fruiting"
	StageMature     = "mature"
)

var validStages = map[string]bool{
	StageSeed:       true,
	StageSeedling:   true,
	StageVegetative: true,
	StageFlowering:  true,
	StageFruiting:   true,
	StageMature:     true,
}

// NormalizeStage lowercases and validates a stage name. Unknown or empty
// stages default to seed.
func NormalizeStage(stage string) string {
	s := strings.ToLower(strings.TrimSpace(stage))
	if validStages[s] {
		return s
	}
	return StageSeed
}
