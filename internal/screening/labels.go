package screening

import "github.com/ry4ntr1/ppe-violation-detection/internal/models"

// Requirement ids the detection labels map onto
const (
	RequirementHardhat    = "hardhat"
	RequirementSafetyVest = "safety-vest"
)

// labelRequirements maps exact model class names to requirement ids.
// "Safety" is an alias some model builds emit for the vest class; it would
// also match any unrelated class the model might later call "Safety".
var labelRequirements = map[string]string{
	"Hardhat":     RequirementHardhat,
	"Safety Vest": RequirementSafetyVest,
	"Safety":      RequirementSafetyVest,
}

// RequirementFor returns the requirement satisfied by a class label
func RequirementFor(class string) (string, bool) {
	id, ok := labelRequirements[class]
	return id, ok
}

// Matched returns the requirement ids satisfied by a detection set
func Matched(detections []models.Detection) map[string]bool {
	matched := make(map[string]bool)
	for _, d := range detections {
		if id, ok := RequirementFor(d.Class); ok {
			matched[id] = true
		}
	}
	return matched
}
