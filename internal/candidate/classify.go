package candidate

import (
	"math"
	"strings"
)

var vehicleCategories = []string{"car", "truck", "bus", "motorcycle"}

// Classify maps a raw detector category onto a hazard type and display label.
// The rule table is deterministic: vehicle-like categories and pedestrians get
// dedicated types, potholes come from the base road-damage classes, and
// everything else becomes a generic collision-risk object eligible for
// learned-sample matching downstream.
func Classify(rawCategory string) (Type, string) {
	cat := strings.ToLower(rawCategory)

	for _, v := range vehicleCategories {
		if strings.Contains(cat, v) {
			return TypeVehicle, "VEHICLE"
		}
	}
	if strings.Contains(cat, "person") {
		return TypePedestrian, "PEDESTRIAN"
	}
	if strings.Contains(cat, "pothole") {
		return TypePothole, "POTHOLE"
	}
	return TypeCollisionRisk, "OBJECT"
}

// Distance heuristic constants. These are behavioral design constants, not a
// physical camera model; changing them changes every downstream distance
// readout.
const (
	distanceScale   = 0.45
	distanceEpsilon = 0.001
	minDistance     = 0.5
	maxDistance     = 30.0
)

// EstimateDistance derives a monocular distance estimate (in meters) from the
// normalized bounding-box width: wider boxes read as closer objects.
func EstimateDistance(normWidth float64) float64 {
	d := distanceScale / (normWidth + distanceEpsilon)
	return math.Min(math.Max(d, minDistance), maxDistance)
}
