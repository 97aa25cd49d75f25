package candidate

import (
	"time"

	"github.com/UmarMaaz/pot-hole-detector/internal/vision"
)

// Type classifies a detection for the renderer.
type Type int

const (
	TypePothole Type = iota
	TypeCollisionRisk
	TypePedestrian
	TypeVehicle
	TypeLearned
)

func (t Type) String() string {
	switch t {
	case TypePothole:
		return "POTHOLE"
	case TypeCollisionRisk:
		return "COLLISION_RISK"
	case TypePedestrian:
		return "PEDESTRIAN"
	case TypeVehicle:
		return "VEHICLE"
	case TypeLearned:
		return "LEARNED"
	default:
		return "UNKNOWN"
	}
}

// Candidate is one unclassified detector output for a single frame. It lives
// only until it is folded into a Detection and is never persisted.
type Candidate struct {
	RawCategory string
	Score       float64
	Box         vision.Rect
	Distance    float64
	Timestamp   time.Time
}

// Detection is a Candidate enriched with classification and, when promoted
// against the learned-sample bank, the match confidence. Consumed by the
// renderer; never persisted.
type Detection struct {
	Candidate
	Type       Type
	Label      string
	MatchScore float64 // cosine similarity, set only for TypeLearned
}
