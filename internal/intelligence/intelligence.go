// Package intelligence declares the contract for the fitness-analysis
// algorithms (TSS/CTL/ATL, VDOT, pattern detection) this core dispatches
// to but does not implement — they are an external collaborator per the
// system's scope boundary.
package intelligence

import (
	"context"
	"time"

	"github.com/pierre-fitness/pierre-core/internal/provider"
)

// TrainingLoad is the computed output of insights.training_load.
type TrainingLoad struct {
	AthleteID        string    `json:"athlete_id"`
	AsOf             time.Time `json:"as_of"`
	ChronicLoad      float64   `json:"chronic_training_load"`
	AcuteLoad        float64   `json:"acute_training_load"`
	AcuteChronicRatio float64  `json:"acute_chronic_ratio"`
	Summary          string    `json:"summary,omitempty"`
}

// Engine computes fitness-intelligence insights from a window of
// provider-agnostic activities. Implementations live outside this module.
type Engine interface {
	TrainingLoad(ctx context.Context, athleteID string, activities []provider.Activity) (*TrainingLoad, error)
}
