package media

// Speed factors tried in order when the footage is shorter than the narration.
var speedFactors = []float64{1.0, 1.2, 1.25}

// SpeedPlan describes how merged footage is retimed to cover the narration.
type SpeedPlan struct {
	// Factor multiplies presentation timestamps; the retimed video lasts
	// videoSec*Factor seconds.
	Factor float64
	// Target is the narration length; the retimed video is cut there.
	Target float64
	// Clamped is set when even the largest factor leaves the video short.
	Clamped bool
}

// PlanSpeed picks the smallest factor in {1.0, 1.2, 1.25} for which the
// retimed video covers audioSec. If none does, it clamps to 1.25.
func PlanSpeed(videoSec, audioSec float64) SpeedPlan {
	for _, f := range speedFactors {
		if videoSec*f >= audioSec {
			return SpeedPlan{Factor: f, Target: audioSec}
		}
	}
	return SpeedPlan{
		Factor:  speedFactors[len(speedFactors)-1],
		Target:  audioSec,
		Clamped: true,
	}
}
