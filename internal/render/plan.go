package render

import (
	"math"
	"math/rand/v2"
	"time"
)

// TargetAspect is the vertical 9:16 output ratio.
const TargetAspect = 9.0 / 16.0

const aspectTolerance = 0.01

// Timeline reconciles the background length with the narration length.
type Timeline struct {
	Audio      time.Duration
	Background time.Duration
	// Start is the background offset used when the background is longer.
	Start time.Duration
	// Speed multiplies presentation timestamps when the background is
	// shorter; 1 means no retiming.
	Speed float64
}

// Stretched reports whether the background playback rate is altered.
func (t Timeline) Stretched() bool {
	return t.Speed != 1
}

// PlanTimeline picks a uniformly random window of the background when it is
// longer than the audio, otherwise stretches it to the audio length.
func PlanTimeline(background, audio time.Duration, rnd *rand.Rand) Timeline {
	plan := Timeline{Audio: audio, Background: background, Speed: 1}
	switch {
	case background > audio:
		slack := background - audio
		if rnd == nil {
			plan.Start = time.Duration(rand.Int64N(int64(slack) + 1))
		} else {
			plan.Start = time.Duration(rnd.Int64N(int64(slack) + 1))
		}
	case background < audio && background > 0:
		plan.Speed = audio.Seconds() / background.Seconds()
	}
	return plan
}

// Crop is a centred crop rectangle in source pixels.
type Crop struct {
	Width   int
	Height  int
	X       int
	Y       int
	Applied bool
}

// PlanCrop centre-crops the longer dimension so width/height matches target.
// Sources already within tolerance are left untouched.
func PlanCrop(width, height int, target float64) Crop {
	crop := Crop{Width: width, Height: height}
	if width <= 0 || height <= 0 || target <= 0 {
		return crop
	}
	ratio := float64(width) / float64(height)
	if math.Abs(ratio-target) < aspectTolerance {
		return crop
	}
	if ratio > target {
		crop.Width = int(math.Round(float64(height) * target))
		crop.X = (width - crop.Width) / 2
	} else {
		crop.Height = int(math.Round(float64(width) / target))
		crop.Y = (height - crop.Height) / 2
	}
	crop.Applied = true
	return crop
}
