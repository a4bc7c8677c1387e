package render

import (
	"math/rand/v2"
	"testing"
	"time"
)

func TestPlanTimelineLongerBackgroundPicksWindow(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	bg, audio := 200*time.Second, 45*time.Second
	for i := 0; i < 500; i++ {
		plan := PlanTimeline(bg, audio, rnd)
		if plan.Stretched() {
			t.Fatal("longer background must not be stretched")
		}
		if plan.Start < 0 || plan.Start > 155*time.Second {
			t.Fatalf("start %v outside [0,155s]", plan.Start)
		}
		if plan.Start+plan.Audio > bg {
			t.Fatalf("window overruns background: %+v", plan)
		}
	}
}

func TestPlanTimelineCoversWholeRange(t *testing.T) {
	rnd := rand.New(rand.NewPCG(7, 7))
	var low, high bool
	for i := 0; i < 2000; i++ {
		plan := PlanTimeline(200*time.Second, 45*time.Second, rnd)
		if plan.Start < 20*time.Second {
			low = true
		}
		if plan.Start > 135*time.Second {
			high = true
		}
	}
	if !low || !high {
		t.Fatalf("expected starts near both ends of the range (low=%v high=%v)", low, high)
	}
}

func TestPlanTimelineShorterBackgroundStretches(t *testing.T) {
	plan := PlanTimeline(40*time.Second, 60*time.Second, nil)
	if !plan.Stretched() || plan.Speed != 1.5 || plan.Start != 0 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	equal := PlanTimeline(60*time.Second, 60*time.Second, nil)
	if equal.Stretched() || equal.Start != 0 {
		t.Fatalf("equal lengths should be untouched: %+v", equal)
	}
}

func TestPlanCrop(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          Crop
	}{
		{"landscape", 1920, 1080, Crop{Width: 608, Height: 1080, X: 656, Applied: true}},
		{"tall", 1080, 2400, Crop{Width: 1080, Height: 1920, Y: 240, Applied: true}},
		{"already vertical", 1080, 1920, Crop{Width: 1080, Height: 1920}},
		{"within tolerance", 1090, 1920, Crop{Width: 1090, Height: 1920}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := PlanCrop(tc.width, tc.height, TargetAspect); got != tc.want {
				t.Fatalf("PlanCrop(%d,%d) = %+v, want %+v", tc.width, tc.height, got, tc.want)
			}
		})
	}
}
