package quality

import (
	"image"
)

// SampleIndices returns n frame indices spread evenly over [0, total-1],
// truncated toward zero. It returns nil when n or total is not positive.
func SampleIndices(total, n int) []int {
	if total <= 0 || n <= 0 {
		return nil
	}
	if n == 1 {
		return []int{0}
	}
	last := total - 1
	step := float64(last) / float64(n-1)
	indices := make([]int, n)
	for i := 0; i < n-1; i++ {
		indices[i] = int(float64(i) * step)
	}
	indices[n-1] = last
	return indices
}

// MeanBrightness returns the mean pixel value of a grayscale frame in [0, 255].
func MeanBrightness(img *image.Gray) float64 {
	if img == nil {
		return 0
	}
	b := img.Bounds()
	count := b.Dx() * b.Dy()
	if count == 0 {
		return 0
	}
	var sum uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y) : img.PixOffset(b.Min.X, y)+b.Dx()]
		for _, v := range row {
			sum += uint64(v)
		}
	}
	return float64(sum) / float64(count)
}

// MotionPercent returns the percentage of pixels whose absolute difference
// between a and b exceeds threshold. Frames of different size are compared
// over their shared region.
func MotionPercent(a, b *image.Gray, threshold uint8) float64 {
	if a == nil || b == nil {
		return 0
	}
	region := a.Bounds().Intersect(b.Bounds())
	total := region.Dx() * region.Dy()
	if total == 0 {
		return 0
	}
	changed := 0
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			pa := a.Pix[a.PixOffset(x, y)]
			pb := b.Pix[b.PixOffset(x, y)]
			diff := pa - pb
			if pb > pa {
				diff = pb - pa
			}
			if diff > threshold {
				changed++
			}
		}
	}
	return float64(changed) * 100 / float64(total)
}
