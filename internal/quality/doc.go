// Package quality decides whether a freshly cut segment is fit for the
// library.
//
// A fixed number of frames is sampled evenly across the clip and converted to
// grayscale. The mean brightness must fall inside configured bounds and the
// average share of pixels that change noticeably between consecutive samples
// must reach a minimum, which filters out black, washed-out and static footage.
// Rejections are ordinary outcomes reported in a Report, not errors.
package quality
