// Package motion implements the frame-differencing motion heuristic and the
// window-level light-change heuristic.
//
// Motion: both frames are reduced to 8-bit intensity, a pixel counts as
// changed when |prev-cur| > diffThreshold, and motion is detected when the
// changed fraction reaches motionRatio (inclusive). This is a coarse global
// check: lighting changes produce false positives and small slow objects
// produce false negatives.
//
// Light: the mean intensity of each window is compared with the previous
// window's mean.
package motion
