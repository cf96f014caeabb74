// Package sink writes session output: one video file per camera and one CSV
// log per sensing run.
//
// File names follow <base><N>.<ext>, where N is one more than the highest
// index already present in the target directory, so repeated runs never
// overwrite earlier output.
package sink
