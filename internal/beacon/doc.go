// Package beacon estimates the bearing and strength of an infrared docking
// beacon from four opposed light sensors.
//
// Each tick the raw samples pass through a per-channel median-of-3 filter and
// a linear calibration, are combined into an instantaneous bearing estimate,
// and are then smoothed by a rate-limited heading filter. A guard freezes the
// heading while the sensors are saturated or the signal collapses, so the
// estimate coasts on its last good value instead of chasing a meaningless
// bearing.
package beacon
