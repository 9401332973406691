package db

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/beacon-dock/internal/telemetry"
)

// FrameStats summarises a set of frames.
type FrameStats struct {
	Count          int     `json:"count"`
	DetectedFrac   float64 `json:"detectedFraction"`
	SearchFrac     float64 `json:"searchFraction"`
	SignalMean     float64 `json:"signalMean"`
	SignalStdDev   float64 `json:"signalStdDev"`
	SignalP50      float64 `json:"signalP50"`
	SignalP95      float64 `json:"signalP95"`
	SignalMax      float64 `json:"signalMax"`
	ThetaMeanDeg   float64 `json:"thetaMeanDeg"`
	ThetaStdDevDeg float64 `json:"thetaStdDevDeg"`
}

// ComputeFrameStats summarises frames. Heading statistics cover detected
// frames only, since the heading is frozen while the beacon is lost.
func ComputeFrameStats(frames []telemetry.ParsedFrame) FrameStats {
	s := FrameStats{Count: len(frames)}
	if len(frames) == 0 {
		return s
	}

	signals := make([]float64, 0, len(frames))
	var thetas []float64
	var detected, search int
	for _, f := range frames {
		signals = append(signals, f.Signal)
		if f.Detected {
			detected++
			thetas = append(thetas, f.ThetaDeg)
		}
		if f.Mode == telemetry.ModeSearch {
			search++
		}
	}
	n := float64(len(frames))
	s.DetectedFrac = float64(detected) / n
	s.SearchFrac = float64(search) / n

	s.SignalMean = stat.Mean(signals, nil)
	if len(signals) > 1 {
		s.SignalStdDev = stat.StdDev(signals, nil)
	}
	sort.Float64s(signals)
	s.SignalP50 = stat.Quantile(0.5, stat.Empirical, signals, nil)
	s.SignalP95 = stat.Quantile(0.95, stat.Empirical, signals, nil)
	s.SignalMax = signals[len(signals)-1]

	if len(thetas) > 0 {
		s.ThetaMeanDeg = stat.Mean(thetas, nil)
		if len(thetas) > 1 {
			s.ThetaStdDevDeg = stat.StdDev(thetas, nil)
		}
	}
	return s
}

// SessionStats loads a session's frames and summarises them.
func (db *DB) SessionStats(sessionID string) (FrameStats, error) {
	if _, err := db.GetSession(sessionID); err != nil {
		return FrameStats{}, err
	}
	rows, err := db.RecentFrames(FrameFilter{SessionID: sessionID, Limit: -1})
	if err != nil {
		return FrameStats{}, fmt.Errorf("failed to load session frames: %w", err)
	}
	frames := make([]telemetry.ParsedFrame, len(rows))
	for i, r := range rows {
		frames[i] = r.ParsedFrame
	}
	return ComputeFrameStats(frames), nil
}
