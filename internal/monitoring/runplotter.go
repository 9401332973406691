package monitoring

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/beacon-dock/internal/security"
	"github.com/banshee-data/beacon-dock/internal/telemetry"
	"github.com/banshee-data/beacon-dock/internal/units"
)

// RunSample is one navigation frame as plotted.
type RunSample struct {
	TMs      uint32
	ThetaDeg float64
	Signal   float64
	DutyL    uint16
	DutyR    uint16
	Detected bool
}

// RunPlotter accumulates navigation frames per sender and renders heading,
// signal and duty plots once a run is over.
type RunPlotter struct {
	mu      sync.Mutex
	samples map[string][]RunSample
}

// NewRunPlotter returns an empty plotter.
func NewRunPlotter() *RunPlotter {
	return &RunPlotter{samples: make(map[string][]RunSample)}
}

// Add records a frame parsed from a telemetry line.
func (rp *RunPlotter) Add(f telemetry.ParsedFrame) {
	rp.add(f.NodeKey(), RunSample{
		TMs:      f.TMs,
		ThetaDeg: f.ThetaDeg,
		Signal:   f.Signal,
		DutyL:    f.DutyL,
		DutyR:    f.DutyR,
		Detected: f.Detected,
	})
}

// Emit records a frame produced in-process. It makes RunPlotter a
// telemetry.Sink.
func (rp *RunPlotter) Emit(f telemetry.Frame) error {
	rp.add(string(telemetry.SourceLocal), RunSample{
		TMs:      f.TimestampMs,
		ThetaDeg: units.ToDegrees(f.Theta),
		Signal:   f.TotalSignal,
		DutyL:    f.DutyLeft,
		DutyR:    f.DutyRight,
		Detected: f.Detected,
	})
	return nil
}

func (rp *RunPlotter) add(key string, s RunSample) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.samples[key] = append(rp.samples[key], s)
}

// Nodes returns the sender keys seen so far, sorted.
func (rp *RunPlotter) Nodes() []string {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	keys := make([]string, 0, len(rp.samples))
	for k := range rp.samples {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SampleCount returns the number of frames recorded for all senders.
func (rp *RunPlotter) SampleCount() int {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	n := 0
	for _, s := range rp.samples {
		n += len(s)
	}
	return n
}

// GeneratePlots writes heading, signal and duty PNGs for every sender into
// outputDir and returns the number of files written.
func (rp *RunPlotter) GeneratePlots(outputDir string) (int, error) {
	if outputDir == "" {
		return 0, fmt.Errorf("no output directory configured")
	}

	rp.mu.Lock()
	defer rp.mu.Unlock()

	if len(rp.samples) == 0 {
		return 0, nil
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}

	written := 0
	for node, samples := range rp.samples {
		n, err := generateNodePlots(outputDir, node, samples)
		written += n
		if err != nil {
			return written, fmt.Errorf("node %s: %w", node, err)
		}
	}
	return written, nil
}

func generateNodePlots(outputDir, node string, samples []RunSample) (int, error) {
	sorted := make([]RunSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].TMs < sorted[b].TMs })

	t0 := sorted[0].TMs
	heading := make(plotter.XYs, 0, len(sorted))
	signal := make(plotter.XYs, 0, len(sorted))
	dutyL := make(plotter.XYs, 0, len(sorted))
	dutyR := make(plotter.XYs, 0, len(sorted))
	for _, s := range sorted {
		x := float64(s.TMs-t0) / 1000
		// Heading is meaningless until the beacon has been seen.
		if s.Detected {
			heading = append(heading, plotter.XY{X: x, Y: s.ThetaDeg})
		}
		signal = append(signal, plotter.XY{X: x, Y: s.Signal})
		dutyL = append(dutyL, plotter.XY{X: x, Y: float64(s.DutyL)})
		dutyR = append(dutyR, plotter.XY{X: x, Y: float64(s.DutyR)})
	}

	plots := []struct {
		file   string
		title  string
		yLabel string
		series []namedSeries
	}{
		{"heading", "Filtered heading", "Heading (deg)", []namedSeries{{"theta", heading}}},
		{"signal", "Total beacon signal", "Signal", []namedSeries{{"S", signal}}},
		{"duties", "Wheel duties", "Duty", []namedSeries{{"left", dutyL}, {"right", dutyR}}},
	}

	written := 0
	for _, spec := range plots {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("%s - %s", node, spec.title)
		p.X.Label.Text = "Time (s)"
		p.Y.Label.Text = spec.yLabel
		p.Legend.Top = true
		p.Legend.Left = false
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10

		colors := generateColors(len(spec.series))
		for i, s := range spec.series {
			if len(s.points) == 0 {
				continue
			}
			line, err := plotter.NewLine(s.points)
			if err != nil {
				return written, err
			}
			line.Color = colors[i]
			line.Width = vg.Points(1)
			p.Add(line)
			p.Legend.Add(s.name, line)
		}

		file := filepath.Join(outputDir, fmt.Sprintf("%s_%s.png", security.SanitizeFilename(node), spec.file))
		if err := p.Save(12*vg.Inch, 5*vg.Inch, file); err != nil {
			return written, fmt.Errorf("save %s plot: %w", spec.file, err)
		}
		written++
	}
	return written, nil
}

type namedSeries struct {
	name   string
	points plotter.XYs
}

// generateColors returns n evenly spaced hues.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.45)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
