package api

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/beacon-dock/internal/httputil"
	"github.com/banshee-data/beacon-dock/internal/telemetry"
	"github.com/banshee-data/beacon-dock/internal/units"
)

// headingChart renders the recent heading and signal per node as an HTML
// page of go-echarts line charts.
func (s *Server) headingChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	u, err := s.requestUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	limit, err := queryLimit(r, telemetry.MaxFrameBuffer, telemetry.MaxFrameBuffer)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	frames := s.source.RecentFrames(limit)
	heading := make(map[string][]opts.LineData)
	signal := make(map[string][]opts.LineData)
	for _, f := range frames {
		node := f.NodeKey()
		heading[node] = append(heading[node], opts.LineData{Value: []interface{}{f.TMs, units.ConvertAngle(f.ThetaDeg, u)}})
		signal[node] = append(signal[node], opts.LineData{Value: []interface{}{f.TMs, f.Signal}})
	}
	nodes := make([]string, 0, len(heading))
	for node := range heading {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	subtitle := fmt.Sprintf("frames=%d nodes=%d", len(frames), len(nodes))
	headingLine := newTimeLine("Heading", subtitle, "theta ("+u+")")
	signalLine := newTimeLine("Total signal", subtitle, "S")
	for _, node := range nodes {
		headingLine.AddSeries(node, heading[node])
		signalLine.AddSeries(node, signal[node])
	}

	page := components.NewPage()
	page.PageTitle = "Beacon navigation"
	page.AddCharts(headingLine, signalLine)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func newTimeLine(title, subtitle, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "t (ms)", NameLocation: "middle", NameGap: 25, Min: "dataMin", Max: "dataMax"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, NameLocation: "middle", NameGap: 40}),
	)
	return line
}
