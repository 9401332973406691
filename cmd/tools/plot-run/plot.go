package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/banshee-data/beacon-dock/internal/httputil"
	"github.com/banshee-data/beacon-dock/internal/monitoring"
	"github.com/banshee-data/beacon-dock/internal/security"
	"github.com/banshee-data/beacon-dock/internal/telemetry"
)

type options struct {
	LogPath   string
	ServerURL string
	SessionID string
	OutDir    string
}

func run(o options, client httputil.HTTPClient) (int, error) {
	if (o.LogPath == "") == (o.ServerURL == "") {
		return 0, errors.New("exactly one of -log or -url is required")
	}
	if err := security.ValidateOutputPath(o.OutDir); err != nil {
		return 0, fmt.Errorf("invalid output directory: %w", err)
	}

	rp := monitoring.NewRunPlotter()
	if o.LogPath != "" {
		f, err := os.Open(o.LogPath)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		if _, err := loadLog(f, rp); err != nil {
			return 0, err
		}
	} else {
		frames, err := fetchFrames(client, o.ServerURL, o.SessionID)
		if err != nil {
			return 0, err
		}
		for _, f := range frames {
			rp.Add(f)
		}
	}

	if rp.SampleCount() == 0 {
		return 0, errors.New("no navigation frames found")
	}
	return rp.GeneratePlots(o.OutDir)
}

// loadLog adds every parseable frame line from r to rp and returns how many
// were added.
func loadLog(r io.Reader, rp *monitoring.RunPlotter) (int, error) {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		f, ok := telemetry.ParseLine(strings.TrimSpace(sc.Text()), time.Time{})
		if !ok {
			continue
		}
		rp.Add(f)
		n++
	}
	return n, sc.Err()
}

// fetchFrames reads frames from a telemetry server, either the live buffer
// or one stored session.
func fetchFrames(client httputil.HTTPClient, baseURL, session string) ([]telemetry.ParsedFrame, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(telemetry.MaxFrameBuffer))
	if session != "" {
		q.Set("session", session)
	}
	endpoint := strings.TrimRight(baseURL, "/") + "/api/frames?" + q.Encode()

	resp, err := client.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch frames: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch frames: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var frames []telemetry.ParsedFrame
	if err := json.NewDecoder(resp.Body).Decode(&frames); err != nil {
		return nil, fmt.Errorf("decode frames: %w", err)
	}
	return frames, nil
}
