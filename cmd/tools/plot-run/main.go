// Command plot-run renders heading, signal and duty plots from a captured
// telemetry log or from a running telemetry server.
package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/banshee-data/beacon-dock/internal/httputil"
)

var (
	logPath   = flag.String("log", "", "Captured serial log to plot")
	serverURL = flag.String("url", "", "Telemetry server base URL to fetch frames from, e.g. http://localhost:8080")
	sessionID = flag.String("session", "", "With -url, plot this stored session instead of the live buffer")
	outDir    = flag.String("out", "plots", "Output directory for PNG files")
)

func main() {
	flag.Parse()

	client := httputil.NewStandardClient(&http.Client{Timeout: 10 * time.Second})
	n, err := run(options{
		LogPath:   *logPath,
		ServerURL: *serverURL,
		SessionID: *sessionID,
		OutDir:    *outDir,
	}, client)
	if err != nil {
		log.Fatalf("plot-run: %v", err)
	}
	log.Printf("wrote %d plots to %s", n, *outDir)
}
