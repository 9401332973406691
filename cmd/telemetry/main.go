package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/beacon-dock/internal/api"
	"github.com/banshee-data/beacon-dock/internal/config"
	"github.com/banshee-data/beacon-dock/internal/db"
	"github.com/banshee-data/beacon-dock/internal/serialmux"
	"github.com/banshee-data/beacon-dock/internal/telemetry"
	"github.com/banshee-data/beacon-dock/internal/timeutil"
	"github.com/banshee-data/beacon-dock/internal/units"
	"github.com/banshee-data/beacon-dock/internal/version"
)

var (
	devMode     = flag.Bool("dev", false, "Replay simulated docking telemetry instead of opening a serial port")
	listen      = flag.String("listen", ":8080", "Listen address")
	port        = flag.String("port", "", "Serial port to use (discovered when empty, \"none\" to serve stored data only, ignored in dev mode)")
	serialSpec  = flag.String("serial", "115200,"+serialmux.DefaultFraming, "Serial line settings as <baud>[,<framing>]")
	dbPath      = flag.String("db", "telemetry.db", "SQLite database file")
	replayPath  = flag.String("replay", "", "Import a captured serial log into the database and exit")
	tuningPath  = flag.String("config", "", "Tuning config JSON, used for the arrival threshold")
	unitsFlag   = flag.String("units", units.Degrees, "Default angle units for the API ("+units.GetValidUnitsString()+")")
	sessionGap  = flag.Duration("session-gap", db.DefaultSessionGap, "Start a new session after a node is quiet this long")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// link is the serial side of the receiver: a reconnecting port in
// production, a looping mock in dev mode.
type link interface {
	telemetry.LineSource
	SendCommand(string) error
	Monitor(context.Context) error
	Close() error
	AttachAdminRoutes(*http.ServeMux)
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		version.Print(os.Stdout, "telemetry")
		return
	}

	if flag.NArg() > 0 && flag.Arg(0) == "migrate" {
		if err := db.RunMigrateCommand(flag.Args()[1:], *dbPath, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !units.IsValid(*unitsFlag) {
		log.Fatalf("invalid -units %q, expected one of: %s", *unitsFlag, units.GetValidUnitsString())
	}

	tc := config.EmptyTuningConfig()
	if *tuningPath != "" {
		var err error
		if tc, err = config.LoadTuningConfig(*tuningPath); err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	clock := timeutil.RealClock{}
	recorder := db.NewRecorder(database, db.RecorderConfig{
		SessionGap:   *sessionGap,
		ArriveSignal: tc.GetSignalArrive(),
	})

	if *replayPath != "" {
		n, err := replayFile(*replayPath, recorder, clock)
		if err != nil {
			log.Fatalf("replay: %v", err)
		}
		if err := recorder.Close(clock.Now()); err != nil {
			log.Printf("failed to close sessions: %v", err)
		}
		log.Printf("imported %d frames from %s", n, *replayPath)
		return
	}

	portOpts, err := serialmux.ParsePortOptions(*serialSpec)
	if err != nil {
		log.Fatalf("invalid -serial: %v", err)
	}
	receiver := telemetry.NewReceiver(clock, *port, portOpts.BaudRate)
	receiver.OnFrame(func(f telemetry.ParsedFrame) {
		if err := recorder.RecordFrame(f); err != nil {
			log.Printf("failed to record frame: %v", err)
		}
	})

	var serialLink link
	switch {
	case *devMode:
		lines, err := devLines()
		if err != nil {
			log.Fatalf("failed to build dev telemetry: %v", err)
		}
		serialLink = serialmux.NewMockSerialMux(lines, 200*time.Millisecond)
		receiver.SetConnected("dev")
	case *port == "none":
		serialLink = serialmux.NewDisabledSerialMux()
		receiver.SetDisconnected(serialmux.ErrNoPort)
	default:
		serialLink = serialmux.NewRealLink(serialmux.LinkConfig{
			Path:    *port,
			Options: portOpts,
		}, receiver)
		log.Printf("serial link %s at %s", portLabel(*port), portOpts)
	}
	defer serialLink.Close()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := serialLink.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := receiver.Consume(ctx, serialLink); err != nil && err != context.Canceled {
			log.Printf("receiver stopped: %v", err)
		}
		log.Print("receiver routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(receiver, serialLink, *unitsFlag, api.WithDB(database), api.WithClock(clock)).ServeMux()
		serialLink.AttachAdminRoutes(mux)
		database.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()
		log.Printf("listening on %s", *listen)

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		// Event streams never finish on their own, so a failed graceful
		// shutdown is expected while dashboards are connected.
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	if err := recorder.Close(clock.Now()); err != nil {
		log.Printf("failed to close sessions: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}

func portLabel(path string) string {
	if path == "" {
		return "(discovered)"
	}
	return path
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [flags]\n       %s migrate <action>\n\nFlags:\n", os.Args[0], os.Args[0])
	flag.PrintDefaults()
	fmt.Fprintln(out)
	db.PrintMigrateHelp(out)
}
