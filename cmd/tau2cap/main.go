// Command tau2cap runs unattended thermal acquisition: it configures the
// camera, then alternates between temperature sampling on the command
// channel and fixed-length streaming capture windows, persisting frames to
// run directories and metadata to SQLite.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/lupm-obs/tau2grab/internal/config"
	"github.com/lupm-obs/tau2grab/internal/frame"
	"github.com/lupm-obs/tau2grab/internal/monitoring"
	"github.com/lupm-obs/tau2grab/internal/quicklook"
	"github.com/lupm-obs/tau2grab/internal/recorder"
	"github.com/lupm-obs/tau2grab/internal/storage"
	"github.com/lupm-obs/tau2grab/internal/tau2"
	"github.com/lupm-obs/tau2grab/internal/transport"
	"github.com/lupm-obs/tau2grab/internal/version"
)

var (
	configPath     = flag.String("config", "", "Path to JSON acquisition config")
	portOverride   = flag.String("port", "", "Serial port, overrides the config")
	once           = flag.Bool("once", false, "Run a single capture window and exit")
	ignoreSettings = flag.Bool("ignore-settings", false, "Capture even when the camera does not confirm all settings")
)

func main() {
	flag.Parse()
	monitoring.Logf("tau2cap %s", version.String())

	cfg := &config.Config{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	port := cfg.GetPort()
	if *portOverride != "" {
		port = *portOverride
	}

	link, err := transport.OpenSerial(port, cfg.GetPortOptions())
	if err != nil {
		log.Fatalf("open camera port: %v", err)
	}

	guard := tau2.GuardPermissive
	if cfg.GetStrictMode() {
		guard = tau2.GuardStrict
	}
	cam := tau2.New(link, tau2.Options{
		Guard:       guard,
		SettleDelay: cfg.GetSettleDelay(),
		UARTWrapped: cfg.GetUARTWrapped(),
		SyncTimeout: cfg.GetSyncTimeout(),
	})
	defer cam.Close()

	if err := cam.Ping(); err != nil {
		log.Fatalf("camera not responding on %s: %v", port, err)
	}
	cameraSerial, sensorSerial, err := cam.SerialNumbers()
	if err != nil {
		log.Fatalf("read serial numbers: %v", err)
	}

	if err := os.MkdirAll(cfg.GetOutputDir(), 0755); err != nil {
		log.Fatalf("create output directory: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.GetDatabasePath()), 0755); err != nil {
		log.Fatalf("create database directory: %v", err)
	}
	store, err := storage.Open(cfg.GetDatabasePath())
	if err != nil {
		log.Fatalf("open metadata store: %v", err)
	}
	defer store.Close()

	sessionID, err := store.CreateSession(cameraSerial, sensorSerial, port)
	if err != nil {
		log.Fatalf("create session: %v", err)
	}
	defer func() {
		if err := store.CloseSession(sessionID); err != nil {
			monitoring.Logf("close session: %v", err)
		}
	}()
	monitoring.Logf("session %s on camera %d", sessionID, cameraSerial)

	if err := configureCamera(cam, store, sessionID); err != nil {
		if !*ignoreSettings {
			log.Fatalf("camera configuration not confirmed: %v (use -ignore-settings to capture anyway)", err)
		}
		monitoring.Logf("continuing despite unconfirmed settings: %v", err)
	}

	if cfg.GetFFCOnStart() {
		if done, err := cam.RunFFCLong(); err != nil {
			monitoring.Logf("startup FFC failed: %v", err)
		} else if !done {
			monitoring.Logf("startup FFC did not report completion")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cam, store, cfg, sessionID); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("acquisition stopped: %v", err)
	}
	monitoring.Logf("acquisition finished")
}

// configureCamera applies the default settings and records every item's
// outcome. The returned error aggregates unconfirmed items.
func configureCamera(cam *tau2.Camera, store *storage.Store, sessionID string) error {
	results, err := tau2.ApplySettings(cam, tau2.DefaultSettings())
	for _, r := range results {
		if dbErr := store.RecordSettingReport(sessionID, r.Name, r.Want, r.Got, r.OK(), r.Err); dbErr != nil {
			monitoring.Logf("record setting report: %v", dbErr)
		}
	}
	return err
}

// run is the main acquisition loop: temperatures, one streaming window,
// background persist, pause, repeat.
func run(ctx context.Context, cam *tau2.Camera, store *storage.Store, cfg *config.Config, sessionID string) error {
	grabber := frame.NewGrabber(cam.Link(), cfg.GetSyncTimeout())
	var persist sync.WaitGroup
	defer persist.Wait()

	// A dead or misaligned camera fails every window until an operator
	// intervenes; keep those repeats out of the log.
	warnf := monitoring.Throttled(5 * time.Minute)

	lastTemps := time.Time{}
	for windowNum := 0; ; windowNum++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if time.Since(lastTemps) >= cfg.GetTempInterval() || lastTemps.IsZero() {
			sampleTemperatures(cam, store, sessionID)
			lastTemps = time.Now()
		}

		if err := cam.EnterStreaming(); err != nil {
			return fmt.Errorf("enter streaming mode: %w", err)
		}
		win, err := grabber.Capture(ctx, cfg.GetCaptureWindow())
		if cmdErr := cam.EnterCommand(); cmdErr != nil {
			return fmt.Errorf("return to command mode: %w", cmdErr)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			warnf("capture window %d failed: %v", windowNum, err)
		} else {
			persist.Add(1)
			go func(win *frame.Capture) {
				defer persist.Done()
				if err := persistWindow(win, store, cfg, sessionID); err != nil {
					monitoring.Logf("persist window: %v", err)
				}
			}(win)
		}

		if *once {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.GetCaptureInterval()):
		}
	}
}

func sampleTemperatures(cam *tau2.Camera, store *storage.Store, sessionID string) {
	for sensor, read := range map[string]func() (float64, error){
		"fpa":     cam.FPATemperature,
		"housing": cam.HousingTemperature,
		"shutter": cam.ShutterTemperature,
	} {
		celsius, err := read()
		if err != nil {
			monitoring.Logf("read %s temperature: %v", sensor, err)
			continue
		}
		monitoring.Logf("%s temperature %.2f C", sensor, celsius)
		if err := store.RecordTemperature(sessionID, sensor, celsius); err != nil {
			monitoring.Logf("record %s temperature: %v", sensor, err)
		}
	}
}

// persistWindow decodes a closed capture buffer, writes the frames to a run
// directory and the metadata to the store.
func persistWindow(win *frame.Capture, store *storage.Store, cfg *config.Config, sessionID string) error {
	runPath := filepath.Join(cfg.GetOutputDir(), fmt.Sprintf("run_%s", win.Start.Format("20060102T150405")))

	sess, err := store.GetSession(sessionID)
	if err != nil {
		return err
	}
	rec, err := recorder.NewRecorder(runPath, sessionID, sess.CameraSerial)
	if err != nil {
		return err
	}

	images := frame.Extract(win.Data)
	offsets := frame.Locate(win.Data)

	var records []storage.FrameRecord
	gaps := 0
	for i, im := range images {
		at := win.FrameTime(offsetForFrame(offsets, i))
		if err := rec.Record(im, at); err != nil {
			rec.Close()
			return err
		}

		r := storage.FrameRecord{FrameIndex: int64(i), TimestampNs: at.UnixNano(), Valid: im != nil}
		if stats := quicklook.Summarize(im); stats != nil {
			r.MinCount = sql.NullInt64{Int64: int64(stats.Min), Valid: true}
			r.MaxCount = sql.NullInt64{Int64: int64(stats.Max), Valid: true}
			r.MeanCount = sql.NullFloat64{Float64: stats.Mean, Valid: true}
			r.StdDevCount = sql.NullFloat64{Float64: stats.StdDev, Valid: true}
			if i == 0 {
				monitoring.Logf("quicklook: %s", stats)
			}
		} else {
			gaps++
		}
		records = append(records, r)
	}
	if err := rec.Close(); err != nil {
		return err
	}

	captureID, err := store.RecordCapture(storage.Capture{
		SessionID:  sessionID,
		RunPath:    rec.Path(),
		StartedNs:  win.Start.UnixNano(),
		EndedNs:    win.End.UnixNano(),
		ByteCount:  int64(len(win.Data)),
		FrameCount: int64(len(images) - gaps),
		GapCount:   int64(gaps),
	})
	if err != nil {
		return err
	}
	for i := range records {
		records[i].CaptureID = captureID
	}
	if err := store.RecordFrames(records); err != nil {
		return err
	}

	monitoring.Logf("window persisted: %d frames (%d gaps) to %s", len(images)-gaps, gaps, rec.Path())
	return nil
}

// offsetForFrame maps an extracted frame index back to its byte offset. The
// extractor skips malformed marker pairs, so the mapping walks the marker
// list the same way.
func offsetForFrame(offsets []int, index int) int {
	n := 0
	for i := 0; i+1 < len(offsets); i++ {
		if offsets[i+1]-offsets[i] != frame.Stride {
			continue
		}
		if n == index {
			return offsets[i]
		}
		n++
	}
	return 0
}
