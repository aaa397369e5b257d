// Command tau2ctl talks to the camera over the command channel for one-shot
// operations: health checks, temperature reads, settings verification and
// FFC runs. It also carries the metadata-store migration subcommands and a
// run-directory inspector, so the daemon binary stays capture-only.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/lupm-obs/tau2grab/internal/config"
	"github.com/lupm-obs/tau2grab/internal/recorder"
	"github.com/lupm-obs/tau2grab/internal/storage"
	"github.com/lupm-obs/tau2grab/internal/tau2"
	"github.com/lupm-obs/tau2grab/internal/transport"
	"github.com/lupm-obs/tau2grab/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to JSON acquisition config")
	port       = flag.String("port", "", "Serial port, overrides the config")
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		printHelp()
		os.Exit(1)
	}

	cfg := &config.Config{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	switch args[0] {
	case "ping":
		withCamera(cfg, func(cam *tau2.Camera) {
			if err := cam.Ping(); err != nil {
				log.Fatalf("ping: %v", err)
			}
			fmt.Println("camera responding")
		})

	case "serial":
		withCamera(cfg, func(cam *tau2.Camera) {
			camera, sensor, err := cam.SerialNumbers()
			if err != nil {
				log.Fatalf("serial numbers: %v", err)
			}
			fmt.Printf("camera serial: %d\nsensor serial: %d\n", camera, sensor)
		})

	case "temps":
		withCamera(cfg, func(cam *tau2.Camera) {
			printTemp("fpa", cam.FPATemperature)
			printTemp("housing", cam.HousingTemperature)
			printTemp("shutter", cam.ShutterTemperature)
		})

	case "verify":
		withCamera(cfg, func(cam *tau2.Camera) {
			results, err := tau2.ApplySettings(cam, tau2.DefaultSettings())
			for _, r := range results {
				marker := "ok "
				if !r.OK() {
					marker = "FAIL"
				}
				fmt.Printf("  %s %s\n", marker, r)
			}
			if err != nil {
				log.Fatalf("verification failed: %v", err)
			}
			fmt.Println("all settings confirmed")
		})

	case "ffc":
		long := len(args) > 1 && args[1] == "long"
		withCamera(cfg, func(cam *tau2.Camera) {
			if long {
				done, err := cam.RunFFCLong()
				if err != nil {
					log.Fatalf("long FFC: %v", err)
				}
				fmt.Printf("long FFC complete: %v\n", done)
				return
			}
			if err := cam.RunFFCShort(); err != nil {
				log.Fatalf("short FFC: %v", err)
			}
			fmt.Println("short FFC triggered")
		})

	case "planck":
		withCamera(cfg, func(cam *tau2.Camera) {
			rbfo, err := cam.GetPlanck()
			if err != nil {
				log.Fatalf("planck coefficients: %v", err)
			}
			fmt.Printf("R=%d B=%d F=%d O=%d\n", rbfo.R, rbfo.B, rbfo.F, rbfo.O)
		})

	case "scene":
		withCamera(cfg, func(cam *tau2.Camera) {
			params, err := cam.SceneParameters()
			if err != nil {
				log.Fatalf("scene parameters: %v", err)
			}
			for name, v := range params {
				fmt.Printf("  %s = %d\n", name, v)
			}
		})

	case "run-info":
		if len(args) < 2 {
			log.Fatal("usage: tau2ctl run-info <run directory>")
		}
		runInfo(args[1])

	case "migrate":
		runMigrate(cfg, args[1:])

	case "version":
		fmt.Printf("tau2ctl %s\n", version.String())

	case "help":
		printHelp()

	default:
		fmt.Printf("unknown command: %s\n\n", args[0])
		printHelp()
		os.Exit(1)
	}
}

// withCamera opens the camera, runs fn and closes the link again.
func withCamera(cfg *config.Config, fn func(*tau2.Camera)) {
	device := cfg.GetPort()
	if *port != "" {
		device = *port
	}
	link, err := transport.OpenSerial(device, cfg.GetPortOptions())
	if err != nil {
		log.Fatalf("open camera port %s: %v", device, err)
	}

	cam := tau2.New(link, tau2.Options{
		Guard:       tau2.GuardStrict,
		SettleDelay: cfg.GetSettleDelay(),
		UARTWrapped: cfg.GetUARTWrapped(),
		SyncTimeout: cfg.GetSyncTimeout(),
	})
	defer cam.Close()

	fn(cam)
}

func printTemp(sensor string, read func() (float64, error)) {
	celsius, err := read()
	if err != nil {
		fmt.Printf("  %-8s unavailable: %v\n", sensor, err)
		return
	}
	fmt.Printf("  %-8s %.2f C\n", sensor, celsius)
}

func runInfo(path string) {
	rd, err := recorder.OpenRun(path)
	if err != nil {
		log.Fatalf("open run: %v", err)
	}
	hdr := rd.Header()
	fmt.Printf("session:  %s\n", hdr.SessionID)
	fmt.Printf("camera:   %d\n", hdr.CameraSerial)
	fmt.Printf("geometry: %dx%d\n", hdr.Width, hdr.Height)
	fmt.Printf("frames:   %d (%d gaps)\n", hdr.TotalFrames, hdr.DroppedGaps)
	if hdr.TotalFrames > 0 {
		span := float64(hdr.EndNs-hdr.StartNs) / 1e9
		fmt.Printf("span:     %.2f s\n", span)
	}
}

func runMigrate(cfg *config.Config, args []string) {
	if len(args) < 1 {
		log.Fatal("usage: tau2ctl migrate <up|down|version|force N>")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.GetDatabasePath()), 0755); err != nil {
		log.Fatalf("create database directory: %v", err)
	}
	store, err := storage.Open(cfg.GetDatabasePath())
	if err != nil {
		log.Fatalf("open metadata store: %v", err)
	}
	defer store.Close()

	switch args[0] {
	case "up":
		if err := store.MigrateUp(); err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		fmt.Println("migrations applied")

	case "down":
		if err := store.MigrateDown(); err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		fmt.Println("rolled back one migration")

	case "version":
		version, dirty, err := store.MigrateVersion()
		if err != nil {
			log.Fatalf("migrate version: %v", err)
		}
		fmt.Printf("schema version %d (dirty: %v)\n", version, dirty)

	case "force":
		if len(args) < 2 {
			log.Fatal("usage: tau2ctl migrate force <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("bad version %q: %v", args[1], err)
		}
		if err := store.MigrateForce(version); err != nil {
			log.Fatalf("migrate force: %v", err)
		}
		fmt.Printf("schema version forced to %d\n", version)

	default:
		log.Fatalf("unknown migrate action %q", args[0])
	}
}

func printHelp() {
	fmt.Print(`tau2ctl - camera command channel tool

usage: tau2ctl [-config file.json] [-port /dev/ttyUSBn] <command>

commands:
  ping              check the camera responds
  serial            print camera and sensor serial numbers
  temps             read FPA, housing and shutter temperatures
  verify            apply and verify the acquisition settings
  ffc [long]        run a flat field correction
  planck            print the RBFO radiometric coefficients
  scene             print the radiometric scene parameters
  run-info <dir>    summarise a recorded run directory
  migrate <action>  manage the metadata store schema (up, down, version, force N)
  version           print build identification
`)
}
