// Command counter is the field binary: it acquires pressure samples from
// the sensor front-end (framed serial, bit-banged ADC, or a recorded
// replay log), runs the two-channel detection pipeline, and appends one
// line per vehicle to the event log.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/tubecount/internal/adc"
	"github.com/banshee-data/tubecount/internal/config"
	"github.com/banshee-data/tubecount/internal/eventlog"
	"github.com/banshee-data/tubecount/internal/hose"
	"github.com/banshee-data/tubecount/internal/monitoring"
	"github.com/banshee-data/tubecount/internal/samplelog"
	"github.com/banshee-data/tubecount/internal/serialmux"
	"github.com/banshee-data/tubecount/internal/timeutil"
	"github.com/banshee-data/tubecount/internal/units"
	"github.com/banshee-data/tubecount/internal/version"
)

var (
	portFlag     = flag.String("port", "/dev/ttyS0", "Serial port for the sensor front-end")
	fixtureFlag  = flag.String("fixture", "", "Replay raw serial frames from a fixture file instead of opening a port")
	useADC       = flag.Bool("adc", false, "Sample the MCP3202 directly over GPIO instead of serial")
	adcCS        = flag.String("adc-cs", "GPIO8", "Chip-select pin for the MCP3202")
	adcCLK       = flag.String("adc-clk", "GPIO11", "Clock pin for the MCP3202")
	adcMOSI      = flag.String("adc-mosi", "GPIO10", "MOSI pin for the MCP3202")
	adcMISO      = flag.String("adc-miso", "GPIO9", "MISO pin for the MCP3202")
	replayFlag   = flag.String("replay", "", "Replay a recorded sample log and exit")
	recordFlag   = flag.String("record", "", "Record raw samples to a replayable log")
	eventsFlag   = flag.String("events", "", "Append vehicle events to this file (default stdout)")
	configFile   = flag.String("config", "", "Path to JSON tuning configuration file")
	timezoneFlag = flag.String("timezone", "", "Timezone for human-readable log timestamps (default local)")
	unitsFlag    = flag.String("units", units.MPH, "Speed units for diagnostic output (mph, kph, mps)")
	debugFlag    = flag.Bool("debug", false, "Log per-vehicle and skipped-record diagnostics")
	versionFlag  = flag.Bool("version", false, "Print version information and exit")
)

// Serial front-end stamps are milliseconds since boot; shift them onto the
// wall clock once at startup so event-log epochs and recorded sample logs
// line up with real time.
const bootStampHorizon = 0x1_0000_0000_00

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.String())
		return
	}

	monitoring.SetVerbose(*debugFlag)
	if !units.IsValid(*unitsFlag) {
		log.Fatalf("invalid units %q: want one of mph, kph, mps", *unitsFlag)
	}

	params := hose.DefaultParams()
	if *configFile != "" {
		cfg, err := config.LoadTuningConfig(*configFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		params = cfg.Params()
	}

	loc, err := units.LoadTimezone(*timezoneFlag)
	if err != nil {
		log.Fatalf("failed to resolve timezone: %v", err)
	}

	eventsOut := os.Stdout
	if *eventsFlag != "" {
		f, err := os.OpenFile(*eventsFlag, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("failed to open event log: %v", err)
		}
		defer f.Close()
		eventsOut = f
	}
	sink := eventlog.NewWriter(eventsOut, loc)

	pipeline := hose.NewPipeline(params, func(ev hose.VehicleEvent) error {
		monitoring.Debugf("car: %s %s at %s",
			units.FormatSpeed(ev.SpeedMPH, *unitsFlag),
			ev.Direction,
			time.UnixMilli(int64(ev.Millis)).In(loc).Format("15:04:05"))
		return sink.Write(ev)
	})

	if *recordFlag != "" {
		f, err := os.Create(*recordFlag)
		if err != nil {
			log.Fatalf("failed to create sample recording: %v", err)
		}
		defer f.Close()
		rec := samplelog.NewWriter(f)
		pipeline.Tap = rec.Write
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	switch {
	case *replayFlag != "":
		runErr = runReplay(ctx, pipeline, *replayFlag)
	case *useADC:
		runErr = runADC(ctx, pipeline)
	default:
		runErr = runSerial(ctx, pipeline)
	}
	if runErr != nil && runErr != context.Canceled {
		log.Fatalf("acquisition failed: %v", runErr)
	}
}

func runReplay(ctx context.Context, pipeline *hose.Pipeline, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open sample log: %w", err)
	}
	defer f.Close()

	reader := samplelog.NewReader(f)
	p0, p1, err := reader.Seed()
	if err != nil {
		return err
	}
	pipeline.Pair.Seed(p0, p1)
	return pipeline.Run(ctx, reader)
}

func runADC(ctx context.Context, pipeline *hose.Pipeline) error {
	dev, err := adc.Open(adc.Pins{
		CS:   *adcCS,
		CLK:  *adcCLK,
		MOSI: *adcMOSI,
		MISO: *adcMISO,
	}, timeutil.RealClock{})
	if err != nil {
		return err
	}
	return pipeline.Run(ctx, dev)
}

func runSerial(ctx context.Context, pipeline *hose.Pipeline) error {
	var mux serialmux.SampleMuxInterface
	if *fixtureFlag != "" {
		data, err := os.ReadFile(*fixtureFlag)
		if err != nil {
			return fmt.Errorf("failed to read fixture file: %w", err)
		}
		mux = serialmux.NewMockSampleMux(data)
	} else {
		m, err := serialmux.NewRealSampleMux(*portFlag, serialmux.PortOptions{})
		if err != nil {
			return err
		}
		mux = m
	}
	defer mux.Close()

	id, samples := mux.Subscribe()
	defer mux.Unsubscribe(id)

	var wg sync.WaitGroup
	errChan := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mux.Monitor(ctx); err != nil && err != context.Canceled {
			errChan <- err
		}
	}()

	// Boot-relative stamps get a wall-clock offset, fixed on the first
	// sample so the whole run stays on one timeline.
	var stampOffset uint64
	var offsetSet bool

	loop := func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case err := <-errChan:
				return err
			case s, ok := <-samples:
				if !ok {
					return nil
				}
				if !offsetSet {
					offsetSet = true
					if s.Millis < bootStampHorizon {
						stampOffset = uint64(time.Now().UnixMilli()) - s.Millis
					}
				}
				s.Millis += stampOffset
				if err := pipeline.Feed(s); err != nil {
					return err
				}
			}
		}
	}

	err := loop()
	wg.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}
