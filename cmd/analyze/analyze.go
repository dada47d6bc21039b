// Command analyze aggregates daily event logs into 15-minute traffic and
// speed histograms. Each input file holds one day of events; the report
// goes to stdout, with an optional HTML chart per day.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/tubecount/internal/aggregate"
	"github.com/banshee-data/tubecount/internal/eventlog"
	"github.com/banshee-data/tubecount/internal/monitoring"
	"github.com/banshee-data/tubecount/internal/units"
	"github.com/banshee-data/tubecount/internal/version"
)

var (
	debugLevel   = flag.Int("D", 0, "Debug verbosity (0-2)")
	timezoneFlag = flag.String("timezone", "", "Timezone for day boundaries (default local)")
	chartDir     = flag.String("chart", "", "Write an HTML chart per day into this directory")
	versionFlag  = flag.Bool("version", false, "Print version information and exit")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-D n] [-timezone tz] [-chart dir] file...\n", os.Args[0])
	os.Exit(2)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String())
		return
	}
	if flag.NArg() == 0 {
		usage()
	}

	monitoring.SetVerbose(*debugLevel > 1)

	loc, err := units.LoadTimezone(*timezoneFlag)
	if err != nil {
		log.Fatalf("failed to resolve timezone: %v", err)
	}

	for _, path := range flag.Args() {
		if err := analyzeFile(path, loc); err != nil {
			log.Fatalf("%s: %v", path, err)
		}
	}
}

func analyzeFile(path string, loc *time.Location) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open event log: %w", err)
	}
	defer f.Close()

	events, err := eventlog.ReadAll(f)
	if err != nil {
		return fmt.Errorf("cannot read event log: %w", err)
	}
	if len(events) == 0 {
		return fmt.Errorf("no events")
	}
	if *debugLevel > 0 {
		monitoring.Logf("%s: %d raw events", path, len(events))
	}

	day := aggregate.Aggregate(events, loc)
	label := eventlog.Label(path)
	report := day.Report(label)
	if err := report.WriteText(os.Stdout); err != nil {
		return err
	}

	if *chartDir != "" {
		out := filepath.Join(*chartDir, label+".html")
		cf, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("cannot create chart: %w", err)
		}
		defer cf.Close()
		if err := aggregate.RenderChart(cf, day, label); err != nil {
			return fmt.Errorf("cannot render chart: %w", err)
		}
		if *debugLevel > 0 {
			monitoring.Logf("wrote %s", out)
		}
	}

	return nil
}
