// artrack links a detected object-record table into tracks, applies the
// track-quality filter and persists the result.
//
// Usage:
//
//	artrack -records objects.csv -out tracks.csv [-config tuning.json] [-db pipeline.db]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/meridian-data/vapor.report/internal/config"
	"github.com/meridian-data/vapor.report/internal/records"
	"github.com/meridian-data/vapor.report/internal/storage"
	"github.com/meridian-data/vapor.report/internal/track"
	"github.com/meridian-data/vapor.report/internal/version"
)

func main() {
	recordsPath := flag.String("records", "", "input object-record CSV table (required)")
	outPath := flag.String("out", "", "output CSV with track ids filled in (required)")
	configPath := flag.String("config", "", "tuning config JSON; defaults used when omitted")
	dbPath := flag.String("db", "", "also persist records and track summaries to this sqlite database")
	keptOnly := flag.Bool("kept-only", false, "write only records belonging to tracks that pass the filter")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("artrack %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *recordsPath == "" || *outPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*recordsPath, *outPath, *configPath, *dbPath, *keptOnly); err != nil {
		log.Fatalf("artrack: %v", err)
	}
}

func run(recordsPath, outPath, configPath, dbPath string, keptOnly bool) error {
	cfg := config.EmptyTuningConfig()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadTuningConfig(configPath); err != nil {
			return err
		}
	}

	f, err := os.Open(recordsPath)
	if err != nil {
		return fmt.Errorf("open record table: %w", err)
	}
	recs, err := records.Read(f)
	f.Close()
	if err != nil {
		return err
	}
	frames := records.GroupByTime(recs)
	log.Printf("loaded %d records across %d time steps", len(recs), len(frames))

	tracker, err := track.NewTracker(cfg.TrackOptions())
	if err != nil {
		return err
	}
	for _, fr := range frames {
		tracker.Step(fr.Time, fr.Records)
	}
	all := tracker.Finish()
	kept := track.Filter(all, cfg.TrackFilterOptions())
	log.Printf("%d tracks, %d pass the filter", len(all), len(kept))

	keptIDs := make(map[string]bool, len(kept))
	for _, t := range kept {
		keptIDs[t.ID] = true
	}

	if err := writeOutput(outPath, all, keptIDs, keptOnly); err != nil {
		return err
	}
	if dbPath != "" {
		if err := persist(dbPath, cfg, all, keptIDs); err != nil {
			return err
		}
	}

	for i, t := range kept {
		log.Printf("track %d: %s, %d members (%d strict), %s to %s",
			i+1, t.ID, len(t.Records), t.StrictCount(),
			t.Records[0].Time.Format(records.TimeLayout),
			t.Records[len(t.Records)-1].Time.Format(records.TimeLayout))
	}
	return nil
}

// writeOutput writes the tracked records back out as a CSV table, in track
// creation order, with track ids assigned.
func writeOutput(path string, tracks []*track.Track, keptIDs map[string]bool, keptOnly bool) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	w := records.NewWriter(out)
	for _, t := range tracks {
		if keptOnly && !keptIDs[t.ID] {
			continue
		}
		if err := w.Append(t.Records...); err != nil {
			return fmt.Errorf("write track %s: %w", t.ID, err)
		}
	}
	return nil
}

func persist(dbPath string, cfg *config.TuningConfig, tracks []*track.Track, keptIDs map[string]bool) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	runID, err := db.CreateRun(cfgJSON)
	if err != nil {
		return err
	}
	log.Printf("persisting run %s to %s", runID, dbPath)

	// records keyed by their frame order within each track
	frameIndex := frameIndexer(tracks)
	for _, t := range tracks {
		for _, r := range t.Records {
			idx := frameIndex[r.Time.Unix()]
			if err := db.AppendRecords(runID, idx, []records.Record{r}); err != nil {
				return err
			}
		}
	}
	return db.SaveTracks(runID, tracks, keptIDs)
}

// frameIndexer numbers the distinct member times in chronological order, so
// database rows keep the frame ordering of the original run.
func frameIndexer(tracks []*track.Track) map[int64]int {
	var times []int64
	seen := map[int64]bool{}
	for _, t := range tracks {
		for _, r := range t.Records {
			u := r.Time.Unix()
			if !seen[u] {
				seen[u] = true
				times = append(times, u)
			}
		}
	}
	for i := 1; i < len(times); i++ {
		for j := i; j > 0 && times[j-1] > times[j]; j-- {
			times[j-1], times[j] = times[j], times[j-1]
		}
	}
	idx := make(map[int64]int, len(times))
	for i, u := range times {
		idx[u] = i
	}
	return idx
}
