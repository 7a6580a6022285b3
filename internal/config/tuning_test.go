package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meridian-data/vapor.report/internal/track"
)

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "thres_low": 1.5,
  "min_area": 400000,
  "zonal_cyclic": false,
  "track_scheme": "complex",
  "time_gap_allow": 4,
  "min_duration": 48
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.ThresLow == nil || *cfg.ThresLow != 1.5 {
		t.Errorf("Expected ThresLow 1.5, got %v", cfg.ThresLow)
	}
	if cfg.MinArea == nil || *cfg.MinArea != 400000 {
		t.Errorf("Expected MinArea 400000, got %v", cfg.MinArea)
	}
	if cfg.ZonalCyclic == nil || *cfg.ZonalCyclic != false {
		t.Errorf("Expected ZonalCyclic false, got %v", cfg.ZonalCyclic)
	}
	if cfg.GetTrackScheme() != track.SchemeComplex {
		t.Errorf("Expected complex scheme, got %v", cfg.GetTrackScheme())
	}
	if cfg.GetMinDuration() != 48*time.Hour {
		t.Errorf("Expected MinDuration 48h, got %v", cfg.GetMinDuration())
	}

	opts := cfg.DetectOptions()
	if opts.MinAreaKm2 != 400000 {
		t.Errorf("DetectOptions MinAreaKm2 = %v, want 400000", opts.MinAreaKm2)
	}
	if opts.ZonalCyclic {
		t.Error("DetectOptions ZonalCyclic should be false")
	}
	cutoff, ok := opts.Threshold.Resolve(nil)
	if !ok || cutoff != 1.5 {
		t.Errorf("Threshold.Resolve = %v, %v, want fixed 1.5", cutoff, ok)
	}

	topts := cfg.TrackOptions()
	if topts.Scheme != track.SchemeComplex || topts.TimeGapAllow != 4 {
		t.Errorf("TrackOptions = %+v, want complex scheme with gap 4", topts)
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	invalidJSON := `{
  "thres_low": "invalid"
`
	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{
			name:    "empty config is valid",
			cfg:     &TuningConfig{},
			wantErr: false,
		},
		{
			name: "negative time half width",
			cfg: &TuningConfig{
				TimeHalfWidth: ptrInt(-1),
			},
			wantErr: true,
		},
		{
			name: "zero spatial half width",
			cfg: &TuningConfig{
				SpatialHalfWidth: ptrInt(0),
			},
			wantErr: true,
		},
		{
			name: "unknown track scheme",
			cfg: &TuningConfig{
				TrackScheme: ptrString("fancy"),
			},
			wantErr: true,
		},
		{
			name: "inverted area bounds",
			cfg: &TuningConfig{
				MinArea: ptrFloat64(100),
				MaxArea: ptrFloat64(50),
			},
			wantErr: true,
		},
		{
			name: "soft isoq above hard isoq",
			cfg: &TuningConfig{
				MaxIsoq:     ptrFloat64(0.8),
				MaxIsoqHard: ptrFloat64(0.6),
			},
			wantErr: true,
		},
		{
			name: "negative min duration",
			cfg: &TuningConfig{
				MinDuration: ptrFloat64(-1),
			},
			wantErr: true,
		},
		{
			name: "disabled single dome ignores ratio",
			cfg: &TuningConfig{
				SingleDome: ptrBool(false),
				MaxPHRatio: ptrFloat64(0),
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetterDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetTimeHalfWidth() != 10 {
		t.Errorf("GetTimeHalfWidth() = %d, want 10", cfg.GetTimeHalfWidth())
	}
	if cfg.GetSpatialHalfWidth() != 6 {
		t.Errorf("GetSpatialHalfWidth() = %d, want 6", cfg.GetSpatialHalfWidth())
	}
	if cfg.GetHighTerrain() != 600 {
		t.Errorf("GetHighTerrain() = %f, want 600", cfg.GetHighTerrain())
	}
	if cfg.GetShiftLon() != 80 {
		t.Errorf("GetShiftLon() = %f, want 80", cfg.GetShiftLon())
	}
	if cfg.GetTrackScheme() != track.SchemeSimple {
		t.Errorf("GetTrackScheme() = %v, want simple", cfg.GetTrackScheme())
	}
	if cfg.GetMinDuration() != 24*time.Hour {
		t.Errorf("GetMinDuration() = %v, want 24h", cfg.GetMinDuration())
	}

	// a missing thres_low requests per-frame derivation
	if !cfg.GetThreshold().Auto() {
		t.Error("GetThreshold() should be auto when thres_low is unset")
	}

	p := cfg.THRParams(nil)
	if p.TimeHalfWidth != 10 || p.SpatialHalfWidth != 6 || p.HighTerrainM != 600 {
		t.Errorf("THRParams = %+v, want reference defaults", p)
	}

	f := cfg.TrackFilterOptions()
	if f.MinDuration != 24*time.Hour || f.MinNonRelax != 1 {
		t.Errorf("TrackFilterOptions = %+v, want 24h and 1 strict member", f)
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg, err := LoadTuningConfig("../../config/tuning.defaults.json")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}
	if cfg.GetThreshold().Auto() {
		t.Error("defaults file should pin thres_low explicitly")
	}
	opts := cfg.DetectOptions()
	if opts.MinAreaKm2 != 500000 || opts.MaxIsoq != 0.6 {
		t.Errorf("defaults file detect options = %+v", opts)
	}
	topts := cfg.TrackOptions()
	if topts.TimeGapAllow != 6 || topts.NumAnchors != 7 || topts.MaxDistKm != 1200 {
		t.Errorf("defaults file track options = %+v", topts)
	}
}

func TestLoadTuningConfigPartial(t *testing.T) {
	// Partial config: only override the cutoff; everything else keeps defaults.
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	partialJSON := `{
  "thres_low": 2.0
}`
	if err := os.WriteFile(configPath, []byte(partialJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load partial config: %v", err)
	}

	cutoff, ok := cfg.GetThreshold().Resolve(nil)
	if !ok || cutoff != 2.0 {
		t.Errorf("Expected overridden cutoff 2.0, got %v", cutoff)
	}
	opts := cfg.DetectOptions()
	if opts.MinAreaKm2 != 500000 {
		t.Errorf("Expected default MinAreaKm2 500000, got %v", opts.MinAreaKm2)
	}
	if cfg.GetTimeHalfWidth() != 10 {
		t.Errorf("Expected default TimeHalfWidth 10, got %d", cfg.GetTimeHalfWidth())
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	_, err := LoadTuningConfig("/some/path/config.yaml")
	if err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoadTuningConfigRejectsLargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "large.json")

	largeData := make([]byte, 2*1024*1024) // 2MB
	if err := os.WriteFile(configPath, largeData, 0644); err != nil {
		t.Fatalf("Failed to write large file: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error for file size > 1MB, got nil")
	}
}
