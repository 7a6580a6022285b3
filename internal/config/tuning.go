package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/meridian-data/vapor.report/internal/detect"
	"github.com/meridian-data/vapor.report/internal/thr"
	"github.com/meridian-data/vapor.report/internal/track"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for the detection and
// tracking pipeline. Every field is optional; the Get* methods supply the
// reference defaults for fields not present in the JSON.
type TuningConfig struct {
	// Decomposition params
	TimeHalfWidth    *int     `json:"time_half_width,omitempty"`
	SpatialHalfWidth *int     `json:"spatial_half_width,omitempty"`
	HighTerrain      *float64 `json:"high_terrain,omitempty"` // meters
	ShiftLon         *float64 `json:"shift_lon,omitempty"`    // degrees

	// Detection params. A missing thres_low means the cutoff is derived
	// per frame from the anomaly distribution.
	ThresLow      *float64 `json:"thres_low,omitempty"`
	MinArea       *float64 `json:"min_area,omitempty"` // km²
	MaxArea       *float64 `json:"max_area,omitempty"` // km²
	MaxIsoq       *float64 `json:"max_isoq,omitempty"`
	MaxIsoqHard   *float64 `json:"max_isoq_hard,omitempty"`
	MinLat        *float64 `json:"min_lat,omitempty"`
	MaxLat        *float64 `json:"max_lat,omitempty"`
	MinLength     *float64 `json:"min_length,omitempty"`      // km
	MinLengthHard *float64 `json:"min_length_hard,omitempty"` // km
	RDPThres      *float64 `json:"rdp_thres,omitempty"`       // degrees
	FillRadius    *int     `json:"fill_radius,omitempty"`     // grid cells
	SingleDome    *bool    `json:"single_dome,omitempty"`
	MaxPHRatio    *float64 `json:"max_ph_ratio,omitempty"`
	EdgeEps       *float64 `json:"edge_eps,omitempty"`
	ZonalCyclic   *bool    `json:"zonal_cyclic,omitempty"`

	// Tracking params
	TimeGapAllow *int     `json:"time_gap_allow,omitempty"` // steps
	NumAnchors   *int     `json:"num_anchors,omitempty"`
	TrackScheme  *string  `json:"track_scheme,omitempty"` // "simple" or "complex"
	MaxDistAllow *float64 `json:"max_dist_allow,omitempty"` // km

	// Track filter params
	MinDuration *float64 `json:"min_duration,omitempty"` // hours
	MinNonRelax *int     `json:"min_nonrelax,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are consistent. The option
// structs assembled from this config carry their own validation; this runs
// it once up front so a bad file fails before any data is read.
func (c *TuningConfig) Validate() error {
	if c.TimeHalfWidth != nil && *c.TimeHalfWidth < 0 {
		return fmt.Errorf("time_half_width must be non-negative, got %d", *c.TimeHalfWidth)
	}
	if c.SpatialHalfWidth != nil && *c.SpatialHalfWidth < 1 {
		return fmt.Errorf("spatial_half_width must be at least 1, got %d", *c.SpatialHalfWidth)
	}
	if c.TrackScheme != nil {
		if _, err := track.ParseScheme(*c.TrackScheme); err != nil {
			return err
		}
	}
	if c.MinDuration != nil && *c.MinDuration < 0 {
		return fmt.Errorf("min_duration must be non-negative, got %f", *c.MinDuration)
	}
	if err := c.DetectOptions().Validate(); err != nil {
		return err
	}
	if err := c.TrackOptions().Validate(); err != nil {
		return err
	}
	return nil
}

// GetTimeHalfWidth returns the time_half_width value or the default.
func (c *TuningConfig) GetTimeHalfWidth() int {
	if c.TimeHalfWidth == nil {
		return 10 // time steps
	}
	return *c.TimeHalfWidth
}

// GetSpatialHalfWidth returns the spatial_half_width value or the default.
func (c *TuningConfig) GetSpatialHalfWidth() int {
	if c.SpatialHalfWidth == nil {
		return 6 // grid cells
	}
	return *c.SpatialHalfWidth
}

// GetHighTerrain returns the high_terrain value or the default.
func (c *TuningConfig) GetHighTerrain() float64 {
	if c.HighTerrain == nil {
		return 600 // meters
	}
	return *c.HighTerrain
}

// GetShiftLon returns the shift_lon value or the default.
func (c *TuningConfig) GetShiftLon() float64 {
	if c.ShiftLon == nil {
		return 80 // centers the Pacific and Atlantic basins
	}
	return *c.ShiftLon
}

// GetThreshold maps thres_low to a detection threshold: a missing value
// requests per-frame derivation.
func (c *TuningConfig) GetThreshold() detect.Threshold {
	if c.ThresLow == nil {
		return detect.AutoThreshold()
	}
	return detect.FixedThreshold(*c.ThresLow)
}

// GetTrackScheme returns the track_scheme value or the default.
func (c *TuningConfig) GetTrackScheme() track.Scheme {
	if c.TrackScheme == nil {
		return track.SchemeSimple
	}
	s, err := track.ParseScheme(*c.TrackScheme)
	if err != nil {
		return track.SchemeSimple
	}
	return s
}

// GetMinDuration returns min_duration as a time.Duration.
func (c *TuningConfig) GetMinDuration() time.Duration {
	if c.MinDuration == nil {
		return 24 * time.Hour
	}
	return time.Duration(*c.MinDuration * float64(time.Hour))
}

// THRParams assembles the decomposition parameters. The terrain grid, when
// available, comes from the caller since it is data, not tuning.
func (c *TuningConfig) THRParams(terrain []float64) thr.Params {
	return thr.Params{
		TimeHalfWidth:    c.GetTimeHalfWidth(),
		SpatialHalfWidth: c.GetSpatialHalfWidth(),
		Terrain:          terrain,
		HighTerrainM:     c.GetHighTerrain(),
	}
}

// DetectOptions assembles the detector configuration, falling back to the
// reference defaults for unset fields.
func (c *TuningConfig) DetectOptions() detect.Options {
	o := detect.DefaultOptions()
	o.Threshold = c.GetThreshold()
	if c.MinArea != nil {
		o.MinAreaKm2 = *c.MinArea
	}
	if c.MaxArea != nil {
		o.MaxAreaKm2 = *c.MaxArea
	}
	if c.MaxIsoq != nil {
		o.MaxIsoq = *c.MaxIsoq
	}
	if c.MaxIsoqHard != nil {
		o.MaxIsoqHard = *c.MaxIsoqHard
	}
	if c.MinLat != nil {
		o.MinLat = *c.MinLat
	}
	if c.MaxLat != nil {
		o.MaxLat = *c.MaxLat
	}
	if c.MinLength != nil {
		o.MinLengthKm = *c.MinLength
	}
	if c.MinLengthHard != nil {
		o.MinLengthHardKm = *c.MinLengthHard
	}
	if c.RDPThres != nil {
		o.RDPToleranceDeg = *c.RDPThres
	}
	if c.FillRadius != nil {
		o.FillRadius = *c.FillRadius
	}
	if c.SingleDome != nil {
		o.SingleDome = *c.SingleDome
	}
	if c.MaxPHRatio != nil {
		o.MaxPHRatio = *c.MaxPHRatio
	}
	if c.EdgeEps != nil {
		o.EdgeEps = *c.EdgeEps
	}
	if c.ZonalCyclic != nil {
		o.ZonalCyclic = *c.ZonalCyclic
	}
	return o
}

// TrackOptions assembles the tracker configuration.
func (c *TuningConfig) TrackOptions() track.Options {
	o := track.DefaultOptions()
	o.Scheme = c.GetTrackScheme()
	if c.TimeGapAllow != nil {
		o.TimeGapAllow = *c.TimeGapAllow
	}
	if c.NumAnchors != nil {
		o.NumAnchors = *c.NumAnchors
	}
	if c.MaxDistAllow != nil {
		o.MaxDistKm = *c.MaxDistAllow
	}
	return o
}

// TrackFilterOptions assembles the final track-quality gate.
func (c *TuningConfig) TrackFilterOptions() track.FilterOptions {
	o := track.FilterOptions{
		MinDuration: c.GetMinDuration(),
		MinNonRelax: 1,
	}
	if c.MinNonRelax != nil {
		o.MinNonRelax = *c.MinNonRelax
	}
	return o
}
