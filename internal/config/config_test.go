package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avalanche-feature-etl/internal/domain"
	"avalanche-feature-etl/internal/feature"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "data/avalanche.db", cfg.DatabasePath)
	assert.Empty(t, cfg.Schedule)

	assert.Len(t, cfg.Zones, 10)
	assert.NotEmpty(t, cfg.Windows)
	assert.NotEmpty(t, cfg.Lags)
	assert.NotEmpty(t, cfg.Derived)
	assert.NotEmpty(t, cfg.Impute)
	assert.NotEmpty(t, cfg.Ranges)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	yaml := `
http_addr: ":9000"
log_level: debug
database_path: /tmp/test.db
schedule: "0 3 * * *"
zones:
  - id: aspen
    name: Aspen
    lat: 39.19
    lng: -106.82
windows:
  - metric: new_snow
    days: 4
    agg: sum
    weights: [1.0, 0.75, 0.5, 0.25]
    name: snow_loading_4d
lags:
  - metric: snow_depth
    days: 1
derived:
  - kind: day_delta
    metric: temp_max
impute:
  new_snow:
    kind: zero
  stability_index:
    kind: constant
    constant: 5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/test.db", cfg.DatabasePath)
	assert.Equal(t, "0 3 * * *", cfg.Schedule)

	require.Len(t, cfg.Zones, 1)
	assert.Equal(t, "aspen", cfg.Zones[0].ID)

	require.Len(t, cfg.Windows, 1)
	assert.Equal(t, "snow_loading_4d", cfg.Windows[0].OutputName())
	assert.Equal(t, []float64{1.0, 0.75, 0.5, 0.25}, cfg.Windows[0].Weights)

	require.Len(t, cfg.Lags, 1)
	assert.Equal(t, "snow_depth_lag_1d", cfg.Lags[0].OutputName())

	require.Len(t, cfg.Derived, 1)
	assert.Equal(t, "temp_max_change_24h", cfg.Derived[0].OutputName())

	require.Contains(t, cfg.Impute, "stability_index")
	assert.Equal(t, feature.PolicyConstant, cfg.Impute["stability_index"].Kind)
	assert.Equal(t, 5.0, cfg.Impute["stability_index"].Constant)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/pipeline.yaml")
	var cerr *domain.ConfigurationError
	require.ErrorAs(t, err, &cerr)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("AVY_HTTP_ADDR", ":7070")
	t.Setenv("AVY_DATABASE_PATH", "/tmp/env.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, "/tmp/env.db", cfg.DatabasePath)
}

// Every input a default derived spec names must be produced by the default
// definition itself: a raw metric with a range entry, a window or lag output,
// or an earlier derived column.
func TestDefaultDerivedInputsResolvable(t *testing.T) {
	available := make(map[string]bool)
	for metric := range DefaultRanges() {
		available[metric] = true
	}
	for _, w := range DefaultWindows() {
		available[w.OutputName()] = true
	}
	for _, l := range DefaultLags() {
		available[l.OutputName()] = true
	}

	for _, d := range DefaultDerived() {
		inputs := d.Inputs
		if d.Metric != "" {
			inputs = append(inputs, d.Metric)
		}
		for _, in := range inputs {
			assert.True(t, available[in], "%s input %q not produced by the default definition", d.OutputName(), in)
		}
		available[d.OutputName()] = true
	}
}

// The v1 weight table applies positionally: loading, temperature change, wind,
// freeze-thaw. The default binding must present its inputs in that order.
func TestDefaultStabilityIndexInputs(t *testing.T) {
	for _, d := range DefaultDerived() {
		if d.Kind != feature.DeriveStabilityIndex {
			continue
		}
		assert.Equal(t,
			[]string{"snow_loading_4d", "temp_max_change_24h", "wind_speed_max", "freeze_thaw_7d"},
			d.Inputs)
		return
	}
	t.Fatal("no stability index in the default derived specs")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{
			DatabasePath:    "x.db",
			ShutdownTimeout: time.Second,
		}
		applyFeatureDefaults(cfg)
		return cfg
	}

	t.Run("defaults pass", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing database path", func(t *testing.T) {
		cfg := base()
		cfg.DatabasePath = ""
		var cerr *domain.ConfigurationError
		require.ErrorAs(t, cfg.Validate(), &cerr)
		assert.Equal(t, "database_path", cerr.Field)
	})

	t.Run("duplicate zone", func(t *testing.T) {
		cfg := base()
		cfg.Zones = append(cfg.Zones, domain.Zone{ID: "aspen"})
		var cerr *domain.ConfigurationError
		require.ErrorAs(t, cfg.Validate(), &cerr)
	})

	t.Run("bad window", func(t *testing.T) {
		cfg := base()
		cfg.Windows = append(cfg.Windows, feature.WindowSpec{Metric: "new_snow", Days: 0, Agg: feature.AggSum})
		assert.Error(t, cfg.Validate())
	})

	t.Run("inverted range", func(t *testing.T) {
		cfg := base()
		cfg.Ranges["snow_depth"] = feature.Range{Min: 10, Max: 0}
		var cerr *domain.ConfigurationError
		require.ErrorAs(t, cfg.Validate(), &cerr)
		assert.Equal(t, "snow_depth", cerr.Field)
	})

	t.Run("bad policy kind", func(t *testing.T) {
		cfg := base()
		cfg.Impute["snow_depth"] = feature.Policy{Kind: "median"}
		assert.Error(t, cfg.Validate())
	})
}
