package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/gymtrack/internal/model"
	"github.com/verte-zerg/gymtrack/internal/registry"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_MissingFileIsEmpty(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Nil(t, cfg.Session.DB)

	_, err = LoadConfig("")
	require.Error(t, err)
}

func TestLoadConfig_Session(t *testing.T) {
	path := writeFile(t, "config.toml", `
[session]
db = "/tmp/gym.db"
log-level = "debug"
tick-ms = 250
penalty-base-ms = 90000
redis-addr = "localhost:6379"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Session.DB)
	assert.Equal(t, "/tmp/gym.db", *cfg.Session.DB)
	assert.Equal(t, "debug", *cfg.Session.LogLevel)
	assert.Equal(t, 250, *cfg.Session.TickMs)
	assert.Equal(t, int64(90000), *cfg.Session.PenaltyBaseMs)
	assert.Equal(t, "localhost:6379", *cfg.Session.RedisAddr)
	assert.Nil(t, cfg.Session.RedisChannel)
}

func TestLoadConfig_BadTOML(t *testing.T) {
	_, err := LoadConfig(writeFile(t, "config.toml", "[session\n"))
	require.ErrorContains(t, err, "failed to decode config")
}

const swimFile = `
id = "swim-500"
name = "Swim 500"
kind = "interval"

[interval]
step = 50
units-per-interval = 250
interval-count = 2

[[students]]
id = "s1"
name = "Léa"
group = "G1"

[[students]]
id = "s2"
name = "Tom"
group = "G1"

[[students]]
id = "s3"
name = "Ana"
units-per-interval = 100
interval-count = 3
`

func TestLoadActivity_Interval(t *testing.T) {
	def, err := LoadActivity(writeFile(t, "swim.toml", swimFile))
	require.NoError(t, err)

	a := def.Activity
	assert.Equal(t, "swim-500", a.ID)
	assert.Equal(t, model.EngineInterval, a.Kind)
	assert.Equal(t, model.IntervalTarget{UnitsPerInterval: 250, IntervalCount: 2, StepSize: 50}, a.Interval)
	require.Len(t, def.Roster, 3)
	assert.Equal(t, model.RosterEntry{SubjectID: "s1", DisplayName: "Léa", GroupLabel: "G1"}, def.Roster[0])

	require.Len(t, def.Overrides, 1)
	o := def.Overrides[0]
	assert.Equal(t, "s3", o.SubjectID)
	assert.Equal(t, model.IntervalTarget{UnitsPerInterval: 100, IntervalCount: 3, StepSize: 50}, *o.Interval)
}

func TestLoadActivity_IDFromFileName(t *testing.T) {
	def, err := LoadActivity(writeFile(t, "relay.toml", `
kind = "checkpoint"
[[checkpoints]]
id = "A"
tier = 1
`))
	require.NoError(t, err)
	assert.Equal(t, "relay", def.Activity.ID)
	assert.Equal(t, "relay", def.Activity.Name)
	assert.Empty(t, def.Roster)
}

func TestLoadActivity_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown kind": `id = "x"
kind = "rowing"`,
		"missing interval": `id = "x"
kind = "interval"`,
		"zero tier": `id = "x"
kind = "checkpoint"
[[checkpoints]]
id = "A"
tier = 0`,
		"duplicate student": `id = "x"
kind = "standard"
[[students]]
id = "s1"
[[students]]
id = "s1"`,
		"rating without max": `id = "x"
kind = "standard"
[[criteria]]
id = "posture"
kind = "rating"`,
		"override on checkpoint activity": `id = "x"
kind = "checkpoint"
[[checkpoints]]
id = "A"
tier = 1
[[students]]
id = "s1"
step = 10`,
		"bad override": `id = "x"
kind = "interval"
[interval]
step = 50
units-per-interval = 100
interval-count = 1
[[students]]
id = "s1"
step = -5`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadActivity(writeFile(t, "a.toml", content))
			require.ErrorIs(t, err, ErrInvalidActivity)
		})
	}
}

func TestLoadActivity_InvalidIntervalNamesField(t *testing.T) {
	_, err := LoadActivity(writeFile(t, "a.toml", `id = "x"
kind = "interval"
[interval]
step = 50
units-per-interval = 0
interval-count = 2`))
	require.ErrorIs(t, err, registry.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "interval.units_per_interval must be > 0")
}

func TestEncodeActivityRoundTrip(t *testing.T) {
	penalty := int64(60000)
	file := ActivityFile{
		ID:            "orient",
		Name:          "Orienteering",
		Kind:          "checkpoint",
		PenaltyBaseMs: &penalty,
		Checkpoints:   []CheckpointFile{{ID: "A", Label: "Oak", Tier: 1}, {ID: "B", Label: "Bench", Tier: 3}},
		Students:      []StudentFile{{ID: "s1", Name: "Léa", Group: "G1"}},
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeActivity(&buf, file))
	assert.NotContains(t, buf.String(), "units-per-interval")

	path := filepath.Join(t.TempDir(), "activities", "orient.toml")
	require.NoError(t, WriteActivity(path, file))
	require.Error(t, WriteActivity(path, file), "existing files are kept")

	def, err := LoadActivity(path)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), def.Activity.PenaltyBaseMs)
	assert.Len(t, def.Activity.Checkpoints, 2)
	assert.Equal(t, 3, def.Activity.Checkpoints[1].Tier)
}

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")

	assert.Equal(t, filepath.Join("/data", "gymtrack", "gymtrack.db"), DefaultDBPath())
	assert.Equal(t, filepath.Join("/cfg", "gymtrack", "config.toml"), DefaultConfigPath())
	assert.Equal(t, filepath.Join("/cfg", "gymtrack", "activities", "swim.toml"), DefaultActivityPath("swim"))
}
