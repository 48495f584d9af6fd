package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsim/netsim/sim/protocol"
	"github.com/netsim/netsim/sim/protocol/gossip"
)

func writeScenarios(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const testScenarios = `version: "1"
scenarios:
  small:
    protocol: gossip
    seed: 12
    duration_ms: 3000
    params:
      node_count: 25
      peers_count: 4
  bare:
    protocol: pow
  empty:
    seed: 1
`

func TestLoadScenario(t *testing.T) {
	path := writeScenarios(t, testScenarios)

	sc, err := loadScenario(path, "small")
	require.NoError(t, err)
	assert.Equal(t, "gossip", sc.Protocol)
	require.NotNil(t, sc.Seed)
	assert.Equal(t, int64(12), *sc.Seed)

	raw, err := sc.RawParams()
	require.NoError(t, err)
	f, err := protocol.Lookup(sc.Protocol)
	require.NoError(t, err)
	params, err := f.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, 25, params.(*gossip.Params).NodeCount)
	assert.Equal(t, 4, params.(*gossip.Params).PeersCount)

	bare, err := loadScenario(path, "bare")
	require.NoError(t, err)
	raw, err = bare.RawParams()
	require.NoError(t, err)
	assert.Nil(t, raw)
	assert.Nil(t, bare.Seed)

	_, err = loadScenario(path, "missing")
	assert.Error(t, err)
	_, err = loadScenario(path, "empty")
	assert.Error(t, err, "a scenario needs a protocol")
}

func TestLoadScenarioFile_Strict(t *testing.T) {
	path := writeScenarios(t, "version: \"1\"\nscenarioz: {}\n")
	_, err := loadScenarioFile(path)
	assert.Error(t, err)

	_, err = loadScenarioFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestScenario_ApplyKeepsExplicitFlags(t *testing.T) {
	sc, err := loadScenario(writeScenarios(t, testScenarios), "small")
	require.NoError(t, err)

	// GIVEN --seed was set on the command line
	opts := runOptions{Protocol: "pow", Seed: 99, DurationMs: 60000}
	changed := func(flag string) bool { return flag == "seed" }

	// WHEN the scenario is applied
	require.NoError(t, sc.apply(&opts, changed))

	// THEN the seed is kept and everything else comes from the scenario
	assert.Equal(t, int64(99), opts.Seed)
	assert.Equal(t, "gossip", opts.Protocol)
	assert.Equal(t, int64(3000), opts.DurationMs)
	assert.Contains(t, string(opts.Params), "node_count: 25")
}

func TestShippedScenarios_Decode(t *testing.T) {
	path := "../scenarios.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("scenarios.yaml not found, skipping")
	}
	f, err := loadScenarioFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, f.Scenarios)
	for name := range f.Scenarios {
		sc, err := loadScenario(path, name)
		require.NoError(t, err, name)
		raw, err := sc.RawParams()
		require.NoError(t, err, name)
		factory, err := protocol.Lookup(sc.Protocol)
		require.NoError(t, err, name)
		_, err = factory.Decode(raw)
		assert.NoError(t, err, name)
	}
}
