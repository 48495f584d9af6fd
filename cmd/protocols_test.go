package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProtocols(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, listProtocols(&out, false))
	for _, name := range []string{"gossip", "handel", "pow", "snowflake"} {
		assert.Contains(t, out.String(), name)
	}
	assert.NotContains(t, out.String(), "node_count")

	out.Reset()
	require.NoError(t, listProtocols(&out, true))
	assert.Contains(t, out.String(), "    node_count: 100")
	assert.Contains(t, out.String(), "    selfish_power: 0")
}
