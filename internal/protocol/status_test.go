package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalStatus_ProducesExpectedShape(t *testing.T) {
	raw, err := MarshalStatus("1.20.1", 763, 42, 100, "hello")
	require.NoError(t, err)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	assert.Equal(t, "1.20.1", resp.Version.Name)
	assert.Equal(t, 763, resp.Version.Protocol)
	assert.Equal(t, 42, resp.Players.Online)
	assert.Equal(t, 100, resp.Players.Max)
	assert.Equal(t, "hello", resp.Description)
	assert.Empty(t, resp.Players.Sample)
}
