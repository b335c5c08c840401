package survey

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTargets(t *testing.T) {
	text := `# harbour entrance
10.5 20.25 wreck W1

abc 20 rock
   # indented comment
11 21 buoy B2 4 7.5 45
12 22
`
	targets := ParseTargets(text)
	require.Len(t, targets, 4)

	w := targets[0]
	assert.Equal(t, 10.5, w.Position.Lat)
	assert.Equal(t, 20.25, w.Position.Lon)
	assert.Equal(t, "wreck", w.Type)
	assert.Equal(t, "W1", w.ID)
	assert.Equal(t, DefaultNumTracks, w.NumTracks)
	assert.Equal(t, DefaultSpacing, w.Spacing)
	assert.Equal(t, DefaultBearing, w.Bearing)

	bad := targets[1]
	assert.True(t, math.IsNaN(bad.Position.Lat))
	assert.Equal(t, 20.0, bad.Position.Lon)
	assert.Equal(t, "T2", bad.ID)
	assert.False(t, bad.Position.Valid())

	b := targets[2]
	assert.Equal(t, "B2", b.ID)
	assert.Equal(t, 4, b.NumTracks)
	assert.Equal(t, 7.5, b.Spacing)
	assert.Equal(t, 45.0, b.Bearing)

	bare := targets[3]
	assert.Equal(t, "", bare.Type)
	assert.Equal(t, "T4", bare.ID)
}

func TestParseTargets_BadOverridesKeepDefaults(t *testing.T) {
	targets := ParseTargets("1 2 rock R -3 wide north\n")
	require.Len(t, targets, 1)
	assert.Equal(t, DefaultNumTracks, targets[0].NumTracks)
	assert.Equal(t, DefaultSpacing, targets[0].Spacing)
	assert.Equal(t, DefaultBearing, targets[0].Bearing)
}

func TestParseTargets_Empty(t *testing.T) {
	assert.Empty(t, ParseTargets(""))
	assert.Empty(t, ParseTargets("\n# only a comment\n\n"))
}

func TestParseTargets_NonFiniteAndHugeOverridesKeepDefaults(t *testing.T) {
	targets := ParseTargets("1 2 rock R 2000000000 inf -Inf\n3 4 rock S 100 NaN 1e400\n5 6 rock U 101\n")
	require.Len(t, targets, 3)

	assert.Equal(t, DefaultNumTracks, targets[0].NumTracks)
	assert.Equal(t, DefaultSpacing, targets[0].Spacing)
	assert.Equal(t, DefaultBearing, targets[0].Bearing)

	assert.Equal(t, MaxNumTracks, targets[1].NumTracks)
	assert.Equal(t, DefaultSpacing, targets[1].Spacing)
	assert.Equal(t, DefaultBearing, targets[1].Bearing)

	assert.Equal(t, DefaultNumTracks, targets[2].NumTracks)
}

func TestParseTargets_InfiniteCoordinateIsInvalid(t *testing.T) {
	targets := ParseTargets("inf 2 rock R\n1 -inf rock S\n")
	require.Len(t, targets, 2)
	assert.False(t, targets[0].Position.Valid())
	assert.False(t, targets[1].Position.Valid())
}
