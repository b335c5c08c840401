package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-logbook/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// consistentChain returns three road lists, each seeded from its predecessor.
func consistentChain(t *testing.T, v *models.Vehicle) []models.RoadList {
	t.Helper()
	a := roadList(1, 100, v.ZeroUsage().Add(10),
		row(nil, map[string]float64{ModeIdle: 1, ModeCruise: 0.5}))
	b := roadList(2, 0, v.ZeroUsage(),
		row(models.Float(40), map[string]float64{ModeIdle: 2}))
	c := roadList(3, 0, v.ZeroUsage(),
		row(nil, map[string]float64{ModeCruise: 1}))
	r := Rebuild(v, []models.RoadList{a, b, c})
	require.Empty(t, Verify(v, r.Chain))
	return r.Chain
}

func assertSeeded(t *testing.T, v *models.Vehicle, chain []models.RoadList, from int) {
	t.Helper()
	for j := from + 1; j < len(chain); j++ {
		prev := CalculateDocument(chain[j-1], v)
		assert.Equal(t, prev.CumulativeFuel, chain[j].StartFuel, "start fuel of #%d", j)
		assert.True(t, prev.CumulativeHours.Equal(chain[j].StartHours),
			"start hours of #%d: want %s, got %s", j, prev.CumulativeHours, chain[j].StartHours)
	}
}

func TestUpsert_EditPropagatesForward(t *testing.T) {
	for _, profile := range []string{ProfileKMAR, ProfileMamba} {
		t.Run(profile, func(t *testing.T) {
			v := vehicle(t, profile)
			chain := consistentChain(t, v)

			edited := chain[0]
			edited.Itineraries = append(edited.Itineraries, row(models.Float(15), map[string]float64{ModeFull: 0.25}))

			r := Upsert(v, chain, edited)

			assert.Equal(t, 0, r.Position)
			assertSeeded(t, v, r.Chain, 0)
			assert.Equal(t, ids(chain), ids(r.Chain))
			assert.Equal(t, ids(chain), ids(r.Changed))
		})
	}
}

func TestUpsert_KeepsUpsertedStarts(t *testing.T) {
	v := vehicle(t, ProfileKMAR)
	chain := consistentChain(t, v)

	edited := chain[1]
	edited.StartFuel = 5
	edited.StartHours = models.Scalar(1)

	r := Upsert(v, chain, edited)

	assert.Equal(t, 1, r.Position)
	assert.Equal(t, 5.0, r.Chain[1].StartFuel)
	assert.Equal(t, models.Scalar(1), r.Chain[1].StartHours)
	assertSeeded(t, v, r.Chain, 1)
	assert.Equal(t, []primitive.ObjectID{chain[1].ID, chain[2].ID}, ids(r.Changed))
}

func TestUpsert_InsertAtFront(t *testing.T) {
	v := vehicle(t, ProfileKMAR)
	chain := consistentChain(t, v)
	first := roadList(0, 300, models.Scalar(2), row(nil, map[string]float64{ModeFull: 1}))

	r := Upsert(v, chain, first)

	require.Len(t, r.Chain, 4)
	assert.Equal(t, 0, r.Position)
	assert.Equal(t, first.ID, r.Chain[0].ID)
	assert.Equal(t, 300.0, r.Chain[0].StartFuel)
	assertSeeded(t, v, r.Chain, 0)
	assert.Len(t, r.Changed, 4)
}

func TestUpsert_AppendOnlyWritesItself(t *testing.T) {
	v := vehicle(t, ProfileKMAR)
	chain := consistentChain(t, v)
	last := roadList(9, 1, models.Scalar(1))

	r := Upsert(v, chain, last)

	assert.Equal(t, 3, r.Position)
	require.Len(t, r.Changed, 1)
	assert.Equal(t, last.ID, r.Changed[0].ID)
}

func TestUpsert_EqualEndGoesAfterExisting(t *testing.T) {
	v := vehicle(t, ProfileKMAR)
	chain := consistentChain(t, v)
	twin := roadList(2, 0, models.Scalar(0))

	r := Upsert(v, chain, twin)

	assert.Equal(t, 2, r.Position)
	assert.Equal(t, []primitive.ObjectID{chain[0].ID, chain[1].ID, twin.ID, chain[2].ID}, ids(r.Chain))
	assertSeeded(t, v, r.Chain, 2)
}

func TestUpsert_MoveLater(t *testing.T) {
	v := vehicle(t, ProfileKMAR)
	chain := consistentChain(t, v)
	a, b, c := chain[0], chain[1], chain[2]

	moved := b
	moved.End = c.End.AddDate(0, 0, 1)

	r := Upsert(v, chain, moved)

	assert.Equal(t, []primitive.ObjectID{a.ID, c.ID, b.ID}, ids(r.Chain))
	assert.Equal(t, 2, r.Position)
	assertSeeded(t, v, r.Chain[:2], 0)
	assert.Equal(t, b.StartFuel, r.Chain[2].StartFuel)
}

func TestUpsert_DoesNotMutateInput(t *testing.T) {
	v := vehicle(t, ProfileKMAR)
	chain := consistentChain(t, v)
	before := chain[2].StartFuel

	edited := chain[0]
	edited.StartFuel = 0
	Upsert(v, chain, edited)

	assert.Equal(t, before, chain[2].StartFuel)
}

func TestDelete_FirstKeepsSuccessorStarts(t *testing.T) {
	v := vehicle(t, ProfileKMAR)
	chain := consistentChain(t, v)
	b := chain[1]

	r, ok := Delete(v, chain, chain[0].ID)

	require.True(t, ok)
	assert.Equal(t, 0, r.Position)
	require.Len(t, r.Chain, 2)
	assert.Equal(t, b.ID, r.Chain[0].ID)
	assert.Equal(t, b.StartFuel, r.Chain[0].StartFuel)
	assert.Equal(t, b.StartHours, r.Chain[0].StartHours)
	assertSeeded(t, v, r.Chain, 0)
	assert.Empty(t, r.Changed)
}

func TestDelete_MiddleReseedsFromPredecessor(t *testing.T) {
	v := vehicle(t, ProfileMamba)
	chain := consistentChain(t, v)

	r, ok := Delete(v, chain, chain[1].ID)

	require.True(t, ok)
	assert.Equal(t, []primitive.ObjectID{chain[0].ID, chain[2].ID}, ids(r.Chain))
	prev := CalculateDocument(chain[0], v)
	assert.Equal(t, prev.CumulativeFuel, r.Chain[1].StartFuel)
	assert.Equal(t, prev.CumulativeHours, r.Chain[1].StartHours)
	assert.Equal(t, []primitive.ObjectID{chain[2].ID}, ids(r.Changed))
}

func TestDelete_Unknown(t *testing.T) {
	v := vehicle(t, ProfileKMAR)
	_, ok := Delete(v, consistentChain(t, v), primitive.NewObjectID())
	assert.False(t, ok)
}

func TestVerify_ReportsBrokenLinks(t *testing.T) {
	v := vehicle(t, ProfileKMAR)
	chain := consistentChain(t, v)
	want := chain[2].StartFuel
	chain[2].StartFuel = want + 1

	got := Verify(v, chain)

	require.Len(t, got, 1)
	assert.Equal(t, chain[2].ID, got[0].DocumentID)
	assert.Equal(t, 2, got[0].Index)
	assert.Equal(t, want, got[0].ExpectedFuel)

	fixed := Rebuild(v, chain)
	assert.Empty(t, Verify(v, fixed.Chain))
	assert.Equal(t, []primitive.ObjectID{chain[2].ID}, ids(fixed.Changed))
}

func TestNextStart(t *testing.T) {
	v := vehicle(t, ProfileMamba)

	_, hours, ok := NextStart(v, nil)
	assert.False(t, ok)
	assert.Equal(t, models.Dual(0, 0), hours)

	chain := consistentChain(t, v)
	fuel, hours, ok := NextStart(v, chain)
	require.True(t, ok)
	last := CalculateDocument(chain[2], v)
	assert.Equal(t, last.CumulativeFuel, fuel)
	assert.Equal(t, last.CumulativeHours, hours)
}
