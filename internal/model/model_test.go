package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstantTime(t *testing.T) {
	assert.Equal(t, time.Unix(1619664631, 0), Instant(1619664631).Time())
	assert.Equal(t, time.Unix(10, 500_000_000), Instant(10.5).Time())
	assert.True(t, Instant(math.NaN()).Time().IsZero())
	assert.False(t, Instant(math.Inf(1)).Valid())
	assert.True(t, Instant(0).Valid())
}

func TestNewShowInstanceCopiesRecord(t *testing.T) {
	rec := ShowRecord{
		ID:          16,
		Name:        "Bayou Cirque",
		Stage:       "Washing Well Stage",
		Description: "Circus Acrobatics",
		Times:       []Instant{1619664631, 1619668231},
		Favorite:    true,
		OneNight:    true,
	}

	inst := NewShowInstance(rec, 1619668231)
	assert.Equal(t, 16, inst.ID)
	assert.Equal(t, "Bayou Cirque", inst.Name)
	assert.Equal(t, "Washing Well Stage", inst.Stage)
	assert.Equal(t, "Circus Acrobatics", inst.Description)
	assert.Equal(t, Instant(1619668231), inst.Start)
	assert.True(t, inst.Favorite)
	assert.True(t, inst.OneNight)
	assert.NotEmpty(t, inst.Key)
}

func TestInstanceKeyStable(t *testing.T) {
	a := InstanceKey(1, 1619659651)
	assert.Equal(t, a, InstanceKey(1, 1619659651))
	assert.NotEqual(t, a, InstanceKey(2, 1619659651))
	assert.NotEqual(t, a, InstanceKey(1, 1619660251))
}

func TestRecordInstances(t *testing.T) {
	rec := ShowRecord{ID: 1, Name: "The Duelist", Times: []Instant{3, 1, 2}}
	got := rec.Instances()
	require.Len(t, got, 3)
	assert.Equal(t, Instant(3), got[0].Start)
	assert.Equal(t, Instant(1), got[1].Start)
	assert.Equal(t, Instant(2), got[2].Start)
	assert.Empty(t, ShowRecord{}.Instances())
}
