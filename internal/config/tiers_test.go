package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierTableLookupIsCaseInsensitive(t *testing.T) {
	table := TierTable{Zones: map[string]string{"Frozen": "FrozenStorage"}}.Clone()

	tier := table.ZoneTier("FROZEN")
	require.NotNil(t, tier)
	assert.Equal(t, "FrozenStorage", *tier)
	assert.Nil(t, table.ZoneTier("dry"))
	assert.Nil(t, table.KindTier("surcharge"))
}

func TestTierHolderReturnsPrivateCopies(t *testing.T) {
	holder := NewStaticTierHolder(DefaultTierTable())

	first := holder.Get()
	first.Zones["frozen"] = "Tampered"
	delete(first.Kinds, "surcharge")

	second := holder.Get()
	assert.Equal(t, "FrozenStorage", *second.ZoneTier("frozen"))
	assert.Equal(t, "Expedited", *second.KindTier("surcharge"))
}

func TestValidateTierTableRejectsEmptyTier(t *testing.T) {
	err := validateTierTable(TierTable{Zones: map[string]string{"frozen": " "}})
	assert.Error(t, err)
	assert.NoError(t, validateTierTable(DefaultTierTable()))
}
