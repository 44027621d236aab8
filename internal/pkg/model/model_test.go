package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotClone(t *testing.T) {
	original := NewSnapshot()
	original.FetchedAt = time.Now()
	original.PowerLED = true
	original.Groups[GroupLEDs] = GroupState{FetchedAt: original.FetchedAt}
	original.Capabilities[CapabilityHDMIControl] = struct{}{}
	enabled := true
	original.HDMIOutput = &enabled

	clone := original.Clone()
	clone.PowerLED = false
	clone.Groups[GroupLEDs] = GroupState{Stale: true}
	clone.Capabilities[CapabilityOLED] = struct{}{}
	*clone.HDMIOutput = false

	// Mutating the clone must leave the published snapshot alone.
	assert.True(t, original.PowerLED)
	assert.False(t, original.Groups[GroupLEDs].Stale)
	assert.False(t, original.HasCapability(CapabilityOLED))
	assert.True(t, *original.HDMIOutput)
}

func TestSnapshotClone_NilHDMI(t *testing.T) {
	original := NewSnapshot()
	clone := original.Clone()
	assert.Nil(t, clone.HDMIOutput)
}

func TestGroupFresh(t *testing.T) {
	s := NewSnapshot()
	assert.False(t, s.GroupFresh(GroupLEDs), "unfetched group is not fresh")

	s.Groups[GroupLEDs] = GroupState{FetchedAt: time.Now()}
	assert.True(t, s.GroupFresh(GroupLEDs))

	s.Groups[GroupLEDs] = GroupState{FetchedAt: time.Now(), Stale: true}
	assert.False(t, s.GroupFresh(GroupLEDs))
}

func TestCapabilitiesFor(t *testing.T) {
	alpha := CapabilitiesFor(HardwareAlpha)
	_, hasHDD := alpha[CapabilityHDDLed]
	assert.True(t, hasHDD)
	_, hasHDMI := alpha[CapabilityHDMIControl]
	assert.False(t, hasHDMI)

	pcie := CapabilitiesFor(HardwarePCIE)
	_, hasHDMI = pcie[CapabilityHDMIControl]
	assert.True(t, hasHDMI)

	assert.Empty(t, CapabilitiesFor(HardwareBeta))
	assert.Empty(t, CapabilitiesFor(HardwareVersion("unknown")))
}

func TestParseButtonType(t *testing.T) {
	b, ok := ParseButtonType("power")
	require.True(t, ok)
	assert.Equal(t, ButtonPower, b)

	b, ok = ParseButtonType("reset")
	require.True(t, ok)
	assert.Equal(t, ButtonReset, b)

	_, ok = ParseButtonType("eject")
	assert.False(t, ok)
	_, ok = ParseButtonType("")
	assert.False(t, ok)
}

func TestParseToggleTarget(t *testing.T) {
	for _, name := range []string{"ssh", "mdns", "virtual_network", "virtual_disk", "hdmi_output"} {
		target, ok := ParseToggleTarget(name)
		require.True(t, ok, name)
		assert.Equal(t, name, target.String())
	}

	_, ok := ParseToggleTarget("bluetooth")
	assert.False(t, ok)
}

func TestParseJigglerMode(t *testing.T) {
	for _, name := range []string{"disable", "relative", "absolute"} {
		mode, ok := ParseJigglerMode(name)
		require.True(t, ok, name)
		assert.Equal(t, name, mode.String())
	}

	_, ok := ParseJigglerMode("enabled")
	assert.False(t, ok)
}

func TestBaseGroups(t *testing.T) {
	assert.Len(t, BaseGroups, 9)
	assert.NotContains(t, BaseGroups, GroupHDMI)
}
