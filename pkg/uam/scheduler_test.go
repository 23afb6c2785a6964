package uam_test

import (
	"testing"

	"github.com/fieldbus-systems/opcua-pubsub/pkg/uam"
	"github.com/stretchr/testify/require"
)

func TestInitProvider_S4SingleCycleIncrementsMonitoringNumber(t *testing.T) {
	b := uam.NewBuilder(4, 4)

	var gotCfg uam.Config
	var calls int
	handle, err := b.InitProvider(
		uam.Config{SessionID: 0x010203, SafetyDataLength: 28, NonSafetyDataLength: 30},
		[]byte("spi"),
		func(cfg uam.Config, prevRequest *uam.SPDU, safetyOut, nonSafetyOut []byte) {
			gotCfg = cfg
			calls++
			safetyOut[0] = 0xAA
		},
	)
	require.NoError(t, err)
	require.Equal(t, uam.ProviderHandle(0), handle)

	sched, err := b.Start(uam.ChecksumLayer{}, 4096)
	require.NoError(t, err)

	require.NoError(t, sched.Cycle())
	require.Equal(t, 1, calls)
	require.Equal(t, uint32(0x010203), gotCfg.SessionID)
	require.Equal(t, 28, gotCfg.SafetyDataLength)

	resp1, err := sched.PendingResponse(handle)
	require.NoError(t, err)
	mnr1 := readMonitoringNumber(resp1)

	require.NoError(t, sched.Cycle())
	resp2, err := sched.PendingResponse(handle)
	require.NoError(t, err)
	mnr2 := readMonitoringNumber(resp2)

	require.Equal(t, mnr1+1, mnr2)
}

func readMonitoringNumber(raw []byte) uint32 {
	return uint32(raw[12]) | uint32(raw[13])<<8 | uint32(raw[14])<<16 | uint32(raw[15])<<24
}

func TestInitProvider_HandlesAreDenseAndStartAtZero(t *testing.T) {
	b := uam.NewBuilder(4, 4)
	cb := func(uam.Config, *uam.SPDU, []byte, []byte) {}

	h0, err := b.InitProvider(uam.Config{SafetyDataLength: 1, NonSafetyDataLength: 1}, nil, cb)
	require.NoError(t, err)
	h1, err := b.InitProvider(uam.Config{SafetyDataLength: 1, NonSafetyDataLength: 1}, nil, cb)
	require.NoError(t, err)

	require.Equal(t, uam.ProviderHandle(0), h0)
	require.Equal(t, uam.ProviderHandle(1), h1)
}

func TestInitProvider_RejectsPastCapacity(t *testing.T) {
	b := uam.NewBuilder(1, 1)
	cb := func(uam.Config, *uam.SPDU, []byte, []byte) {}

	_, err := b.InitProvider(uam.Config{SafetyDataLength: 1, NonSafetyDataLength: 1}, nil, cb)
	require.NoError(t, err)
	_, err = b.InitProvider(uam.Config{SafetyDataLength: 1, NonSafetyDataLength: 1}, nil, cb)
	require.Error(t, err)
}

func TestScheduler_ClearInvalidatesHandles(t *testing.T) {
	b := uam.NewBuilder(2, 2)
	cb := func(uam.Config, *uam.SPDU, []byte, []byte) {}
	_, err := b.InitProvider(uam.Config{SafetyDataLength: 16, NonSafetyDataLength: 16}, nil, cb)
	require.NoError(t, err)

	sched, err := b.Start(uam.ChecksumLayer{}, 1024)
	require.NoError(t, err)
	require.NoError(t, sched.Cycle())

	sched.Clear()
	_, err = sched.PendingResponse(0)
	require.Error(t, err)
}
