package serial_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsk3232/DevelopProject/pkg/internal/serial"
)

func TestRangeConstruction(t *testing.T) {
	v := serial.New()

	cases := []struct {
		lot        int
		start, end int
	}{
		{50001, 1, 1},         // i=0 单个序列号
		{50002, 2, 2001},      // i=1
		{50003, 2002, 4001},   // i=2
		{50015, 26002, 28001}, // i=14
		{50016, 28002, 30000}, // i=15 重置前的最后一个 lot
		{50017, 1, 1},         // i=16 重置后
		{50018, 2, 2001},      // i=17
		{50026, 16002, 18001}, // i=25 最后一个 lot
	}

	for _, c := range cases {
		r, ok := v.RangeOf(serial.FactoryHwaseong, c.lot)
		require.True(t, ok, "lot %d", c.lot)
		assert.Equal(t, serial.Range{Start: c.start, End: c.end}, r, "lot %d", c.lot)
	}

	_, ok := v.RangeOf(serial.FactoryHwaseong, 50027)
	assert.False(t, ok)
}

func TestAllKnownLots(t *testing.T) {
	lots := serial.New().AllKnownLots()

	assert.Len(t, lots, 26+51+11+32)
	assert.Equal(t, "10001", lots[0])
	assert.Equal(t, "150011", lots[len(lots)-1])
}

func TestIsValid(t *testing.T) {
	v := serial.New()

	assert.True(t, v.IsValid(serial.FactoryHwaseong, "50002", 2))
	assert.True(t, v.IsValid(serial.FactoryHwaseong, "50002", 2001))
	assert.False(t, v.IsValid(serial.FactoryHwaseong, "50002", 2002))
	assert.True(t, v.IsValid(serial.FactoryHwaseong, "050002", 100), "leading zeros")
	assert.False(t, v.IsValid(serial.FactoryIncheon, "50002", 2), "lot of another factory")
	assert.False(t, v.IsValid("부산", "50002", 2))
	assert.False(t, v.IsValid(serial.FactoryHwaseong, "abc", 2))
}

func TestIsPotentiallyValidSerial(t *testing.T) {
	v := serial.New()

	// 只在某个工厂的 lot 中合法，但不区分工厂
	assert.True(t, v.IsValid(serial.FactoryGumi, "150003", 3000))
	assert.True(t, v.IsPotentiallyValidSerial(3000))
	assert.True(t, v.IsPotentiallyValidSerial(1))
	assert.False(t, v.IsPotentiallyValidSerial(0))
	assert.False(t, v.IsPotentiallyValidSerial(-5))
	assert.False(t, v.IsPotentiallyValidSerial(10_000_000))
}

func TestIsKnownLot(t *testing.T) {
	v := serial.New()

	assert.True(t, v.IsKnownLot("10051"))
	assert.True(t, v.IsKnownLot(" 0100032 "))
	assert.False(t, v.IsKnownLot("10052"))
	assert.False(t, v.IsKnownLot(""))
}

func TestExtractFactory(t *testing.T) {
	cases := map[string]string{
		"HWS_Factory":     serial.FactoryHwaseong,
		"화성공장":            serial.FactoryHwaseong,
		"ICN_WMS":         serial.FactoryIncheon,
		"GUM_Factory":     serial.FactoryGumi,
		"YGS_Factory":     serial.FactoryYangsan,
		"양산":              serial.FactoryYangsan,
		"SEL_Logi_HUB_IN": "",
		"":                "",
	}

	for hub, want := range cases {
		assert.Equal(t, want, serial.ExtractFactory(hub), hub)
	}
}
