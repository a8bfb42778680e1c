package sensors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func staticSource(name string, values []int, err error) Source[int] {
	return Source[int]{
		Name: name,
		Read: func(context.Context) ([]int, error) { return values, err },
	}
}

func TestChainFallsThroughInOrder(t *testing.T) {
	chain := NewChain("gpu", validCelsius, nil,
		staticSource("broken", nil, errors.New("not installed")),
		staticSource("empty", nil, nil),
		staticSource("insane", []int{250, -60}, nil),
		staticSource("good", []int{61, 300, 58}, nil),
		staticSource("never", []int{99}, nil),
	)

	values, source := chain.Acquire(context.Background())
	assert.Equal(t, []int{61, 58}, values)
	assert.Equal(t, "good", source)
}

func TestChainAllEmpty(t *testing.T) {
	chain := NewChain("system", validCelsius, nil,
		staticSource("a", nil, errors.New("boom")),
		staticSource("b", []int{}, nil),
	)

	values, source := chain.Acquire(context.Background())
	assert.Empty(t, values)
	assert.Empty(t, source)
}

func TestValidFanSpeed(t *testing.T) {
	assert.True(t, ValidFanSpeed(FanSpeed{Value: 1200, Unit: UnitRPM}))
	assert.False(t, ValidFanSpeed(FanSpeed{Value: 0, Unit: UnitRPM}))
	assert.False(t, ValidFanSpeed(FanSpeed{Value: 50000, Unit: UnitRPM}))
	assert.True(t, ValidFanSpeed(FanSpeed{Value: 0, Unit: UnitPercent}))
	assert.True(t, ValidFanSpeed(FanSpeed{Value: 100, Unit: UnitPercent}))
	assert.False(t, ValidFanSpeed(FanSpeed{Value: 101, Unit: UnitPercent}))
}

func TestAverageRPMIgnoresPercent(t *testing.T) {
	fans := []FanSpeed{
		{Value: 3000, Unit: UnitRPM},
		{Value: 4001, Unit: UnitRPM},
		{Value: 40, Unit: UnitPercent},
	}
	assert.Equal(t, 3500, AverageRPM(fans))
	assert.Equal(t, 0, AverageRPM(nil))
	assert.Equal(t, "3000, 4001, 40", Join(Values(fans)))
}
