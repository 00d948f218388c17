package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esungul/UniveralValidator/internal/ir"
)

func TestStepClock_Advances(t *testing.T) {
	clock := NewStepClock(Epoch, time.Second)

	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())
	assert.Equal(t, int64(2), clock.Calls())

	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}

func TestStepClock_ConcurrentCalls(t *testing.T) {
	clock := NewStepClock(Epoch, time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Now()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), clock.Calls())
}

func TestFixedRunID(t *testing.T) {
	assert.Equal(t, "test-run", FixedRunID("").Generate())
	assert.Equal(t, "run-1", FixedRunID("run-1").Generate())
}

func TestBuilders(t *testing.T) {
	o := Order("O1", "555", "Change Device", At(5), "newDeviceType", "smartphone", "qty", 2)
	assert.Equal(t, Epoch.Add(5*time.Minute), o.CreatedAt)
	assert.Equal(t, ir.String("smartphone"), o.Fields["newDeviceType"])
	assert.Equal(t, ir.Int(2), o.Fields["qty"])

	assets := Owned("555", Asset("A1", "line", ""), Asset("A2", "device", "A1", "deviceType", nil))
	require.Len(t, assets, 2)
	assert.Equal(t, "555", assets[1].Subscriber)
	assert.Equal(t, ir.Null{}, assets[1].Fields["deviceType"])
}

func TestFields_PanicsOnOddArgs(t *testing.T) {
	assert.Panics(t, func() { Fields("only-key") })
}
