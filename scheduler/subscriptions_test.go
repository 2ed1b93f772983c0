package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscribeNormalizes(t *testing.T) {
	set := NewSubscriptionSet()

	set.Subscribe(" aapl ")

	assert.True(t, set.Contains("AAPL"))
	assert.True(t, set.Contains("aapl"))
	assert.Equal(t, 1, set.Len())
}

func TestSubscribeIsIdempotent(t *testing.T) {
	set := NewSubscriptionSet()

	set.Subscribe("MSFT")
	set.Subscribe("MSFT")
	set.Subscribe("msft")

	assert.Equal(t, 1, set.Len())
}

func TestSubscribeEmptyIsNoOp(t *testing.T) {
	set := NewSubscriptionSet()

	set.Subscribe("")
	set.Subscribe("   ")

	assert.Equal(t, 0, set.Len())
}

func TestUnsubscribeAbsentIsNoOp(t *testing.T) {
	set := NewSubscriptionSet()

	set.Subscribe("AAPL")
	set.Unsubscribe("TSLA")

	assert.Equal(t, 1, set.Len())

	set.Unsubscribe("aapl")
	assert.Equal(t, 0, set.Len())
}

func TestSnapshotIsSortedCopy(t *testing.T) {
	set := NewSubscriptionSet()

	set.Subscribe("TSLA")
	set.Subscribe("AAPL")
	set.Subscribe("MSFT")

	snapshot := set.Snapshot()
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, snapshot)

	// Mutating the set after the snapshot must not affect the copy
	set.Unsubscribe("AAPL")
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, snapshot)
}
