package services

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coldreach/internal/models"
)

func TestAllocateSlots(t *testing.T) {
	window := models.NewBusinessWindow(9, 21, time.UTC)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Slots are distinct, sorted and inside the window", func(t *testing.T) {
		allocator := NewSlotAllocator(rand.NewSource(1))

		slots, err := allocator.AllocateSlots(day, 50, window)
		require.NoError(t, err)
		require.Len(t, slots, 50)

		windowStart := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
		windowEnd := time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC)

		seen := make(map[time.Time]bool)
		for i, slot := range slots {
			assert.False(t, slot.Before(windowStart), "slot %v before window start", slot)
			assert.True(t, slot.Before(windowEnd), "slot %v at or after window end", slot)
			assert.Zero(t, slot.Second())
			assert.False(t, seen[slot], "duplicate slot %v", slot)
			seen[slot] = true
			if i > 0 {
				assert.True(t, slots[i-1].Before(slot), "slots not sorted ascending")
			}
		}
	})

	t.Run("Full window capacity can be allocated", func(t *testing.T) {
		allocator := NewSlotAllocator(rand.NewSource(2))

		slots, err := allocator.AllocateSlots(day, 720, window)
		require.NoError(t, err)
		assert.Len(t, slots, 720)
	})

	t.Run("Requesting more than the window holds allocates nothing", func(t *testing.T) {
		allocator := NewSlotAllocator(rand.NewSource(3))

		slots, err := allocator.AllocateSlots(day, 721, window)
		assert.ErrorIs(t, err, ErrCapacityExceeded)
		assert.Nil(t, slots)
	})

	t.Run("Zero count yields no slots and no error", func(t *testing.T) {
		allocator := NewSlotAllocator(rand.NewSource(4))

		slots, err := allocator.AllocateSlots(day, 0, window)
		assert.NoError(t, err)
		assert.Empty(t, slots)
	})

	t.Run("Same seed yields same slots", func(t *testing.T) {
		first, err := NewSlotAllocator(rand.NewSource(42)).AllocateSlots(day, 10, window)
		require.NoError(t, err)
		second, err := NewSlotAllocator(rand.NewSource(42)).AllocateSlots(day, 10, window)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestVentilationOffset(t *testing.T) {
	allocator := NewSlotAllocator(rand.NewSource(1))

	t.Run("Window of one day is always offset zero", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			assert.Zero(t, allocator.VentilationOffset(1))
		}
		assert.Zero(t, allocator.VentilationOffset(0))
	})

	t.Run("Offsets stay inside the ventilation window", func(t *testing.T) {
		hit := make(map[int]bool)
		for i := 0; i < 200; i++ {
			offset := allocator.VentilationOffset(3)
			assert.GreaterOrEqual(t, offset, 0)
			assert.Less(t, offset, 3)
			hit[offset] = true
		}
		// 200 draws over 3 values makes missing one astronomically unlikely.
		assert.Len(t, hit, 3)
	})
}
