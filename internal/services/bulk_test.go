// internal/services/bulk_test.go
package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestPartitionIDs(t *testing.T) {
	ids := makeIDs(250)

	batches := partitionIDs(ids, 100)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 100)
	assert.Len(t, batches[1], 100)
	assert.Len(t, batches[2], 50)

	assert.Len(t, partitionIDs(makeIDs(100), 100), 1)
	assert.Nil(t, partitionIDs(nil, 100))
	assert.Nil(t, partitionIDs(ids, 0))
}

func TestRunBulkUpdateAllSucceed(t *testing.T) {
	ids := makeIDs(150)
	var batchSizes []int

	result := runBulkUpdate(ids, 100, func(batch []uuid.UUID) ([]uuid.UUID, error) {
		batchSizes = append(batchSizes, len(batch))
		return batch, nil
	})

	assert.Equal(t, []int{100, 50}, batchSizes)
	assert.Equal(t, 150, result.Successful)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)
}

func TestRunBulkUpdateBatchesFailIndependently(t *testing.T) {
	ids := makeIDs(150)
	call := 0

	result := runBulkUpdate(ids, 100, func(batch []uuid.UUID) ([]uuid.UUID, error) {
		call++
		if call == 1 {
			return nil, errors.New("deadlock detected")
		}
		return batch, nil
	})

	// First sub-batch of 100 fails as a unit, second sub-batch of 50 still lands.
	assert.Equal(t, 50, result.Successful)
	assert.Equal(t, 100, result.Failed)
	assert.Equal(t, 150, result.Successful+result.Failed)
	assert.Len(t, result.Errors, 100)
	for _, id := range ids[:100] {
		assert.Equal(t, "deadlock detected", result.Errors[id.String()])
	}
	for _, id := range ids[100:] {
		assert.NotContains(t, result.Errors, id.String())
	}
}

func TestRunBulkUpdateReportsMissingIDs(t *testing.T) {
	ids := makeIDs(5)
	missing := ids[3]

	result := runBulkUpdate(ids, 100, func(batch []uuid.UUID) ([]uuid.UUID, error) {
		var updated []uuid.UUID
		for _, id := range batch {
			if id != missing {
				updated = append(updated, id)
			}
		}
		return updated, nil
	})

	assert.Equal(t, 4, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "not found", result.Errors[missing.String()])
}
