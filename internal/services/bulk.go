// internal/services/bulk.go
package services

import (
	"github.com/google/uuid"
)

const (
	// bulkBatchSize is the fixed sub-batch size for bulk mutations.
	bulkBatchSize = 100
	// maxBulkItems bounds a single bulk request.
	maxBulkItems = 500
)

// BulkResult reports per-item outcomes of a bulk mutation. Sub-batches
// fail independently; a failure in one never rolls back another.
type BulkResult struct {
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// runBulkUpdate partitions ids into fixed-size sub-batches and applies
// each through apply, which returns the ids it actually updated. IDs the
// store did not know are reported individually; an apply error marks the
// whole sub-batch failed without touching other sub-batches.
func runBulkUpdate(ids []uuid.UUID, batchSize int, apply func(batch []uuid.UUID) ([]uuid.UUID, error)) *BulkResult {
	result := &BulkResult{Errors: make(map[string]string)}

	for _, batch := range partitionIDs(ids, batchSize) {
		updated, err := apply(batch)
		if err != nil {
			for _, id := range batch {
				result.Errors[id.String()] = err.Error()
			}
			result.Failed += len(batch)
			continue
		}

		updatedSet := make(map[uuid.UUID]bool, len(updated))
		for _, id := range updated {
			updatedSet[id] = true
		}

		for _, id := range batch {
			if updatedSet[id] {
				result.Successful++
			} else {
				result.Errors[id.String()] = "not found"
				result.Failed++
			}
		}
	}

	return result
}

func partitionIDs(ids []uuid.UUID, size int) [][]uuid.UUID {
	if size <= 0 {
		return nil
	}

	var batches [][]uuid.UUID
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
