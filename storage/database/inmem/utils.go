package inmemdb

import (
	"sort"
	"time"

	"github.com/trezcool/mahudhurio/core"
)

func sortBy[T any](items []T, less func(a, b T) bool) {
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

func lessNameID(nameA string, idA int64, nameB string, idB int64) bool {
	if nameA != nameB {
		return nameA < nameB
	}
	return idA < idB
}

// newestFirst orders by created_at DESC, id DESC.
func newestFirst(createdA time.Time, idA int64, createdB time.Time, idB int64) bool {
	if !createdA.Equal(createdB) {
		return createdA.After(createdB)
	}
	return idA > idB
}

func paginate[T any](items []T, pr core.PageRequest) []T {
	start := pr.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + pr.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
