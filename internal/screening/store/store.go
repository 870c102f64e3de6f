// Package store persists completed screenings. InMemoryStore and
// PostgresStore implement the service Store port; RedisLatestCache fronts the
// latest-screening read path.
package store

import (
	"slices"

	"benefind/internal/screening/models"
)

// sortNewestFirst orders by CreatedAt descending, stable for ties.
func sortNewestFirst(list []*models.Screening) {
	slices.SortStableFunc(list, func(a, b *models.Screening) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
