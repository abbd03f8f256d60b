package storage

import (
	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

// Cache defines the interface for response caching
type Cache interface {
	// Entry operations
	Get(key string) (*models.CachedResponse, bool)
	Put(key string, resp *models.CachedResponse)
	Delete(key string) bool

	// Bulk operations
	DeletePrefix(prefix string) int
	Purge() int
	Clear()

	// Utility
	Len() int
	Close() error
}
