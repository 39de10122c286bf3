package config

import "sync"

// ViewSettings holds the process-wide view configuration shared by the
// chunk store and the CLI.
type ViewSettings struct {
	mu           sync.RWMutex
	viewDistance int // in chunks
}

const (
	minViewDistance = 2
	maxViewDistance = 64
)

var globalViewSettings = &ViewSettings{
	viewDistance: 8,
}

// GetViewDistance returns the current view distance in chunks
func GetViewDistance() int {
	globalViewSettings.mu.RLock()
	defer globalViewSettings.mu.RUnlock()
	return globalViewSettings.viewDistance
}

// SetViewDistance sets the view distance in chunks
func SetViewDistance(distance int) {
	globalViewSettings.mu.Lock()
	defer globalViewSettings.mu.Unlock()

	// Clamp to reasonable values
	if distance < minViewDistance {
		distance = minViewDistance
	}
	if distance > maxViewDistance {
		distance = maxViewDistance
	}

	globalViewSettings.viewDistance = distance
}

// GetViewRadiusBlocks returns the view distance in voxels for a chunk edge length.
func GetViewRadiusBlocks(edge int) float32 {
	return float32(GetViewDistance() * edge)
}
