package search

import (
	"fmt"
	"sync"

	"github.com/chazu/foldframe/pkg/structure"
)

// Candidate is a fold angle found by Scan.
type Candidate struct {
	Angle    float64 `json:"angle"`
	Residual float64 `json:"residual"` // total rotation − 2π
	Crossing bool    `json:"crossing"`
}

// ScanKey holds the only inputs the closing scan depends on. Beam sizes,
// stacks and mode do not change the linkage rotation.
type ScanKey struct {
	Modules       int
	PivotRatio    float64
	HobermanAngle float64
	PivotAngle    float64
}

// KeyFor extracts the scan key of c.
func KeyFor(c structure.Config) ScanKey {
	p := c.LinkageParams()
	return ScanKey{
		Modules:       c.Modules,
		PivotRatio:    p.PivotRatio,
		HobermanAngle: p.HobermanAngle,
		PivotAngle:    p.PivotAngle,
	}
}

// String is a stable textual form used as a storage key.
func (k ScanKey) String() string {
	return fmt.Sprintf("n=%d/p=%.6f/h=%.9f/v=%.9f", k.Modules, k.PivotRatio, k.HobermanAngle, k.PivotAngle)
}

// ScanCache stores closing scans. Implementations may persist them.
type ScanCache interface {
	LoadScan(key ScanKey) ([]Candidate, bool, error)
	StoreScan(key ScanKey, cands []Candidate) error
}

// MemoryCache is a process-local ScanCache, optionally in front of a
// slower backing cache. Backing hits are promoted into memory.
type MemoryCache struct {
	mu      sync.Mutex
	scans   map[ScanKey][]Candidate
	backing ScanCache
}

// NewMemoryCache creates an empty cache. backing may be nil.
func NewMemoryCache(backing ScanCache) *MemoryCache {
	return &MemoryCache{scans: make(map[ScanKey][]Candidate), backing: backing}
}

// LoadScan implements ScanCache.
func (m *MemoryCache) LoadScan(key ScanKey) ([]Candidate, bool, error) {
	m.mu.Lock()
	cands, ok := m.scans[key]
	m.mu.Unlock()
	if ok || m.backing == nil {
		return cands, ok, nil
	}

	cands, ok, err := m.backing.LoadScan(key)
	if err != nil || !ok {
		return nil, false, err
	}
	m.mu.Lock()
	m.scans[key] = cands
	m.mu.Unlock()
	return cands, true, nil
}

// StoreScan implements ScanCache, writing through to the backing cache.
func (m *MemoryCache) StoreScan(key ScanKey, cands []Candidate) error {
	m.mu.Lock()
	m.scans[key] = cands
	m.mu.Unlock()
	if m.backing != nil {
		return m.backing.StoreScan(key, cands)
	}
	return nil
}

// Invalidate drops the scan for key from memory.
func (m *MemoryCache) Invalidate(key ScanKey) {
	m.mu.Lock()
	delete(m.scans, key)
	m.mu.Unlock()
}

// Len returns the number of scans held in memory.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scans)
}
