// Package osregiontest provides osregion.Provider fakes for exercising
// engine growth and teardown paths without depending on how many real
// pages a test happens to commit.
package osregiontest

import (
	"fmt"
	"sync"

	"tieredalloc/internal/osregion"
)

// Counting wraps a Provider and counts Map/Unmap calls, so a test can
// assert every mapped region was eventually unmapped.
type Counting struct {
	Provider osregion.Provider

	mu      sync.Mutex
	mapped  int
	unmaped int
}

func NewCounting(p osregion.Provider) *Counting {
	return &Counting{Provider: p}
}

func (c *Counting) Map(size int) ([]byte, error) {
	data, err := c.Provider.Map(size)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.mapped++
	c.mu.Unlock()
	return data, nil
}

func (c *Counting) Unmap(region []byte) error {
	if err := c.Provider.Unmap(region); err != nil {
		return err
	}
	c.mu.Lock()
	c.unmaped++
	c.mu.Unlock()
	return nil
}

// Balance returns (maps, unmaps). A leak-free lifecycle has maps ==
// unmaps once every outstanding region has been released.
func (c *Counting) Balance() (mapped, unmapped int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mapped, c.unmaped
}

// Limited fails every Map call once a fixed number of regions have
// been committed, simulating OS exhaustion.
type Limited struct {
	Provider osregion.Provider
	MaxMaps  int

	mu    sync.Mutex
	count int
}

func (l *Limited) Map(size int) ([]byte, error) {
	l.mu.Lock()
	if l.count >= l.MaxMaps {
		l.mu.Unlock()
		return nil, fmt.Errorf("osregiontest: simulated exhaustion after %d regions", l.MaxMaps)
	}
	l.count++
	l.mu.Unlock()
	return l.Provider.Map(size)
}

func (l *Limited) Unmap(region []byte) error {
	return l.Provider.Unmap(region)
}
