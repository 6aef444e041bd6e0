package metrics

import (
	"time"

	"github.com/rasto/lcmc-sub002/pkg/types"
)

// StateSource is the console state the collector samples
type StateSource interface {
	ListResources() ([]*types.Resource, error)
	ListPlaceholders() ([]*types.PlaceholderState, error)
}

// Collector periodically samples model gauges
type Collector struct {
	source   StateSource
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(source StateSource) *Collector {
	return &Collector{
		source:   source,
		interval: 15 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		c.Collect()

		for {
			select {
			case <-ticker.C:
				c.Collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

// Collect samples the source once
func (c *Collector) Collect() {
	c.collectResourceMetrics()
	c.collectPlaceholderMetrics()
}

func (c *Collector) collectResourceMetrics() {
	resources, err := c.source.ListResources()
	if err != nil {
		return
	}

	ResourcesTotal.Reset()
	for _, r := range resources {
		ResourcesTotal.WithLabelValues(string(r.Kind), resourceState(r)).Inc()
	}
}

func (c *Collector) collectPlaceholderMetrics() {
	placeholders, err := c.source.ListPlaceholders()
	if err != nil {
		return
	}
	PlaceholdersTotal.Set(float64(len(placeholders)))
}

func resourceState(r *types.Resource) string {
	switch {
	case r.IsRemoved:
		return "removed"
	case r.IsNew:
		return "new"
	default:
		return "created"
	}
}
