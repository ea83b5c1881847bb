package resource

import (
	"context"
	"sync"
	"time"

	"PdmSaas/internal/logger"
	"PdmSaas/internal/metrics"
	"PdmSaas/internal/serviceiface"
)

// Pinger is anything whose health can be probed, typically the ledger store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type ResourceManager struct {
	resources         map[string]Pinger
	mu                sync.RWMutex
	stopChan          chan struct{}
	stopOnce          sync.Once
	heartbeatInterval time.Duration
	pingTimeout       time.Duration
	healthy           map[string]bool
}

func NewResourceManagerService(cfg map[string]interface{}) *ResourceManager {
	interval := 30 * time.Second
	if val, ok := cfg["heartbeat_interval"]; ok {
		interval = durationFromConfig(val, interval)
	}
	timeout := 5 * time.Second
	if val, ok := cfg["ping_timeout"]; ok {
		timeout = durationFromConfig(val, timeout)
	}
	return &ResourceManager{
		resources:         make(map[string]Pinger),
		healthy:           make(map[string]bool),
		stopChan:          make(chan struct{}),
		heartbeatInterval: interval,
		pingTimeout:       timeout,
	}
}

// durationFromConfig accepts "15s"-style strings or a number of seconds.
func durationFromConfig(val interface{}, def time.Duration) time.Duration {
	switch v := val.(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	case int:
		if v > 0 {
			return time.Duration(v) * time.Second
		}
	case float64:
		if v > 0 {
			return time.Duration(v * float64(time.Second))
		}
	}
	return def
}

func (rm *ResourceManager) Name() string { return "resourcemanager" }

func (rm *ResourceManager) Start() error {
	logger.Audit("ResourceManager started")
	rm.check()
	go rm.heartbeatLoop()
	return nil
}

func (rm *ResourceManager) Stop() error {
	rm.stopOnce.Do(func() { close(rm.stopChan) })
	return nil
}

func (rm *ResourceManager) heartbeatLoop() {
	ticker := time.NewTicker(rm.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rm.stopChan:
			return
		case <-ticker.C:
			rm.check()
		}
	}
}

// check pings every registered resource. The ledger store also drives the
// ledger_store_up gauge.
func (rm *ResourceManager) check() {
	rm.mu.RLock()
	snapshot := make(map[string]Pinger, len(rm.resources))
	for k, p := range rm.resources {
		snapshot[k] = p
	}
	rm.mu.RUnlock()

	for key, p := range snapshot {
		ctx, cancel := context.WithTimeout(context.Background(), rm.pingTimeout)
		err := p.Ping(ctx)
		cancel()

		up := err == nil
		if key == LedgerStore {
			metrics.SetStoreUp(up)
		}
		rm.mu.Lock()
		was, seen := rm.healthy[key]
		rm.healthy[key] = up
		rm.mu.Unlock()

		switch {
		case !up:
			logger.L().WithError(err).WithField("resource", key).Warn("heartbeat failed")
		case seen && !was:
			logger.L().WithField("resource", key).Info("resource recovered")
		}
	}
}

// LedgerStore is the resource key of the ledger store.
const LedgerStore = "ledger_store"

func (rm *ResourceManager) AddResource(key string, resource Pinger) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.resources[key] = resource
}

func (rm *ResourceManager) GetResource(key string) (Pinger, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	resource, exists := rm.resources[key]
	return resource, exists
}

func (rm *ResourceManager) RemoveResource(key string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	delete(rm.resources, key)
	delete(rm.healthy, key)
}

func (rm *ResourceManager) ListResources() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	keys := make([]string, 0, len(rm.resources))
	for key := range rm.resources {
		keys = append(keys, key)
	}
	return keys
}

// Healthy reports the result of the last ping of key.
func (rm *ResourceManager) Healthy(key string) bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.healthy[key]
}

var _ serviceiface.Service = (*ResourceManager)(nil)
