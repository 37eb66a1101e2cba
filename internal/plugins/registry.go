package plugins

import (
	"sort"
	"sync"

	"github.com/andrei-cloud/go_assetpool/pkg/pool"
)

// PluginInfo describes a loaded asset command.
type PluginInfo struct {
	CommandCode string     `json:"command"`
	Exports     []string   `json:"exports"`
	Stats       pool.Stats `json:"pool"`
}

// PluginRegistry holds the static description of every loaded command.
type PluginRegistry struct {
	plugins map[string]*PluginInfo
	mu      sync.RWMutex
}

// NewPluginRegistry creates an empty registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{
		plugins: make(map[string]*PluginInfo),
	}
}

// Register adds or replaces the entry for info.CommandCode.
func (pr *PluginRegistry) Register(info *PluginInfo) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.plugins[info.CommandCode] = info
}

// Get retrieves the entry for commandCode.
func (pr *PluginRegistry) Get(commandCode string) (*PluginInfo, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	info, ok := pr.plugins[commandCode]

	return info, ok
}

// List returns all entries sorted by command code.
func (pr *PluginRegistry) List() []*PluginInfo {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	result := make([]*PluginInfo, 0, len(pr.plugins))
	for _, info := range pr.plugins {
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CommandCode < result[j].CommandCode })

	return result
}
