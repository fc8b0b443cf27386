package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// SystemProfile describes how one secondary system's reference table
// is read: where its code and native-script label live, and the
// default reference file name. Profiles are registered at init time by
// the systems package.
type SystemProfile struct {
	System System
	Label  string // Display name: "Ayurveda"

	// Code locates the system-local term code column.
	Code ColumnRule

	// Native locates the native-script label column
	// (Devanagari, Tamil, or Arabic depending on the system).
	Native ColumnRule

	// ReferenceFile is the default reference table file name.
	ReferenceFile string
}

var (
	registry   = make(map[System]SystemProfile)
	registryMu sync.RWMutex
)

// Register adds a system profile to the registry.
// Panics if the system is already registered.
func Register(p SystemProfile) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[p.System]; exists {
		panic(fmt.Sprintf("system already registered: %s", p.System))
	}

	registry[p.System] = p
}

// Profile returns the profile for a system.
// Returns false if not registered.
func Profile(system System) (SystemProfile, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	p, ok := registry[system]
	return p, ok
}

// AllProfiles returns all registered profiles sorted by system name.
func AllProfiles() []SystemProfile {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]SystemProfile, 0, len(registry))
	for _, p := range registry {
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].System < result[j].System
	})

	return result
}

// ParseSystem normalizes a source-table system label to its canonical
// form. Returns false for systems that are not registered.
func ParseSystem(s string) (System, bool) {
	system := System(strings.ToLower(strings.TrimSpace(s)))

	registryMu.RLock()
	defer registryMu.RUnlock()

	_, ok := registry[system]
	return system, ok
}

// SystemCount returns the number of registered systems.
func SystemCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// ClearRegistry removes all registered systems.
// Primarily useful for testing.
func ClearRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[System]SystemProfile)
}
