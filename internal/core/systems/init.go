// Package systems registers the secondary terminology system profiles
// with the core registry. Import this package to ensure all systems
// are registered.
package systems

// This file exists to provide a single import point.
// Each system file uses init() to register its profile.
