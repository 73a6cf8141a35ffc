// Package config normalizes worker-wide topology options against a
// component's own JSON overrides: an allow-listed key in the component
// document wins, everything else falls back to the topology value.
package config
