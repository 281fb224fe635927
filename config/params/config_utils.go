package params

import "sync"

var activeMu sync.RWMutex
var active = MainnetConfig()

// BeaconConfig retrieves the active beacon chain config. Grounded on the
// teacher's config_utils_prod.go BeaconConfig()/Registry.GetActive()
// accessor pair, collapsed into a single RWMutex-guarded package variable
// since this module only ever needs one active config, not a named
// registry of presets.
func BeaconConfig() *BeaconChainConfig {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return active
}

// OverrideBeaconConfig replaces the active config. The preferred pattern,
// per the teacher's own doc comment, is to call BeaconConfig(), copy and
// mutate the specific fields needed, then call OverrideBeaconConfig with
// the result.
func OverrideBeaconConfig(c *BeaconChainConfig) {
	activeMu.Lock()
	defer activeMu.Unlock()
	active = c
}
