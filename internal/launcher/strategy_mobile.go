//go:build android || ios

package launcher

// Mobile platforms do not allow us to spawn processes.
const defaultStrategy = StrategyThreaded
