//go:build !android && !ios && !windows

package launcher

const defaultStrategy = StrategyForked
