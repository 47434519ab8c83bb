package launcher

const defaultStrategy = StrategyDirect
