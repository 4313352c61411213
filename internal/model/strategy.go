package model

// Strategy selects how the search orders its open list.
type Strategy string

const (
	StrategyAStar    Strategy = "astar"
	StrategyWeighted Strategy = "wastar"
	StrategyGreedy   Strategy = "gbfs"
)

// DedupPolicy selects what identifies a previously seen state.
type DedupPolicy string

const (
	DedupFacts   DedupPolicy = "facts"   // facts and fluents
	DedupLogical DedupPolicy = "logical" // facts, fluents and in-flight actions
	DedupNone    DedupPolicy = "none"
)

// CostModel selects what g measures.
type CostModel string

const (
	CostDuration CostModel = "duration" // sum of action durations, instants cost epsilon
	CostUnit     CostModel = "unit"     // number of action starts
	CostMakespan CostModel = "makespan" // earliest completion time of the schedule
)

type HeuristicKind string

const (
	HeuristicMax   HeuristicKind = "hmax"
	HeuristicAdd   HeuristicKind = "hadd"
	HeuristicBlind HeuristicKind = "blind"
)
