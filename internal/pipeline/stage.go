package pipeline

// Stage is a pipeline state. Runs move strictly forward through the stages.
type Stage int32

const (
	StageInit Stage = iota
	StageTableReset
	StageIngested
	StageCorrelated
	StageClassified
	StagePersisted
	StageQueried
	StageShutDown
)

var stageNames = [...]string{
	StageInit:       "Init",
	StageTableReset: "TableReset",
	StageIngested:   "Ingested",
	StageCorrelated: "Correlated",
	StageClassified: "Classified",
	StagePersisted:  "Persisted",
	StageQueried:    "Queried",
	StageShutDown:   "ShutDown",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "Unknown"
	}
	return stageNames[s]
}
