package config

type WorkerKeyStruct struct {
	PersistScoresQueue     string
	PersistProctoringQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistScoresQueue:     "persist_scores_queue",
	PersistProctoringQueue: "persist_proctoring_queue",
}
