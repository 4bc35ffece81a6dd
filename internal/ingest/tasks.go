package ingest

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskResultsIngest = "results.ingest"

type ResultsIngestPayload struct {
	TestOrderID  string `json:"testOrderId"`
	TestType     string `json:"testType"`
	SourceSystem string `json:"sourceSystem"`
}

func NewResultsIngestTask(payload ResultsIngestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskResultsIngest, data), nil
}

func ParseResultsIngestPayload(task *asynq.Task) (ResultsIngestPayload, error) {
	var payload ResultsIngestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ResultsIngestPayload{}, err
	}
	return payload, nil
}
