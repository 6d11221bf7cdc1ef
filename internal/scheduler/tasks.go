// Package scheduler runs the background work: periodic enrollment ticks and
// lead score refreshes, dispatched through asynq on Redis.
package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskSequenceTick = "sequences.tick"

const TaskScoreRefresh = "crm.score.refresh"

type SequenceTickPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

type ScoreRefreshPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

func NewSequenceTickTask(payload SequenceTickPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSequenceTick, data), nil
}

func ParseSequenceTickPayload(task *asynq.Task) (SequenceTickPayload, error) {
	var payload SequenceTickPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SequenceTickPayload{}, err
	}
	return payload, nil
}

func NewScoreRefreshTask(payload ScoreRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskScoreRefresh, data), nil
}

func ParseScoreRefreshPayload(task *asynq.Task) (ScoreRefreshPayload, error) {
	var payload ScoreRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ScoreRefreshPayload{}, err
	}
	return payload, nil
}
