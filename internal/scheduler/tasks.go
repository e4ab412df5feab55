package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskHoldSweep walks every lead with an open hold.
const TaskHoldSweep = "holds.sweep"

type HoldSweepPayload struct {
	Reason string `json:"reason,omitempty"`
}

func NewHoldSweepTask(payload HoldSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskHoldSweep, data), nil
}

func ParseHoldSweepPayload(task *asynq.Task) (HoldSweepPayload, error) {
	var payload HoldSweepPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return HoldSweepPayload{}, err
	}
	return payload, nil
}
