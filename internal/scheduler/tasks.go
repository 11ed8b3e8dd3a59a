package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskProjectCreate = "projects.create"

type ProjectCreatePayload struct {
	LeadID         string `json:"leadId"`
	QuoteID        string `json:"quoteId"`
	HomeownerID    string `json:"homeownerId"`
	ProfessionalID string `json:"professionalId"`
}

func NewProjectCreateTask(payload ProjectCreatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProjectCreate, data), nil
}

func ParseProjectCreatePayload(task *asynq.Task) (ProjectCreatePayload, error) {
	var payload ProjectCreatePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ProjectCreatePayload{}, err
	}
	return payload, nil
}
