package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskNotificationEmail = "notification.email"

type NotificationEmailPayload struct {
	Kind         string `json:"kind"`
	Email        string `json:"email"`
	FullName     string `json:"fullName"`
	TicketNumber string `json:"ticketNumber"`
}

func NewNotificationEmailTask(payload NotificationEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationEmail, data), nil
}

func ParseNotificationEmailPayload(task *asynq.Task) (NotificationEmailPayload, error) {
	var payload NotificationEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationEmailPayload{}, err
	}
	return payload, nil
}
