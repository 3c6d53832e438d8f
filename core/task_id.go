package core

import "github.com/google/uuid"

// TaskID uniquely identifies a spawned task.
type TaskID uuid.UUID

// GenerateTaskID returns a new random TaskID.
func GenerateTaskID() TaskID {
	return TaskID(uuid.New())
}

func (id TaskID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id was never assigned.
func (id TaskID) IsZero() bool {
	return id == TaskID{}
}

func (id TaskID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
