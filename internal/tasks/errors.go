package tasks

import "fmt"

// TaskNotFoundError is returned when a trigger or log request names a
// task that was never registered.
type TaskNotFoundError struct {
	Name string
}

func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task '%s' not found", e.Name)
}
