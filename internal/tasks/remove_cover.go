package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// CoverRemover deletes a stored cover file by name.
type CoverRemover interface {
	Remove(name string) error
}

// RemoveCoverTask deletes the cover file left behind by a deleted book.
type RemoveCoverTask struct {
	CoverImage string `json:"cover_image"`
}

// Config returns the queue configuration for cover removal tasks.
func (t RemoveCoverTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "remove_cover",
		MaxAttempts: 3,
		Backoff:     1 * time.Minute,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RemoveCoverProcessor creates a processor function for RemoveCoverTask.
func RemoveCoverProcessor(store CoverRemover) backlite.QueueProcessor[RemoveCoverTask] {
	return func(ctx context.Context, task RemoveCoverTask) error {
		if store == nil {
			return fmt.Errorf("cover store not configured")
		}
		if task.CoverImage == "" {
			return nil
		}

		if err := store.Remove(task.CoverImage); err != nil {
			return fmt.Errorf("remove cover %q: %w", task.CoverImage, err)
		}

		log.Printf("[TASK] Removed cover file %q", task.CoverImage)
		return nil
	}
}

// NewRemoveCoverQueue creates a backlite queue for cover removal tasks.
func NewRemoveCoverQueue(store CoverRemover) backlite.Queue {
	return backlite.NewQueue(RemoveCoverProcessor(store))
}
