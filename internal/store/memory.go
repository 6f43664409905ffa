package store

import (
	"sync"

	"github.com/terraincognita07/actiontracker/internal/models"
)

// Memory is a process-local Entity Store. Construct one per process (or per test)
// and hand its repositories to the services.
type Memory struct {
	mu        sync.Mutex
	users     *Table[models.User]
	templates *Table[models.ActionTrackerTemplate]
	trackers  *Table[models.DailyActionTracker]
}

func NewMemory() *Memory {
	return &Memory{
		users:     NewTable(models.User.Clone),
		templates: NewTable(models.ActionTrackerTemplate.Clone),
		trackers:  NewTable(models.DailyActionTracker.Clone),
	}
}

func (memory *Memory) Users() *MemoryUserRepository {
	return &MemoryUserRepository{memory: memory}
}

func (memory *Memory) Templates() *MemoryTemplateRepository {
	return &MemoryTemplateRepository{memory: memory}
}

func (memory *Memory) Trackers() *MemoryTrackerRepository {
	return &MemoryTrackerRepository{memory: memory}
}

// updateRow runs mutate against a private copy of the row and stores it only on success.
func updateRow[T any](memory *Memory, table *Table[T], id uint, mutate func(*T) error) (T, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()

	row, ok := table.Get(id)
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	if err := mutate(&row); err != nil {
		var zero T
		return zero, err
	}
	table.Put(id, row)
	return table.clone(row), nil
}

func findRow[T any](memory *Memory, table *Table[T], match func(T) bool) (T, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()

	for _, row := range table.Scan() {
		if match(row) {
			return row, nil
		}
	}
	var zero T
	return zero, ErrNotFound
}

func filterRows[T any](memory *Memory, table *Table[T], match func(T) bool) []T {
	memory.mu.Lock()
	defer memory.mu.Unlock()

	rows := make([]T, 0)
	for _, row := range table.Scan() {
		if match(row) {
			rows = append(rows, row)
		}
	}
	return rows
}
