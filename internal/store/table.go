// Package store holds the in-memory Entity Store: one keyed table per entity kind
// with monotonic identifier allocation, plus repositories built on those tables.
package store

// Table is keyed storage for one entity kind. It is not safe for concurrent use;
// Memory serializes access to all of its tables.
type Table[T any] struct {
	nextID uint
	order  []uint
	rows   map[uint]T
	clone  func(T) T
}

func NewTable[T any](clone func(T) T) *Table[T] {
	if clone == nil {
		clone = func(value T) T { return value }
	}
	return &Table[T]{
		rows:  make(map[uint]T),
		clone: clone,
	}
}

// Allocate returns the next unused identifier. Identifiers are never handed out twice.
func (table *Table[T]) Allocate() uint {
	table.nextID++
	return table.nextID
}

func (table *Table[T]) Get(id uint) (T, bool) {
	row, ok := table.rows[id]
	if !ok {
		var zero T
		return zero, false
	}
	return table.clone(row), true
}

// Put inserts or replaces the row stored under id.
func (table *Table[T]) Put(id uint, row T) {
	if _, exists := table.rows[id]; !exists {
		table.order = append(table.order, id)
	}
	table.rows[id] = table.clone(row)
	if id > table.nextID {
		table.nextID = id
	}
}

// Scan returns copies of every row in insertion order.
func (table *Table[T]) Scan() []T {
	rows := make([]T, 0, len(table.order))
	for _, id := range table.order {
		rows = append(rows, table.clone(table.rows[id]))
	}
	return rows
}

func (table *Table[T]) Len() int {
	return len(table.rows)
}
