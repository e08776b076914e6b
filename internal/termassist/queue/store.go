package queue

import (
	"context"
	"sync"
)

// KeyType is the representation a store holds under a key.
type KeyType int

const (
	// KeyNone means nothing is stored under the key.
	KeyNone KeyType = iota
	// KeyList means the key holds an ordered list.
	KeyList
	// KeyOther means the key holds something that is not a list.
	KeyOther
)

func (t KeyType) String() string {
	switch t {
	case KeyNone:
		return "none"
	case KeyList:
		return "list"
	default:
		return "other"
	}
}

// ListStore is the keyed ordered-list protocol the entry queue runs on.
// Implementations must drop a key once its list becomes empty, so that a
// fully drained queue reads back as KeyNone.
type ListStore interface {
	// KeyType reports what is stored under key.
	KeyType(ctx context.Context, key string) (KeyType, error)
	// Delete removes key and whatever it holds. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// PushTail appends values to the end of the list at key, creating it if needed.
	PushTail(ctx context.Context, key string, values ...string) error
	// PopHead removes and returns the first value of the list at key.
	// ok is false when the list is empty or missing.
	PopHead(ctx context.Context, key string) (value string, ok bool, err error)
	// Len returns the length of the list at key (0 when missing).
	Len(ctx context.Context, key string) (int64, error)
}

// MemoryStore is an in-process ListStore. It is safe for concurrent use but
// its contents do not outlive the process.
type MemoryStore struct {
	mu     sync.Mutex
	lists  map[string][]string
	others map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lists:  make(map[string][]string),
		others: make(map[string]string),
	}
}

// SetRaw stores a non-list value under key, replacing any list there.
func (m *MemoryStore) SetRaw(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, key)
	m.others[key] = value
}

func (m *MemoryStore) KeyType(_ context.Context, key string) (KeyType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.others[key]; ok {
		return KeyOther, nil
	}
	if len(m.lists[key]) > 0 {
		return KeyList, nil
	}
	return KeyNone, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, key)
	delete(m.others, key)
	return nil
}

func (m *MemoryStore) PushTail(_ context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.others[key]; ok {
		return errWrongType
	}
	m.lists[key] = append(m.lists[key], values...)
	return nil
}

func (m *MemoryStore) PopHead(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.others[key]; ok {
		return "", false, errWrongType
	}
	list := m.lists[key]
	if len(list) == 0 {
		return "", false, nil
	}
	head := list[0]
	if len(list) == 1 {
		delete(m.lists, key)
	} else {
		m.lists[key] = list[1:]
	}
	return head, true, nil
}

func (m *MemoryStore) Len(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.others[key]; ok {
		return 0, errWrongType
	}
	return int64(len(m.lists[key])), nil
}

var _ ListStore = (*MemoryStore)(nil)
