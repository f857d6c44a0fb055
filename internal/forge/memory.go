package forge

import (
	"context"
	"sort"
	"sync"
)

// MemoryCommenter is an in-process Commenter for tests and dry runs.
type MemoryCommenter struct {
	mu       sync.Mutex
	nextID   int64
	comments map[int64]memComment

	// FailWith makes every call return this error when set.
	FailWith error
}

type memComment struct {
	pr   int
	body string
}

// NewMemoryCommenter returns an empty commenter.
func NewMemoryCommenter() *MemoryCommenter {
	return &MemoryCommenter{comments: make(map[int64]memComment)}
}

func (m *MemoryCommenter) ListComments(_ context.Context, _ string, pr int) ([]Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	var out []Comment
	for id, c := range m.comments {
		if c.pr == pr {
			out = append(out, Comment{ID: id, Body: c.body})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryCommenter) CreateComment(_ context.Context, _ string, pr int, body string) (*Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.nextID++
	m.comments[m.nextID] = memComment{pr: pr, body: body}
	return &Comment{ID: m.nextID, Body: body}, nil
}

func (m *MemoryCommenter) UpdateComment(_ context.Context, _ string, id int64, body string) (*Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	c, ok := m.comments[id]
	if !ok {
		return nil, ErrInvalidPayload.WithContext("comment_id", id)
	}
	c.body = body
	m.comments[id] = c
	return &Comment{ID: id, Body: body}, nil
}

func (m *MemoryCommenter) DeleteComment(_ context.Context, _ string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	delete(m.comments, id)
	return nil
}

// Bodies returns the bodies of all comments on pr in creation order.
func (m *MemoryCommenter) Bodies(pr int) []string {
	list, _ := m.ListComments(context.Background(), "", pr)
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Body)
	}
	return out
}
