package database

import (
	"context"
	"fmt"
	"sync"
	"todo-list/model"
)

// MemoryIDPrefix 内存模式 ID 前缀，保证不会与存储分配的 ID 冲突
const MemoryIDPrefix = "mem-"

// MemoryStore 进程内的有序集合，最新的记录在最前面
type MemoryStore struct {
	mu     sync.Mutex
	todos  []model.Todo
	nextID int64
}

// NewMemoryStore 创建空的内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		todos:  make([]model.Todo, 0),
		nextID: 1,
	}
}

func (s *MemoryStore) Kind() string { return KindMemory }

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// List 返回副本，插入顺序即为从新到旧
func (s *MemoryStore) List(ctx context.Context) ([]model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos := make([]model.Todo, len(s.todos))
	copy(todos, s.todos)
	return todos, nil
}

// Insert 分配下一个顺序 ID 并插入到最前面，计数器只增不减
func (s *MemoryStore) Insert(ctx context.Context, todo *model.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	todo.ID = fmt.Sprintf("%s%d", MemoryIDPrefix, s.nextID)
	s.nextID++

	s.todos = append([]model.Todo{*todo}, s.todos...)
	return nil
}

func (s *MemoryStore) SetCompleted(ctx context.Context, id string, completed bool) (*model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx == -1 {
		return nil, ErrNotFound
	}

	s.todos[idx].SetCompleted(completed)
	todo := s.todos[idx]
	return &todo, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx == -1 {
		return ErrNotFound
	}

	s.todos = append(s.todos[:idx], s.todos[idx+1:]...)
	return nil
}

// indexOf 调用方必须持有锁
func (s *MemoryStore) indexOf(id string) int {
	for i := range s.todos {
		if s.todos[i].ID == id {
			return i
		}
	}
	return -1
}
