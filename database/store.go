package database

import (
	"context"
	"errors"
	"todo-list/model"
)

var (
	// ErrValidation 请求字段缺失或为空
	ErrValidation = errors.New("validation failed")
	// ErrNotFound 当前模式的存储中不存在该 ID
	ErrNotFound = errors.New("todo not found")
	// ErrStoreUnavailable 持久化存储在请求时调用失败
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Store 是三种后端（MongoDB、SQLite、内存）共同实现的存储接口
type Store interface {
	// List 按 createdAt 倒序返回全部待办事项
	List(ctx context.Context) ([]model.Todo, error)
	// Insert 写入新记录并回填 ID
	Insert(ctx context.Context, todo *model.Todo) error
	// SetCompleted 只修改 completed 字段，返回修改后的记录
	SetCompleted(ctx context.Context, id string, completed bool) (*model.Todo, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	// Kind 返回后端类型，用于健康检查
	Kind() string
}

const (
	KindMongo  = "mongodb"
	KindSQLite = "sqlite"
	KindMemory = "in-memory"
)
