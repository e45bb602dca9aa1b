package model

import (
	"time"
)

// Todo 表示一个待办事项
//
// ID 由存储层分配：MongoDB 为 ObjectID，SQLite 为 UUID，内存模式为 "mem-N"。
// 调用方只把它当作不透明字符串使用。
type Todo struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTodo 创建一个新的待办事项
func NewTodo(title string) *Todo {
	return &Todo{
		Title:     title,
		Completed: false,
		CreatedAt: time.Now().UTC(),
	}
}

// SetCompleted 设置完成状态，completed 是唯一可变字段
func (t *Todo) SetCompleted(completed bool) {
	t.Completed = completed
}
