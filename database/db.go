package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"todo-list/model"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore 以单张 todos 表作为文档集合的持久化存储
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore 打开数据库并初始化表结构
// dsn 可以是 "sqlite://path/to/todos.db"、"file:todos.db?..." 或普通文件路径
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", sqlitePath(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite 只允许单写者，避免连接池上的 "database is locked"
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &SQLiteStore{conn: conn}

	if err := db.initSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func sqlitePath(dsn string) string {
	return strings.TrimPrefix(dsn, "sqlite://")
}

// initSchema 初始化数据库表
func (db *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS todos (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_created_at ON todos(created_at DESC);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

func (db *SQLiteStore) Kind() string { return KindSQLite }

func (db *SQLiteStore) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close 关闭数据库连接
func (db *SQLiteStore) Close(ctx context.Context) error {
	return db.conn.Close()
}

// List 获取全部待办事项，按创建时间倒序
func (db *SQLiteStore) List(ctx context.Context) ([]model.Todo, error) {
	query := `
		SELECT id, title, completed, created_at
		FROM todos
		ORDER BY created_at DESC, rowid DESC
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	todos := make([]model.Todo, 0)
	for rows.Next() {
		var todo model.Todo
		if err := rows.Scan(&todo.ID, &todo.Title, &todo.Completed, &todo.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, todo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return todos, nil
}

// Insert 创建待办事项，ID 由存储层生成
func (db *SQLiteStore) Insert(ctx context.Context, todo *model.Todo) error {
	query := `
		INSERT INTO todos (id, title, completed, created_at)
		VALUES (?, ?, ?, ?)
	`

	id := uuid.NewString()
	if _, err := db.conn.ExecContext(ctx, query, id, todo.Title, todo.Completed, todo.CreatedAt); err != nil {
		return fmt.Errorf("failed to create todo: %w", err)
	}

	todo.ID = id
	return nil
}

// SetCompleted 更新完成状态
func (db *SQLiteStore) SetCompleted(ctx context.Context, id string, completed bool) (*model.Todo, error) {
	result, err := db.conn.ExecContext(ctx, `UPDATE todos SET completed = ? WHERE id = ?`, completed, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrNotFound
	}

	return db.get(ctx, id)
}

// get 根据ID获取待办事项
func (db *SQLiteStore) get(ctx context.Context, id string) (*model.Todo, error) {
	query := `SELECT id, title, completed, created_at FROM todos WHERE id = ?`

	var todo model.Todo
	err := db.conn.QueryRowContext(ctx, query, id).Scan(&todo.ID, &todo.Title, &todo.Completed, &todo.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}

	return &todo, nil
}

// Delete 删除待办事项
func (db *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
