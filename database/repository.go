package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"todo-list/model"

	"github.com/rs/zerolog"
)

// Observer 接收模式变化和降级写入事件（metrics.Metrics 实现了它）
type Observer interface {
	SetMode(mode string)
	IncFallback()
}

// DefaultInsertTimeout 单次持久化写入的预算，需小于 handler.CreateTimeout，
// 这样写入挂起时仍有时间降级为内存写入
const DefaultInsertTimeout = 2 * time.Second

// Option 配置 Repository
type Option func(*Repository)

// WithLogger 设置日志
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Repository) {
		r.log = logger
	}
}

// WithInsertTimeout 设置单次持久化写入的超时
func WithInsertTimeout(d time.Duration) Option {
	return func(r *Repository) {
		r.insertTimeout = d
	}
}

// WithObserver 设置事件观察者
func WithObserver(o Observer) Option {
	return func(r *Repository) {
		r.observer = o
	}
}

// Repository 双模式待办事项仓库
//
// 启动时的连接尝试决定模式：durable 时所有操作都走持久化存储，
// volatile 时走进程内存储。模式确定后不再改变。
//
// Create 在持久化写入失败时会降级为一次内存写入，List/Update/Delete 则直接返回错误。
type Repository struct {
	ready    chan struct{}
	once     sync.Once
	mode     Mode
	durable  Store
	volatile *MemoryStore

	insertTimeout time.Duration

	log      zerolog.Logger
	observer Observer
}

// NewRepository 创建尚未确定模式的仓库，需要调用 Resolve 或 Select
func NewRepository(opts ...Option) *Repository {
	r := &Repository{
		ready:         make(chan struct{}),
		volatile:      NewMemoryStore(),
		insertTimeout: DefaultInsertTimeout,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewVolatileRepository 创建内存模式的仓库
func NewVolatileRepository(opts ...Option) *Repository {
	r := NewRepository(opts...)
	r.Resolve(Selection{Mode: ModeVolatile})
	return r
}

// NewDurableRepository 创建使用给定持久化存储的仓库
func NewDurableRepository(store Store, opts ...Option) *Repository {
	r := NewRepository(opts...)
	r.Resolve(Selection{Mode: ModeDurable, Durable: store})
	return r
}

// Select 执行启动连接并确定模式
func (r *Repository) Select(ctx context.Context, cfg StoreConfig) Mode {
	r.Resolve(Connect(ctx, cfg, r.log))
	return r.Mode()
}

// Resolve 确定模式，只有第一次调用生效
func (r *Repository) Resolve(sel Selection) {
	r.once.Do(func() {
		r.mode = ModeVolatile
		if sel.Mode == ModeDurable && sel.Durable != nil {
			r.mode = ModeDurable
			r.durable = sel.Durable
		}
		if r.observer != nil {
			r.observer.SetMode(string(r.mode))
		}
		close(r.ready)
	})
}

// Mode 返回当前模式，连接尝试未结束时返回 ModeConnecting
func (r *Repository) Mode() Mode {
	select {
	case <-r.ready:
		return r.mode
	default:
		return ModeConnecting
	}
}

// wait 等待模式确定
func (r *Repository) wait(ctx context.Context) error {
	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// 连接状态码，沿用 mongoose readyState 的取值
const (
	ReadyStateDisconnected = 0
	ReadyStateConnected    = 1
	ReadyStateConnecting   = 2
)

// StoreStatus 健康检查中的存储状态
type StoreStatus struct {
	Mode       Mode   `json:"mode"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	ReadyState int    `json:"readyState"`
}

// Status 返回后端类型和连接状态，不会阻塞等待模式确定
func (r *Repository) Status(ctx context.Context) StoreStatus {
	switch r.Mode() {
	case ModeConnecting:
		return StoreStatus{Mode: ModeConnecting, Type: "pending", Status: "connecting", ReadyState: ReadyStateConnecting}
	case ModeDurable:
		status, state := "connected", ReadyStateConnected
		if err := r.durable.Ping(ctx); err != nil {
			status, state = "disconnected", ReadyStateDisconnected
		}
		return StoreStatus{Mode: ModeDurable, Type: r.durable.Kind(), Status: status, ReadyState: state}
	default:
		return StoreStatus{Mode: ModeVolatile, Type: KindMemory, Status: KindMemory, ReadyState: ReadyStateDisconnected}
	}
}

// Close 关闭持久化存储
func (r *Repository) Close(ctx context.Context) error {
	if r.Mode() == ModeDurable {
		return r.durable.Close(ctx)
	}
	return nil
}

// List 按创建时间倒序返回全部待办事项
func (r *Repository) List(ctx context.Context) ([]model.Todo, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}

	if r.mode == ModeDurable {
		todos, err := r.durable.List(ctx)
		if err != nil {
			return nil, storeError(err)
		}
		return todos, nil
	}
	return r.volatile.List(ctx)
}

// Create 创建待办事项，title 为空时返回 ErrValidation
func (r *Repository) Create(ctx context.Context, title string) (*model.Todo, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if err := r.wait(ctx); err != nil {
		return nil, err
	}

	if r.mode == ModeDurable {
		todo := model.NewTodo(title)
		insertCtx, cancel := context.WithTimeout(ctx, r.insertTimeout)
		err := r.durable.Insert(insertCtx, todo)
		cancel()
		if err == nil {
			return todo, nil
		}
		// 客户端已断开时不做降级写入；请求超时仍然降级
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, storeError(err)
		}
		r.log.Warn().Err(err).Msg("durable insert failed, writing todo to in-memory storage")
		if r.observer != nil {
			r.observer.IncFallback()
		}
	}

	todo := model.NewTodo(title)
	if err := r.volatile.Insert(ctx, todo); err != nil {
		return nil, err
	}
	return todo, nil
}

// Update 修改完成状态，ID 不存在时返回 ErrNotFound
func (r *Repository) Update(ctx context.Context, id string, completed bool) (*model.Todo, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}

	if r.mode == ModeDurable {
		todo, err := r.durable.SetCompleted(ctx, id, completed)
		if err != nil {
			return nil, storeError(err)
		}
		return todo, nil
	}
	return r.volatile.SetCompleted(ctx, id, completed)
}

// Delete 删除待办事项，ID 不存在时返回 ErrNotFound
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.wait(ctx); err != nil {
		return err
	}

	if r.mode == ModeDurable {
		if err := r.durable.Delete(ctx, id); err != nil {
			return storeError(err)
		}
		return nil
	}
	return r.volatile.Delete(ctx, id)
}

// storeError 把持久化存储的错误归类为 ErrStoreUnavailable，ErrNotFound 原样返回
func storeError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
