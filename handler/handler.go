package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"todo-list/database"
	"todo-list/model"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/rs/zerolog"
)

// TodoRepository 处理器依赖的仓库接口，由 database.Repository 实现
type TodoRepository interface {
	List(ctx context.Context) ([]model.Todo, error)
	Create(ctx context.Context, title string) (*model.Todo, error)
	Update(ctx context.Context, id string, completed bool) (*model.Todo, error)
	Delete(ctx context.Context, id string) error
	Status(ctx context.Context) database.StoreStatus
}

// CreateTodoRequest 创建待办事项请求体
type CreateTodoRequest struct {
	Title string `json:"title" validate:"required,notblank" example:"Buy milk"`
}

// UpdateTodoRequest 更新待办事项请求体，只允许修改 completed
type UpdateTodoRequest struct {
	Completed *bool `json:"completed" validate:"required" example:"true"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error" example:"Todo not found"`
}

// MessageResponse 删除成功的确认信息
type MessageResponse struct {
	Message string `json:"message" example:"Todo deleted successfully"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status      string               `json:"status"`
	Timestamp   time.Time            `json:"timestamp"`
	Environment string               `json:"environment"`
	Mode        database.Mode        `json:"mode"`
	Database    database.StoreStatus `json:"database"`
	URLs        HealthURLs           `json:"urls"`
}

// HealthURLs 前后端地址
type HealthURLs struct {
	Frontend string `json:"frontend,omitempty"`
	Backend  string `json:"backend"`
}

// Info 健康检查中展示的运行环境信息
type Info struct {
	Environment string
	FrontendURL string
	BackendURL  string
}

// Handler 处理器结构体
type Handler struct {
	repo     TodoRepository
	info     Info
	log      zerolog.Logger
	validate *validator.Validate
}

// 超时配置
const (
	ListTimeout   = 5 * time.Second
	CreateTimeout = 3 * time.Second
	UpdateTimeout = 3 * time.Second
	DeleteTimeout = 2 * time.Second
	HealthTimeout = 2 * time.Second
)

// maxBodyBytes 请求体上限 1MB
const maxBodyBytes = 1 << 20

// NewHandler 创建新的处理器
func NewHandler(repo TodoRepository, info Info, logger zerolog.Logger) *Handler {
	v := validator.New()
	// notblank 是非标准校验器，需要手动注册
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}

	return &Handler{
		repo:     repo,
		info:     info,
		log:      logger,
		validate: v,
	}
}

// sendJSON 发送JSON响应
func (h *Handler) sendJSON(w http.ResponseWriter, status int, body any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		// JSON编码失败，直接返回纯文本错误，不要再尝试调用sendError（会递归）
		h.log.Error().Err(err).Msg("failed to encode response")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error: Failed to encode response"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// sendError 发送错误响应
func (h *Handler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{Error: message})
}

// handleRepoError 把仓库错误映射为 HTTP 状态码
// 客户端取消请求时不写响应
func (h *Handler) handleRepoError(w http.ResponseWriter, op string, err error, fallbackMessage string) {
	switch {
	case errors.Is(err, context.Canceled):
		h.log.Debug().Err(err).Str("op", op).Msg("request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		h.log.Warn().Err(err).Str("op", op).Msg("request timeout")
		h.sendError(w, http.StatusRequestTimeout, "Request timed out, please retry")
	case errors.Is(err, database.ErrValidation):
		h.sendError(w, http.StatusBadRequest, "Title is required")
	case errors.Is(err, database.ErrNotFound):
		h.sendError(w, http.StatusNotFound, "Todo not found")
	default:
		h.log.Error().Err(err).Str("op", op).Msg("store operation failed")
		h.sendError(w, http.StatusInternalServerError, fallbackMessage)
	}
}

// decode 解析并校验请求体，失败时已写出 400 响应
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	// 空请求体按缺少字段处理
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON format")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		h.sendError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// validationMessage 生成 "Title is required" 形式的错误信息
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Sprintf("%s is required", verrs[0].Field())
	}
	return "Invalid request"
}

// HealthCheck 健康检查
// @Summary 健康检查
// @Description 返回服务状态、运行环境和持久化模式
// @Tags health
// @Produce json
// @Success 200 {object} handler.HealthResponse
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), HealthTimeout)
	defer cancel()

	status := h.repo.Status(ctx)

	h.sendJSON(w, http.StatusOK, HealthResponse{
		Status:      "Server is running!",
		Timestamp:   time.Now().UTC(),
		Environment: h.info.Environment,
		Mode:        status.Mode,
		Database:    status,
		URLs: HealthURLs{
			Frontend: h.info.FrontendURL,
			Backend:  h.info.BackendURL,
		},
	})
}

// ListTodos 获取待办事项列表(带超时控制)
// @Summary 获取待办事项列表
// @Description 按创建时间倒序返回全部待办事项
// @Tags todos
// @Produce json
// @Success 200 {array} model.Todo
// @Failure 500 {object} handler.ErrorResponse
// @Router /todos [get]
func (h *Handler) ListTodos(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ListTimeout)
	defer cancel()

	todos, err := h.repo.List(ctx)
	if err != nil {
		h.handleRepoError(w, "list", err, "Failed to fetch todos")
		return
	}

	h.sendJSON(w, http.StatusOK, todos)
}

// CreateTodo 创建待办事项(带超时控制)
// @Summary 创建待办事项
// @Description 创建一个新的待办事项，completed 默认为 false
// @Tags todos
// @Accept json
// @Produce json
// @Param todo body handler.CreateTodoRequest true "待办事项内容"
// @Success 201 {object} model.Todo
// @Failure 400 {object} handler.ErrorResponse
// @Failure 500 {object} handler.ErrorResponse
// @Router /todos [post]
func (h *Handler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), CreateTimeout)
	defer cancel()

	defer r.Body.Close()

	var req CreateTodoRequest
	if !h.decode(w, r, &req) {
		return
	}

	todo, err := h.repo.Create(ctx, req.Title)
	if err != nil {
		h.handleRepoError(w, "create", err, "Failed to create todo")
		return
	}

	h.sendJSON(w, http.StatusCreated, todo)
}

// UpdateTodo 更新待办事项完成状态(带超时控制)
// @Summary 更新待办事项
// @Description 根据 ID 修改 completed 字段
// @Tags todos
// @Accept json
// @Produce json
// @Param id path string true "待办事项ID"
// @Param todo body handler.UpdateTodoRequest true "完成状态"
// @Success 200 {object} model.Todo
// @Failure 400 {object} handler.ErrorResponse
// @Failure 404 {object} handler.ErrorResponse
// @Failure 500 {object} handler.ErrorResponse
// @Router /todos/{id} [put]
func (h *Handler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), UpdateTimeout)
	defer cancel()

	defer r.Body.Close()

	id := r.PathValue("id")

	var req UpdateTodoRequest
	if !h.decode(w, r, &req) {
		return
	}

	todo, err := h.repo.Update(ctx, id, *req.Completed)
	if err != nil {
		h.handleRepoError(w, "update", err, "Failed to update todo")
		return
	}

	h.sendJSON(w, http.StatusOK, todo)
}

// DeleteTodo 删除待办事项(带超时控制)
// @Summary 删除待办事项
// @Description 根据 ID 删除待办事项
// @Tags todos
// @Produce json
// @Param id path string true "待办事项ID"
// @Success 200 {object} handler.MessageResponse
// @Failure 404 {object} handler.ErrorResponse
// @Failure 500 {object} handler.ErrorResponse
// @Router /todos/{id} [delete]
func (h *Handler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), DeleteTimeout)
	defer cancel()

	defer r.Body.Close()

	if err := h.repo.Delete(ctx, r.PathValue("id")); err != nil {
		h.handleRepoError(w, "delete", err, "Failed to delete todo")
		return
	}

	h.sendJSON(w, http.StatusOK, MessageResponse{Message: "Todo deleted successfully"})
}
