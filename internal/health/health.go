package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusDisabled     = "disabled"
)

// Status 健康状态
type Status struct {
	NATS     string `json:"nats"`
	Redis    string `json:"redis"`
	Database string `json:"database"`

	Stats map[string]any `json:"stats,omitempty"`
}

// Healthy NATS 与 Redis 必须可用；数据库只保存历史对局，未配置时不影响就绪
func (s *Status) Healthy() bool {
	return s.NATS == StatusConnected &&
		s.Redis == StatusConnected &&
		s.Database != StatusDisconnected
}

// NATSConn NATS 连接状态
type NATSConn interface {
	IsConnected() bool
}

// Pinger Redis / 数据库连通性
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc 把普通函数适配为 Pinger
type PingFunc func(ctx context.Context) error

// Ping 实现 Pinger
func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Checker 健康检查器
type Checker struct {
	nc    NATSConn
	redis Pinger
	db    Pinger // 可为 nil

	stats map[string]func() any
}

// NewChecker 创建健康检查器
func NewChecker(nc NATSConn, redis Pinger, db Pinger) *Checker {
	return &Checker{
		nc:    nc,
		redis: redis,
		db:    db,
		stats: make(map[string]func() any),
	}
}

// WithStats 注册一个运行指标来源，随健康状态一起输出
func (h *Checker) WithStats(name string, fn func() any) *Checker {
	h.stats[name] = fn
	return h
}

// Check 执行健康检查
func (h *Checker) Check(ctx context.Context) *Status {
	status := &Status{
		NATS:     StatusDisconnected,
		Redis:    StatusDisconnected,
		Database: StatusDisabled,
	}

	if h.nc != nil && h.nc.IsConnected() {
		status.NATS = StatusConnected
	}

	status.Redis = ping(ctx, h.redis)
	if h.db != nil {
		status.Database = ping(ctx, h.db)
	}

	if len(h.stats) > 0 {
		status.Stats = make(map[string]any, len(h.stats))
		for name, fn := range h.stats {
			status.Stats[name] = fn()
		}
	}

	return status
}

func ping(ctx context.Context, p Pinger) string {
	if p == nil {
		return StatusDisconnected
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		return StatusDisconnected
	}
	return StatusConnected
}

// IsHealthy 检查是否健康
func (h *Checker) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx).Healthy()
}

// ServeHTTP HTTP 健康检查端点
func (h *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if status.Healthy() {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

// Ready 就绪探针
func (h *Checker) Ready(w http.ResponseWriter, r *http.Request) {
	if h.IsHealthy(r.Context()) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Not Ready"))
	}
}
