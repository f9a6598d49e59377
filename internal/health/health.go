// Package health отдаёт состояние сервиса для probes оркестратора.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

const defaultCheckTimeout = 2 * time.Second

// Status — состояние компонента.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Check — результат проверки одного компонента.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response — тело ответа /healthz.
type Response struct {
	Status        Status    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	Checks        []Check   `json:"checks,omitempty"`
	Version       string    `json:"version,omitempty"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}

// Checker проверяет доступность зависимости (например, PostgreSQL).
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Handler выполняет зарегистрированные проверки.
type Handler struct {
	mu        sync.RWMutex
	checkers  []Checker
	version   string
	startTime time.Time
	timeout   time.Duration
}

// NewHandler создаёт health handler.
func NewHandler(version string) *Handler {
	return &Handler{
		version:   version,
		startTime: time.Now(),
		timeout:   defaultCheckTimeout,
	}
}

// Register добавляет проверку.
func (h *Handler) Register(checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, checker)
}

// Evaluate параллельно выполняет все проверки с общим таймаутом.
func (h *Handler) Evaluate(ctx context.Context) Response {
	h.mu.RLock()
	checkers := append([]Checker(nil), h.checkers...)
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	checks := make([]Check, len(checkers))
	var wg sync.WaitGroup
	for i, checker := range checkers {
		wg.Add(1)
		go func(i int, checker Checker) {
			defer wg.Done()
			checks[i] = run(ctx, checker)
		}(i, checker)
	}
	wg.Wait()

	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })

	status := StatusHealthy
	for _, c := range checks {
		if c.Status == StatusUnhealthy {
			status = StatusUnhealthy
			break
		}
	}

	return Response{
		Status:        status,
		Timestamp:     time.Now().UTC(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}
}

func run(ctx context.Context, checker Checker) Check {
	start := time.Now()
	err := checker.Check(ctx)
	check := Check{
		Name:       checker.Name(),
		Status:     StatusHealthy,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

// ServeHTTP отдаёт JSON с результатами проверок; 503, если хотя бы одна не прошла.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := h.Evaluate(r.Context())

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// ReadinessHandler отвечает 200, когда все зависимости доступны.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if h.Evaluate(r.Context()).Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// LivenessHandler всегда отвечает 200, пока процесс обслуживает HTTP.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// CheckFunc адаптирует функцию к Checker.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// NewCheckFunc создаёт именованную проверку из функции.
func NewCheckFunc(name string, fn func(ctx context.Context) error) CheckFunc {
	return CheckFunc{name: name, fn: fn}
}

func (c CheckFunc) Name() string {
	return c.name
}

func (c CheckFunc) Check(ctx context.Context) error {
	return c.fn(ctx)
}
