package monitor

import (
	"context"
	"sort"
	"sync"
	"time"
)

const (
	StatusUnknown   = "unknown"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus 健康状态
type HealthStatus struct {
	Component   string    `json:"component"`
	Status      string    `json:"status"`
	LastChecked time.Time `json:"last_checked"`
	Message     string    `json:"message,omitempty"`
}

// Checker 组件探测函数，例如数据库 Ping
type Checker func(ctx context.Context) error

// Monitor 组件健康登记表
type Monitor struct {
	components map[string]*HealthStatus
	checkers   map[string]Checker
	mutex      sync.RWMutex
	alertFunc  func(component, status, message string)
	timeout    time.Duration
}

// NewMonitor alertFunc 在组件状态变为不健康时调用，可为 nil
func NewMonitor(timeout time.Duration, alertFunc func(component, status, message string)) *Monitor {
	return &Monitor{
		components: make(map[string]*HealthStatus),
		checkers:   make(map[string]Checker),
		alertFunc:  alertFunc,
		timeout:    timeout,
	}
}

// RegisterComponent 注册组件及其探测函数
func (m *Monitor) RegisterComponent(component string, checker Checker) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.checkers[component] = checker
	m.components[component] = &HealthStatus{
		Component:   component,
		Status:      StatusUnknown,
		LastChecked: time.Now(),
	}
}

// UpdateStatus 更新组件状态
func (m *Monitor) UpdateStatus(component, status, message string) {
	m.mutex.Lock()

	if _, exists := m.components[component]; !exists {
		m.components[component] = &HealthStatus{
			Component: component,
		}
	}

	current := m.components[component]
	oldStatus := current.Status
	current.Status = status
	current.LastChecked = time.Now()
	current.Message = message

	m.mutex.Unlock()

	// 状态变为不健康时告警
	if oldStatus != status && status != StatusHealthy && m.alertFunc != nil {
		m.alertFunc(component, status, message)
	}
}

// GetStatus 获取组件状态副本
func (m *Monitor) GetStatus(component string) *HealthStatus {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if status, exists := m.components[component]; exists {
		copied := *status
		return &copied
	}

	return nil
}

// GetAllStatus 按组件名排序返回全部状态
func (m *Monitor) GetAllStatus() []HealthStatus {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	statuses := make([]HealthStatus, 0, len(m.components))
	for _, status := range m.components {
		statuses = append(statuses, *status)
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Component < statuses[j].Component
	})
	return statuses
}

// CheckAll 并发探测所有已注册组件
func (m *Monitor) CheckAll(ctx context.Context) {
	m.mutex.RLock()
	checkers := make(map[string]Checker, len(m.checkers))
	for name, checker := range m.checkers {
		checkers[name] = checker
	}
	m.mutex.RUnlock()

	var wg sync.WaitGroup
	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker Checker) {
			defer wg.Done()
			m.check(ctx, name, checker)
		}(name, checker)
	}
	wg.Wait()
}

func (m *Monitor) check(ctx context.Context, component string, checker Checker) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	if err := checker(ctx); err != nil {
		m.UpdateStatus(component, StatusUnhealthy, err.Error())
		return
	}
	m.UpdateStatus(component, StatusHealthy, "")
}

// Ready 全部组件健康时返回 true
func (m *Monitor) Ready() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, status := range m.components {
		if status.Status != StatusHealthy {
			return false
		}
	}
	return true
}
