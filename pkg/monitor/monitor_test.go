package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCheckAll(t *testing.T) {
	var mu sync.Mutex
	var alerts []string
	m := NewMonitor(time.Second, func(component, status, message string) {
		mu.Lock()
		alerts = append(alerts, component+":"+status)
		mu.Unlock()
	})

	redisErr := errors.New("connection refused")
	m.RegisterComponent("postgres", func(context.Context) error { return nil })
	m.RegisterComponent("redis", func(context.Context) error { return redisErr })

	if m.Ready() {
		t.Fatal("未探测前不应就绪")
	}

	m.CheckAll(context.Background())

	if got := m.GetStatus("postgres"); got.Status != StatusHealthy {
		t.Fatalf("postgres = %+v", got)
	}
	if got := m.GetStatus("redis"); got.Status != StatusUnhealthy || got.Message != "connection refused" {
		t.Fatalf("redis = %+v", got)
	}
	if m.Ready() {
		t.Fatal("redis 不健康时不应就绪")
	}

	// 状态未变化时不重复告警
	m.CheckAll(context.Background())
	mu.Lock()
	if len(alerts) != 1 || alerts[0] != "redis:unhealthy" {
		t.Fatalf("alerts = %v", alerts)
	}
	mu.Unlock()

	redisErr = nil
	m.CheckAll(context.Background())
	if !m.Ready() {
		t.Fatalf("statuses = %+v", m.GetAllStatus())
	}

	all := m.GetAllStatus()
	if len(all) != 2 || all[0].Component != "postgres" || all[1].Component != "redis" {
		t.Fatalf("all = %+v", all)
	}
}

func TestCheckTimeout(t *testing.T) {
	m := NewMonitor(20*time.Millisecond, nil)
	m.RegisterComponent("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	m.CheckAll(context.Background())
	if got := m.GetStatus("slow"); got.Status != StatusUnhealthy {
		t.Fatalf("slow = %+v", got)
	}
	if m.GetStatus("missing") != nil {
		t.Fatal("未注册组件应返回 nil")
	}
}
