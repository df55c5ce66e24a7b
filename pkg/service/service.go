// Package service 编排公司入库、查询与删除，协调关系库、前缀索引和缓存
package service

import (
	"context"
	"time"

	"DividendRadar/pkg/model"
)

// Directory 公司目录存储，database.DB 实现
type Directory interface {
	ExistsByTicker(ctx context.Context, ticker string) (bool, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	SaveCompanyWithDividends(ctx context.Context, company *model.Company, dividends []model.Dividend) error
	FindByTicker(ctx context.Context, ticker string) (*model.Company, error)
	FindByName(ctx context.Context, name string) (*model.Company, error)
	FindDividends(ctx context.Context, companyID uint64) ([]model.Dividend, error)
	FindPage(ctx context.Context, pageable model.Pageable) (*model.Page[model.Company], error)
	FindNamesStartingWith(ctx context.Context, prefix string, limit int) ([]string, error)
	AllNames(ctx context.Context) ([]string, error)
	DeleteCompanyAndDividends(ctx context.Context, companyID uint64) error
}

// NameIndex 公司名前缀索引，index.PrefixIndex 实现
type NameIndex interface {
	Insert(name string)
	Remove(name string)
	PrefixSearch(prefix string, limit int) []string
	Generation() uint64
	ReplaceIfUnchanged(generation uint64, names []string) bool
}

// Cache 远程缓存，未命中返回 cache.ErrMiss
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Evict(ctx context.Context, key string) error
}

// EventPublisher 公司生命周期事件
type EventPublisher interface {
	CompanyIngested(ctx context.Context, company *model.Company, dividendCount int)
	CompanyDeleted(ctx context.Context, company *model.Company)
}

type nopEvents struct{}

func (nopEvents) CompanyIngested(context.Context, *model.Company, int) {}
func (nopEvents) CompanyDeleted(context.Context, *model.Company) {}

func eventsOrNop(events EventPublisher) EventPublisher {
	if events == nil {
		return nopEvents{}
	}
	return events
}
