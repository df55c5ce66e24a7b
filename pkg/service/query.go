package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"DividendRadar/pkg/apperror"
	"DividendRadar/pkg/cache"
	"DividendRadar/pkg/logging"
	"DividendRadar/pkg/model"
)

const DefaultAutocompleteLimit = 10

// QueryConfig 查询服务参数
type QueryConfig struct {
	CacheTTL          time.Duration
	AutocompleteLimit int
}

// QueryService 按名称查询配息、自动补全、分页列表与删除。
//
// 缓存只在 Delete 中失效。以后新增任何修改公司或配息的操作（例如更新公司名），
// 都必须同时驱逐对应的缓存键，否则读取会在 TTL 内返回旧数据。
type QueryService struct {
	store  Directory
	index  NameIndex
	cache  Cache
	events EventPublisher
	cfg    QueryConfig
	group  singleflight.Group
	logger zerolog.Logger
}

func NewQueryService(store Directory, index NameIndex, c Cache, events EventPublisher, cfg QueryConfig, logger zerolog.Logger) *QueryService {
	if cfg.AutocompleteLimit <= 0 {
		cfg.AutocompleteLimit = DefaultAutocompleteLimit
	}
	return &QueryService{
		store:  store,
		index:  index,
		cache:  c,
		events: eventsOrNop(events),
		cfg:    cfg,
		logger: logging.WithComponent(logger, "query"),
	}
}

// GetByName 读穿透缓存。缓存不可用时直接查库，不影响读取结果
func (s *QueryService) GetByName(ctx context.Context, name string) (*model.ScrapedResult, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperror.New(apperror.KindValidation, "公司名不能为空")
	}
	logger := logging.FromContext(ctx, s.logger).With().Str("name", name).Logger()

	if result, ok := s.fromCache(ctx, name, logger); ok {
		return result, nil
	}

	v, err, shared := s.group.Do(name, func() (interface{}, error) {
		return s.load(ctx, name, logger)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug().Msg("合并并发的缓存未命中")
	}
	return v.(*model.ScrapedResult), nil
}

func (s *QueryService) fromCache(ctx context.Context, name string, logger zerolog.Logger) (*model.ScrapedResult, bool) {
	data, err := s.cache.Get(ctx, name)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			logger.Warn().Err(err).Msg("读取缓存失败，回退到数据库")
		}
		return nil, false
	}

	var result model.ScrapedResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warn().Err(err).Msg("缓存内容无法解析，按未命中处理")
		return nil, false
	}
	return &result, true
}

// load 从库中组装结果并回填缓存
func (s *QueryService) load(ctx context.Context, name string, logger zerolog.Logger) (*model.ScrapedResult, error) {
	company, err := s.store.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}

	dividends, err := s.store.FindDividends(ctx, company.ID)
	if err != nil {
		return nil, err
	}

	result := &model.ScrapedResult{
		Company:   *company,
		Dividends: dividends,
	}

	data, err := json.Marshal(result)
	if err != nil {
		logger.Warn().Err(err).Msg("序列化缓存内容失败")
		return result, nil
	}
	if err := s.cache.Put(ctx, name, data, s.cfg.CacheTTL); err != nil {
		logger.Warn().Err(err).Msg("写入缓存失败")
	}

	return result, nil
}

// Autocomplete 从内存索引取前缀匹配的公司名
func (s *QueryService) Autocomplete(prefix string) []string {
	return s.index.PrefixSearch(prefix, s.cfg.AutocompleteLimit)
}

// SearchNames 数据库中忽略大小写的前缀查询
func (s *QueryService) SearchNames(ctx context.Context, keyword string) ([]string, error) {
	return s.store.FindNamesStartingWith(ctx, keyword, s.cfg.AutocompleteLimit)
}

func (s *QueryService) ListPage(ctx context.Context, pageable model.Pageable) (*model.Page[model.Company], error) {
	return s.store.FindPage(ctx, pageable)
}

// Delete 删除公司并返回公司名。
// 只有数据库删除成功后才移除索引和缓存；缓存驱逐失败只记日志，残留条目最多存活一个 TTL。
// 同名公司仍存在时名称留在索引中，缓存照常驱逐，下次读取按剩余公司重新计算。
func (s *QueryService) Delete(ctx context.Context, ticker string) (string, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return "", apperror.New(apperror.KindValidation, "ticker不能为空")
	}
	logger := logging.WithTicker(logging.FromContext(ctx, s.logger), ticker)

	company, err := s.store.FindByTicker(ctx, ticker)
	if err != nil {
		return "", err
	}

	if err := s.store.DeleteCompanyAndDividends(ctx, company.ID); err != nil {
		logger.Error().Err(err).Msg("删除公司失败")
		return "", err
	}

	// 公司名不唯一，仍有同名公司时保留索引项
	shared, err := s.store.ExistsByName(ctx, company.Name)
	if err != nil {
		logger.Warn().Err(err).Str("name", company.Name).Msg("检查同名公司失败，移除索引项等待对账")
	}
	if !shared {
		s.index.Remove(company.Name)
	}

	if err := s.cache.Evict(ctx, company.Name); err != nil {
		logger.Warn().Err(err).Str("name", company.Name).Msg("驱逐缓存失败")
	}

	logger.Info().Str("name", company.Name).Msg("公司已删除")
	s.events.CompanyDeleted(ctx, company)
	return company.Name, nil
}
