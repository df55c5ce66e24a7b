package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"DividendRadar/pkg/apperror"
	"DividendRadar/pkg/collector"
	"DividendRadar/pkg/logging"
	"DividendRadar/pkg/model"
)

// IngestState 入库流程所处阶段
type IngestState string

const (
	StateCheckingDuplicate IngestState = "CheckingDuplicate"
	StateFetchingProfile   IngestState = "FetchingProfile"
	StateFetchingHistory   IngestState = "FetchingHistory"
	StatePersisting        IngestState = "Persisting"
	StateIndexing          IngestState = "Indexing"
	StateDone              IngestState = "Done"
)

// Ingestor 公司入库
type Ingestor struct {
	store   Directory
	scraper collector.DividendScraper
	index   NameIndex
	events  EventPublisher
	logger  zerolog.Logger
}

// NewIngestor events 可为 nil
func NewIngestor(store Directory, scraper collector.DividendScraper, index NameIndex, events EventPublisher, logger zerolog.Logger) *Ingestor {
	return &Ingestor{
		store:   store,
		scraper: scraper,
		index:   index,
		events:  eventsOrNop(events),
		logger:  logging.WithComponent(logger, "ingestor"),
	}
}

// Ingest 抓取公司资料和配息历史并入库，任一阶段失败立即返回，不做重试。
// 索引只在事务提交后写入。
func (s *Ingestor) Ingest(ctx context.Context, ticker string) (*model.Company, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil, apperror.New(apperror.KindValidation, "ticker不能为空")
	}

	logger := logging.WithTicker(logging.FromContext(ctx, s.logger), ticker)
	state := StateCheckingDuplicate

	enter := func(next IngestState) {
		state = next
		logger.Debug().Str("state", string(state)).Msg("入库状态变更")
	}
	fail := func(err error) (*model.Company, error) {
		logger.Error().Err(err).Str("state", string(state)).Msg("公司入库失败")
		return nil, err
	}

	enter(StateCheckingDuplicate)
	exists, err := s.store.ExistsByTicker(ctx, ticker)
	if err != nil {
		return fail(err)
	}
	if exists {
		return fail(apperror.Newf(apperror.KindAlreadyExists, "公司已存在: %s", ticker))
	}

	enter(StateFetchingProfile)
	company, err := s.scraper.FetchCompanyProfile(ctx, ticker)
	if err != nil {
		return fail(err)
	}
	if company == nil || strings.TrimSpace(company.Name) == "" {
		return fail(apperror.Newf(apperror.KindCompanyNotFound, "数据源未返回公司: %s", ticker))
	}

	enter(StateFetchingHistory)
	dividends, err := s.scraper.FetchDividendHistory(ctx, company)
	if err != nil {
		return fail(err)
	}

	enter(StatePersisting)
	if err := s.store.SaveCompanyWithDividends(ctx, company, dividends); err != nil {
		return fail(err)
	}

	enter(StateIndexing)
	s.index.Insert(company.Name)

	enter(StateDone)
	logger.Info().
		Uint64("company_id", company.ID).
		Str("name", company.Name).
		Int("dividends", len(dividends)).
		Msg("公司入库完成")

	s.events.CompanyIngested(ctx, company, len(dividends))
	return company, nil
}
