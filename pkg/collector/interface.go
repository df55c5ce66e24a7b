package collector

import (
	"context"

	"DividendRadar/pkg/model"
)

// DividendScraper 外部数据源接口
type DividendScraper interface {
	// FetchCompanyProfile 根据 ticker 抓取公司名称
	FetchCompanyProfile(ctx context.Context, ticker string) (*model.Company, error)
	// FetchDividendHistory 抓取公司全部配息记录，按日期升序
	FetchDividendHistory(ctx context.Context, company *model.Company) ([]model.Dividend, error)
}
