package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"DividendRadar/pkg/apperror"
	"DividendRadar/pkg/config"
	"DividendRadar/pkg/model"
)

// 响应体上限，防止异常页面占满内存
const maxBodyBytes = 8 << 20

// YahooScraper Yahoo Finance 数据源适配器
//
// 不做重试：网络错误和解析错误直接返回给调用方。
type YahooScraper struct {
	profileURL string
	historyURL string
	userAgent  string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewYahooScraper 创建 Yahoo 数据源适配器
func NewYahooScraper(cfg config.ProviderConfig, logger zerolog.Logger) *YahooScraper {
	return &YahooScraper{
		profileURL: cfg.ProfileURL,
		historyURL: cfg.HistoryURL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With().Str("component", "scraper").Logger(),
	}
}

// FetchCompanyProfile 抓取公司主页，标题格式为 "TICKER - Company Name"
func (y *YahooScraper) FetchCompanyProfile(ctx context.Context, ticker string) (*model.Company, error) {
	pageURL := fmt.Sprintf(y.profileURL, url.PathEscape(ticker))

	body, status, err := y.get(ctx, pageURL)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindFetchFailure, err, "抓取公司主页失败: "+ticker)
	}
	if status == http.StatusNotFound {
		return nil, apperror.Newf(apperror.KindProfileNotFound, "公司主页不存在: %s", ticker)
	}
	if status != http.StatusOK {
		return nil, apperror.Newf(apperror.KindFetchFailure, "公司主页返回非200状态码: %d", status)
	}

	name, err := parseProfileTitle(body)
	if err != nil {
		y.logger.Warn().Err(err).Str("ticker", ticker).Msg("解析公司主页失败")
		return nil, err
	}

	return &model.Company{Ticker: ticker, Name: name}, nil
}

// FetchDividendHistory 抓取配息历史 JSON
func (y *YahooScraper) FetchDividendHistory(ctx context.Context, company *model.Company) ([]model.Dividend, error) {
	historyURL := fmt.Sprintf(y.historyURL, url.PathEscape(company.Ticker))

	start := time.Now()
	body, status, err := y.get(ctx, historyURL)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindFetchFailure, err, "抓取配息历史失败: "+company.Ticker)
	}
	if status != http.StatusOK {
		return nil, apperror.Newf(apperror.KindFetchFailure, "配息历史返回非200状态码: %d", status)
	}

	dividends, err := parseDividendHistory(body)
	if err != nil {
		return nil, err
	}

	y.logger.Info().
		Str("ticker", company.Ticker).
		Int("count", len(dividends)).
		Dur("duration", time.Since(start)).
		Msg("配息历史抓取完成")

	return dividends, nil
}

// get 发送 GET 请求并读取响应体
func (y *YahooScraper) get(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	if y.userAgent != "" {
		req.Header.Set("User-Agent", y.userAgent)
	}

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("执行HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("读取响应体失败: %w", err)
	}

	return body, resp.StatusCode, nil
}
