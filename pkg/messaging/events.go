package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"DividendRadar/pkg/model"
)

// CompanyEvent 公司入库/删除事件
type CompanyEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Ticker        string    `json:"ticker"`
	Name          string    `json:"name"`
	DividendCount int       `json:"dividend_count,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher 消息发布能力，NATSClient 实现
type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

// CompanyEvents 发布公司事件，发布失败只记日志
type CompanyEvents struct {
	publisher Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

func NewCompanyEvents(publisher Publisher, logger zerolog.Logger) *CompanyEvents {
	return &CompanyEvents{
		publisher: publisher,
		logger:    logger.With().Str("component", "events").Logger(),
		now:       time.Now,
	}
}

func (e *CompanyEvents) CompanyIngested(ctx context.Context, company *model.Company, dividendCount int) {
	e.publish(ctx, SubjectCompanyIngested, CompanyEvent{
		Type:          SubjectCompanyIngested,
		Ticker:        company.Ticker,
		Name:          company.Name,
		DividendCount: dividendCount,
	})
}

func (e *CompanyEvents) CompanyDeleted(ctx context.Context, company *model.Company) {
	e.publish(ctx, SubjectCompanyDeleted, CompanyEvent{
		Type:   SubjectCompanyDeleted,
		Ticker: company.Ticker,
		Name:   company.Name,
	})
}

func (e *CompanyEvents) publish(ctx context.Context, subject string, event CompanyEvent) {
	event.ID = uuid.NewString()
	event.OccurredAt = e.now().UTC()

	if err := e.publisher.Publish(ctx, subject, event); err != nil {
		e.logger.Warn().Err(err).
			Str("subject", subject).
			Str("ticker", event.Ticker).
			Msg("发布公司事件失败")
	}
}
