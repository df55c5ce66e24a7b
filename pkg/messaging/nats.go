// pkg/messaging/nats.go
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

const (
	CompanyStream = "COMPANY_STREAM"

	SubjectCompanyIngested = "company.ingested"
	SubjectCompanyDeleted  = "company.deleted"
)

// NATSClient NATS JetStream客户端
type NATSClient struct {
	conn      *nats.Conn
	jetStream jetstream.JetStream
	logger    zerolog.Logger
}

// MessageHandler 消息处理函数，返回错误时消息被 Nak
type MessageHandler func(data []byte) error

// NewNATSClient 连接NATS并确保公司事件流存在
func NewNATSClient(ctx context.Context, natsURL, clientName string, logger zerolog.Logger) (*NATSClient, error) {
	logger = logger.With().Str("component", "nats").Logger()

	nc, err := nats.Connect(natsURL,
		nats.Name(clientName),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // 无限重连
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS连接断开")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Msg("NATS重新连接成功")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("连接NATS失败: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("创建JetStream失败: %w", err)
	}

	client := &NATSClient{
		conn:      nc,
		jetStream: js,
		logger:    logger,
	}

	if err := client.setupStreams(ctx); err != nil {
		nc.Close()
		return nil, err
	}

	return client, nil
}

func (c *NATSClient) setupStreams(ctx context.Context) error {
	_, err := c.jetStream.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        CompanyStream,
		Subjects:    []string{"company.*"},
		Description: "公司生命周期事件",
		Retention:   jetstream.LimitsPolicy,
		MaxMsgs:     100000,
		MaxBytes:    64 * 1024 * 1024,
		MaxAge:      7 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("创建/更新Stream %s 失败: %w", CompanyStream, err)
	}
	c.logger.Info().Str("stream", CompanyStream).Msg("Stream 设置成功")
	return nil
}

// Publish 发布消息到指定主题，非 []byte 数据按 JSON 序列化
func (c *NATSClient) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, ok := data.([]byte)
	if !ok {
		var err error
		payload, err = json.Marshal(data)
		if err != nil {
			return fmt.Errorf("序列化数据失败: %w", err)
		}
	}

	if _, err := c.jetStream.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("发布消息到 %s 失败: %w", subject, err)
	}

	c.logger.Debug().Str("subject", subject).Int("bytes", len(payload)).Msg("消息已发布")
	return nil
}

// Subscribe 创建临时消费者，从最新消息开始消费，直到 ctx 结束
func (c *NATSClient) Subscribe(ctx context.Context, filterSubject string, handler MessageHandler) error {
	consumer, err := c.jetStream.CreateOrUpdateConsumer(ctx, CompanyStream, jetstream.ConsumerConfig{
		FilterSubject: filterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return fmt.Errorf("创建消费者失败: %w", err)
	}

	iter, err := consumer.Messages(jetstream.PullMaxMessages(10))
	if err != nil {
		return fmt.Errorf("获取消息迭代器失败: %w", err)
	}

	go func() {
		<-ctx.Done()
		iter.Stop()
	}()

	for {
		msg, err := iter.Next()
		if err != nil {
			if errors.Is(err, jetstream.ErrMsgIteratorClosed) {
				return ctx.Err()
			}
			c.logger.Warn().Err(err).Msg("获取消息失败")
			continue
		}

		if err := handler(msg.Data()); err != nil {
			c.logger.Error().Err(err).Str("subject", msg.Subject()).Msg("处理消息失败")
			msg.Nak()
		} else {
			msg.Ack()
		}
	}
}

// Ping 健康检查
func (c *NATSClient) Ping(ctx context.Context) error {
	if !c.IsConnected() {
		return errors.New("NATS未连接")
	}
	_, err := c.jetStream.Stream(ctx, CompanyStream)
	return err
}

// IsConnected 检查连接状态
func (c *NATSClient) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Close 关闭连接
func (c *NATSClient) Close() error {
	if c.conn != nil {
		if err := c.conn.Drain(); err != nil {
			c.conn.Close()
		}
	}
	c.logger.Info().Msg("NATS连接已关闭")
	return nil
}
