package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/Seanzed08/SmartLab/config"
	"github.com/Seanzed08/SmartLab/internal/metrics"
	"github.com/Seanzed08/SmartLab/internal/model"
	"github.com/Seanzed08/SmartLab/internal/repository"
	"github.com/Seanzed08/SmartLab/pkg/redis"
)

// ════════════════════════════════════════════════════════════
// 通知投递
//
// 通知均为尽力而为：在状态迁移提交之后发出，失败只记录日志，
// 不回滚、不重试、不影响调用方结果。
// ════════════════════════════════════════════════════════════

// ErrNoRecipient 通知缺少收件人
var ErrNoRecipient = errors.New("通知缺少收件人")

// Message 一条通知
type Message struct {
	RecipientID string
	Type        string
	Title       string
	Content     string
	RelatedType string
	RelatedID   string
}

// Notifier 通知投递接口
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Publisher 实时推送接口（*redis.Client 实现）
type Publisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}

// ── 站内通知 ──

type dbNotifier struct {
	repo *repository.Repository
}

// NewDBNotifier 写入 notifications 表
func NewDBNotifier(repo *repository.Repository) Notifier {
	return &dbNotifier{repo: repo}
}

func (n *dbNotifier) Notify(ctx context.Context, msg Message) error {
	if msg.RecipientID == "" {
		return ErrNoRecipient
	}
	row := &model.Notification{
		UserID:  msg.RecipientID,
		Type:    msg.Type,
		Title:   msg.Title,
		Content: msg.Content,
	}
	if msg.RelatedType != "" {
		rt, rid := msg.RelatedType, msg.RelatedID
		row.RelatedType = &rt
		row.RelatedID = &rid
	}
	return n.repo.Notification.Create(ctx, row)
}

// ── 邮件 ──

type mailNotifier struct {
	cfg  config.MailConfig
	repo *repository.Repository
	send func(ctx context.Context, m *mail.Msg) error
}

// NewMailNotifier 通过 SMTP 发送邮件，收件地址取自用户表
func NewMailNotifier(cfg config.MailConfig, repo *repository.Repository) Notifier {
	n := &mailNotifier{cfg: cfg, repo: repo}
	n.send = n.dialAndSend
	return n
}

func (n *mailNotifier) Notify(ctx context.Context, msg Message) error {
	user, err := n.repo.User.GetByID(ctx, msg.RecipientID)
	if err != nil {
		return fmt.Errorf("查询收件人失败: %w", err)
	}
	if user.Email == "" {
		return nil
	}

	m := mail.NewMsg()
	if err := m.From(n.cfg.From); err != nil {
		return fmt.Errorf("发件地址无效: %w", err)
	}
	if err := m.To(user.Email); err != nil {
		return fmt.Errorf("收件地址无效: %w", err)
	}
	m.Subject(msg.Title)
	m.SetBodyString(mail.TypeTextPlain, msg.Content)
	return n.send(ctx, m)
}

// dialAndSend 连接与整个 SMTP 会话都受 ctx 截止时间约束
func (n *mailNotifier) dialAndSend(ctx context.Context, m *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(n.cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithDialContextFunc(deadlineDialer),
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}
	client, err := mail.NewClient(n.cfg.SMTPHost, opts...)
	if err != nil {
		return fmt.Errorf("创建邮件客户端失败: %w", err)
	}
	return client.DialAndSendWithContext(ctx, m)
}

// deadlineDialer 把 ctx 的截止时间设到连接上，服务器无响应时读写同样超时
func deadlineDialer(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// ── 实时推送 ──

type publishNotifier struct {
	pub Publisher
}

// NewPublishNotifier 推送到 user:<id>:notifications 频道
func NewPublishNotifier(pub Publisher) Notifier {
	return &publishNotifier{pub: pub}
}

func (n *publishNotifier) Notify(ctx context.Context, msg Message) error {
	return n.pub.Publish(ctx, redis.NotificationChannel(msg.RecipientID), map[string]string{
		"type":         msg.Type,
		"title":        msg.Title,
		"content":      msg.Content,
		"related_type": msg.RelatedType,
		"related_id":   msg.RelatedID,
	})
}

// ── 组合 ──

// NamedNotifier 带通道名的通知器，用于日志与指标
type NamedNotifier struct {
	Name     string
	Notifier Notifier
}

type fanoutNotifier struct {
	sinks   []NamedNotifier
	timeout time.Duration
	logger  *zap.Logger
}

// NewFanoutNotifier 依次投递到所有通道，单个通道失败不影响其余通道
// 投递在后台 goroutine 中进行，Notify 立即返回
func NewFanoutNotifier(logger *zap.Logger, timeout time.Duration, sinks ...NamedNotifier) Notifier {
	return &fanoutNotifier{sinks: sinks, timeout: timeout, logger: logger}
}

func (n *fanoutNotifier) Notify(ctx context.Context, msg Message) error {
	if msg.RecipientID == "" {
		return nil
	}
	go func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		n.deliver(dctx, msg)
	}()
	return nil
}

func (n *fanoutNotifier) deliver(ctx context.Context, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("通知投递 panic", zap.Any("panic", r))
		}
	}()
	for _, sink := range n.sinks {
		if err := sink.Notifier.Notify(ctx, msg); err != nil {
			metrics.NotificationFailures.WithLabelValues(sink.Name).Inc()
			n.logger.Warn("通知投递失败",
				zap.String("sink", sink.Name),
				zap.String("recipient", msg.RecipientID),
				zap.String("type", msg.Type),
				zap.Error(err),
			)
		}
	}
}

// BuildNotifier 按配置组装通知通道：站内通知必选，邮件与实时推送按需启用
func BuildNotifier(cfg *config.Config, repo *repository.Repository, pub Publisher, logger *zap.Logger) Notifier {
	sinks := []NamedNotifier{{Name: "db", Notifier: NewDBNotifier(repo)}}
	if cfg.Mail.Enabled() {
		sinks = append(sinks, NamedNotifier{Name: "mail", Notifier: NewMailNotifier(cfg.Mail, repo)})
	}
	if pub != nil {
		sinks = append(sinks, NamedNotifier{Name: "redis", Notifier: NewPublishNotifier(pub)})
	}
	return NewFanoutNotifier(logger, 30*time.Second, sinks...)
}

// notifySafe 调用方统一入口：同步通知器返回的错误也只记录
func notifySafe(ctx context.Context, n Notifier, logger *zap.Logger, msg Message) {
	if n == nil || msg.RecipientID == "" {
		return
	}
	if err := n.Notify(ctx, msg); err != nil {
		logger.Warn("通知投递失败", zap.String("recipient", msg.RecipientID), zap.String("type", msg.Type), zap.Error(err))
	}
}
