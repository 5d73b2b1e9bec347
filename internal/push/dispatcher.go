package push

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pushnotify/internal/subscription"
)

const (
	// DefaultTimeout は1回の配信試行のタイムアウトの既定値。
	DefaultTimeout = 10 * time.Second
	// DefaultConcurrency は SendToMany の同時配信数の既定値。
	DefaultConcurrency = 8
)

// Dispatcher は通知を購読へ配信する。再試行は行わない。
type Dispatcher struct {
	// transport はプッシュサービスへの送信を行う。
	transport Transport
	// logger は配信結果を記録する。
	logger *zap.Logger
	// metrics は配信結果を計測する。nilの場合は計測しない。
	metrics *Metrics
	// timeout は1回の配信試行のタイムアウト。
	timeout time.Duration
	// concurrency は SendToMany の同時配信数の上限。
	concurrency int
}

// Option は Dispatcher の設定を変更する関数。
type Option func(*Dispatcher)

// WithTimeout は1回の配信試行のタイムアウトを設定する。0以下はタイムアウトなし。
func WithTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) {
		dp.timeout = d
	}
}

// WithConcurrency は SendToMany の同時配信数の上限を設定する。
func WithConcurrency(n int) Option {
	return func(dp *Dispatcher) {
		if n > 0 {
			dp.concurrency = n
		}
	}
}

// WithMetrics は配信結果を記録するメトリクスを設定する。
func WithMetrics(m *Metrics) Option {
	return func(dp *Dispatcher) {
		dp.metrics = m
	}
}

// NewDispatcher は新しい Dispatcher を生成する。
func NewDispatcher(transport Transport, logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		transport:   transport,
		logger:      logger,
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendOne は1件の購読へ通知を1回だけ配信し、その結果を返す。
func (d *Dispatcher) SendOne(ctx context.Context, sub subscription.Subscription, n Notification) Result {
	payload, err := n.Payload()
	if err != nil {
		return d.record(Result{Endpoint: sub.Endpoint, Outcome: OutcomeRejected, Err: err}, 0)
	}
	return d.send(ctx, sub, payload)
}

// SendToMany は各購読へ独立に通知を配信する。
// 購読ごとにちょうど1回ずつ試行し、ある購読の失敗が他の配信を中断することはない。
// 結果は subs と同じ順序で返す。
func (d *Dispatcher) SendToMany(ctx context.Context, subs []subscription.Subscription, n Notification) []Result {
	results := make([]Result, len(subs))

	payload, err := n.Payload()
	if err != nil {
		for i, sub := range subs {
			results[i] = d.record(Result{Endpoint: sub.Endpoint, Outcome: OutcomeRejected, Err: err}, 0)
		}
		return results
	}

	// 各goroutineはエラーを返さないため、1件の失敗で他がキャンセルされることはない
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, sub := range subs {
		g.Go(func() error {
			results[i] = d.send(ctx, sub, payload)
			return nil
		})
	}
	_ = g.Wait()

	d.logger.Info("一斉配信が完了しました", zap.Any("summary", Summarize(results)))
	return results
}

func (d *Dispatcher) send(ctx context.Context, sub subscription.Subscription, payload []byte) Result {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	status, err := d.transport.Send(ctx, sub, payload)
	return d.record(Result{
		Endpoint:   sub.Endpoint,
		Outcome:    classify(status, err),
		StatusCode: status,
		Err:        err,
	}, time.Since(start))
}

// record は配信結果をログとメトリクスに記録する。
func (d *Dispatcher) record(r Result, elapsed time.Duration) Result {
	d.metrics.observe(r, elapsed)

	zctx := d.logger.With(
		zap.String("endpoint", r.Endpoint),
		zap.String("outcome", string(r.Outcome)),
		zap.String("status", statusText(r.StatusCode)),
		zap.Duration("elapsed", elapsed),
	)
	switch r.Outcome {
	case OutcomeDelivered:
		zctx.Debug("通知を配信しました")
	case OutcomeExpired:
		zctx.Info("購読が失効しています", zap.Error(r.Err))
	default:
		zctx.Warn("通知の配信に失敗しました", zap.Error(r.Err))
	}
	return r
}
