package push

import (
	"errors"
	"net/http"
)

// Outcome は1回の配信試行の結果分類。
type Outcome string

const (
	// OutcomeDelivered はプッシュサービスがメッセージを受理したことを表す。
	OutcomeDelivered Outcome = "delivered"
	// OutcomeExpired は購読が失効している(404/410)ことを表す。
	OutcomeExpired Outcome = "expired"
	// OutcomeRejected はリクエストが恒久的に拒否されたことを表す。
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed は一時的な失敗(ネットワーク、タイムアウト、429、5xx)を表す。
	OutcomeFailed Outcome = "failed"
)

// Outcomes は全ての結果分類。
var Outcomes = []Outcome{OutcomeDelivered, OutcomeExpired, OutcomeRejected, OutcomeFailed}

// Result は1件の購読に対する配信試行の結果。
type Result struct {
	// Endpoint は配信先の購読endpoint。
	Endpoint string
	// Outcome は結果分類。
	Outcome Outcome
	// StatusCode はプッシュサービスの応答ステータス。応答がない場合は0。
	StatusCode int
	// Err は失敗の詳細。成功時はnil。
	Err error
}

// Summary は複数の配信結果の集計。
type Summary struct {
	Total     int `json:"total"`
	Delivered int `json:"delivered"`
	Expired   int `json:"expired"`
	Rejected  int `json:"rejected"`
	Failed    int `json:"failed"`
}

// Summarize は配信結果を分類ごとに集計する。
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Outcome {
		case OutcomeDelivered:
			s.Delivered++
		case OutcomeExpired:
			s.Expired++
		case OutcomeRejected:
			s.Rejected++
		case OutcomeFailed:
			s.Failed++
		}
	}
	return s
}

// classify はプッシュサービスの応答ステータスとエラーから結果を分類する。
func classify(status int, err error) Outcome {
	switch {
	case status == 0:
		if errors.Is(err, ErrEncoding) || errors.Is(err, ErrInvalidNotification) {
			return OutcomeRejected
		}
		return OutcomeFailed
	case status >= 200 && status < 300:
		return OutcomeDelivered
	case status == http.StatusNotFound || status == http.StatusGone:
		return OutcomeExpired
	case status == http.StatusTooManyRequests || status >= 500:
		return OutcomeFailed
	default:
		return OutcomeRejected
	}
}
