package report

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"centavo/internal/domain/transaction"
)

// Engine memoizes the pure derivations so callers can recompute on every
// state change without storms: results are cached per (ledger version,
// period) and recomputed only when either moves.
type Engine struct {
	mu sync.Mutex

	summaryKey   cacheKey
	summary      Summary
	rankingKey   cacheKey
	rankingTopN  int
	ranking      []CategoryTotal
	tunnelKey    cacheKey
	tunnelExtras tunnelParams
	tunnel       []TunnelBucket
}

type cacheKey struct {
	version uint64
	period  string
}

type tunnelParams struct {
	horizon      int
	riskFraction string
}

func NewEngine() *Engine {
	return &Engine{}
}

func periodKey(month time.Time) string {
	return month.Format("2006-01")
}

// Summary returns the memoized monthly summary for the given ledger
// version.
func (e *Engine) Summary(version uint64, txs []transaction.Transaction, month time.Time) Summary {
	key := cacheKey{version: version, period: periodKey(month)}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.summaryKey == key {
		return e.summary
	}
	e.summary = MonthlySummary(txs, month)
	e.summaryKey = key
	return e.summary
}

// Ranking returns the memoized category ranking.
func (e *Engine) Ranking(version uint64, txs []transaction.Transaction, month time.Time, topN int) []CategoryTotal {
	key := cacheKey{version: version, period: periodKey(month)}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rankingKey == key && e.rankingTopN == topN {
		return e.ranking
	}
	e.ranking = CategoryRanking(txs, month, topN)
	e.rankingKey = key
	e.rankingTopN = topN
	return e.ranking
}

// Tunnel returns the memoized installment projection.
func (e *Engine) Tunnel(version uint64, txs []transaction.Transaction, month time.Time, horizon int, riskFraction decimal.Decimal) []TunnelBucket {
	key := cacheKey{version: version, period: periodKey(month)}
	extras := tunnelParams{horizon: horizon, riskFraction: riskFraction.String()}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tunnelKey == key && e.tunnelExtras == extras {
		return e.tunnel
	}
	e.tunnel = InstallmentTunnel(txs, month, horizon, riskFraction)
	e.tunnelKey = key
	e.tunnelExtras = extras
	return e.tunnel
}
