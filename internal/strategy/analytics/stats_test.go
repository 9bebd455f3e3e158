package analytics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trendSignalBot/internal/domain"
)

func acceptedOutcome(direction domain.Side, quality, confidence, rrr float64) domain.Outcome {
	return domain.Outcome{Signal: &domain.Signal{
		Symbol:     "ETHUSDT",
		Direction:  direction,
		Entry:      100,
		Quality:    quality,
		Confidence: confidence,
		RiskReward: rrr,
		Timestamp:  time.Now(),
	}}
}

func rejectedOutcome(reason domain.RejectReason) domain.Outcome {
	return domain.Outcome{Rejection: &domain.Rejection{Reason: reason}}
}

func TestCollector_Observe(t *testing.T) {
	c := NewCollector()

	c.Observe(acceptedOutcome(domain.Buy, 80, 90, 2.5))
	c.Observe(acceptedOutcome(domain.Sell, 90, 80, 3.5))
	c.Observe(rejectedOutcome(domain.RejectStrictRegime))
	c.Observe(rejectedOutcome(domain.RejectStrictRegime))
	c.Observe(rejectedOutcome(domain.RejectRiskReward))

	stats := c.Stats()
	assert.Equal(t, 5, stats.Evaluated)
	assert.Equal(t, 2, stats.Accepted)
	assert.Equal(t, 1, stats.BuySignals)
	assert.Equal(t, 1, stats.SellSignals)
	assert.Equal(t, 2, stats.Rejections[domain.RejectStrictRegime])
	assert.Equal(t, 1, stats.Rejections[domain.RejectRiskReward])
	assert.InDelta(t, 85.0, stats.AvgQuality, 1e-9)
	assert.InDelta(t, 85.0, stats.AvgConfidence, 1e-9)
	assert.InDelta(t, 3.0, stats.AvgRiskReward, 1e-9)
	assert.InDelta(t, 0.4, stats.AcceptanceRate(), 1e-9)

	assert.Len(t, c.Signals(), 2)
}

func TestCollector_StatsSnapshotIsIndependent(t *testing.T) {
	c := NewCollector()
	c.Observe(rejectedOutcome(domain.RejectMinBars))

	snapshot := c.Stats()
	snapshot.Rejections[domain.RejectMinBars] = 99

	assert.Equal(t, 1, c.Stats().Rejections[domain.RejectMinBars])
}

func TestCollector_EmptyAcceptanceRate(t *testing.T) {
	stats := NewCollector().Stats()
	assert.Equal(t, 0.0, stats.AcceptanceRate())
}

func TestCollector_Report(t *testing.T) {
	c := NewCollector()
	c.Observe(acceptedOutcome(domain.Buy, 80, 90, 2.5))
	c.Observe(rejectedOutcome(domain.RejectStrictRegime))
	c.Observe(rejectedOutcome(domain.RejectStrictRegime))
	c.Observe(rejectedOutcome(domain.RejectSwingQuality))

	report := c.Report()
	assert.Contains(t, report, "Bars evaluated:  4")
	assert.Contains(t, report, "strict-regime")
	assert.Contains(t, report, "swing-quality")
	// The dominant reason sorts first.
	assert.Less(t, strings.Index(report, "strict-regime"), strings.Index(report, "swing-quality"))
}
