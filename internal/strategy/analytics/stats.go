package analytics

import (
	"fmt"
	"sort"
	"strings"

	"trendSignalBot/internal/domain"
)

// OutcomeStats aggregates the decisions of a detection run: how many bars
// were evaluated, how the rejections distribute across gate reasons, and
// summary figures for the accepted signals.
type OutcomeStats struct {
	Evaluated   int
	Accepted    int
	BuySignals  int
	SellSignals int
	Rejections  map[domain.RejectReason]int

	AvgQuality    float64
	AvgConfidence float64
	AvgRiskReward float64
}

// AcceptanceRate returns accepted/evaluated as a fraction (0 when nothing
// was evaluated).
func (s *OutcomeStats) AcceptanceRate() float64 {
	if s.Evaluated == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(s.Evaluated)
}

// Collector accumulates outcomes as they are produced.
type Collector struct {
	stats   OutcomeStats
	signals []*domain.Signal
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{stats: OutcomeStats{Rejections: make(map[domain.RejectReason]int)}}
}

// Observe records one outcome.
func (c *Collector) Observe(out domain.Outcome) {
	c.stats.Evaluated++
	if out.Accepted() {
		sig := out.Signal
		c.stats.Accepted++
		if sig.Direction == domain.Buy {
			c.stats.BuySignals++
		} else {
			c.stats.SellSignals++
		}
		n := float64(c.stats.Accepted)
		c.stats.AvgQuality = (c.stats.AvgQuality*(n-1) + sig.Quality) / n
		c.stats.AvgConfidence = (c.stats.AvgConfidence*(n-1) + sig.Confidence) / n
		c.stats.AvgRiskReward = (c.stats.AvgRiskReward*(n-1) + sig.RiskReward) / n
		c.signals = append(c.signals, sig)
		return
	}
	c.stats.Rejections[out.Rejection.Reason]++
}

// Stats returns a snapshot of the aggregated figures.
func (c *Collector) Stats() OutcomeStats {
	snapshot := c.stats
	snapshot.Rejections = make(map[domain.RejectReason]int, len(c.stats.Rejections))
	for k, v := range c.stats.Rejections {
		snapshot.Rejections[k] = v
	}
	return snapshot
}

// Signals returns the accepted signals in emission order.
func (c *Collector) Signals() []*domain.Signal {
	return c.signals
}

// Report renders a plain-text summary, rejections sorted by volume.
func (c *Collector) Report() string {
	var sb strings.Builder
	s := c.stats
	fmt.Fprintf(&sb, "Bars evaluated:  %d\n", s.Evaluated)
	fmt.Fprintf(&sb, "Signals:         %d (%.2f%% acceptance)\n", s.Accepted, s.AcceptanceRate()*100)
	fmt.Fprintf(&sb, "  BUY / SELL:    %d / %d\n", s.BuySignals, s.SellSignals)
	if s.Accepted > 0 {
		fmt.Fprintf(&sb, "  Avg quality:    %.1f\n", s.AvgQuality)
		fmt.Fprintf(&sb, "  Avg confidence: %.1f\n", s.AvgConfidence)
		fmt.Fprintf(&sb, "  Avg RRR:        %.2f\n", s.AvgRiskReward)
	}

	type reasonCount struct {
		reason domain.RejectReason
		count  int
	}
	reasons := make([]reasonCount, 0, len(s.Rejections))
	for r, n := range s.Rejections {
		reasons = append(reasons, reasonCount{r, n})
	}
	sort.Slice(reasons, func(i, j int) bool {
		if reasons[i].count != reasons[j].count {
			return reasons[i].count > reasons[j].count
		}
		return reasons[i].reason < reasons[j].reason
	})
	if len(reasons) > 0 {
		sb.WriteString("Rejections:\n")
		for _, rc := range reasons {
			fmt.Fprintf(&sb, "  %-26s %d\n", rc.reason, rc.count)
		}
	}
	return sb.String()
}
