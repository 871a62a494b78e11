package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"dashboard/internal/kv"
	"dashboard/internal/types"
)

const (
	ackKeyPrefix = "alerts:ack:"
	ackTTL       = 24 * time.Hour
)

// RouteAlert reports a route measurement above the threshold.
type RouteAlert struct {
	ID               string             `json:"id"`
	Message          string             `json:"message"`
	RouteData        types.RoutePayload `json:"routeData"`
	ThresholdMinutes int                `json:"thresholdMinutes"`
	Acknowledged     bool               `json:"acknowledged"`
	CreatedAtIso     string             `json:"createdAtIso"`
}

// Signature identifies the measurement an alert was raised for. It combines
// the measurement time, the threshold and the rounded duration, so any change
// to one of them produces a new, unacknowledged alert.
func (a RouteAlert) Signature() string {
	return fmt.Sprintf("%s:%d:%s", a.RouteData.LastUpdatedIso, a.ThresholdMinutes, toFixed1(a.RouteData.DurationMinutes))
}

// toFixed1 formats v with one decimal, rounding the exact binary value half
// away from zero: 50.25 gives "50.3" where %.1f would give "50.2".
func toFixed1(v float64) string {
	r := new(big.Rat)
	if r.SetFloat64(v) == nil {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	neg := r.Sign() < 0
	r.Abs(r)
	r.Mul(r, big.NewRat(10, 1))
	r.Add(r, big.NewRat(1, 2))
	tenths := new(big.Int).Quo(r.Num(), r.Denom()).String()
	if len(tenths) < 2 {
		tenths = "0" + tenths
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(tenths[:len(tenths)-1])
	b.WriteByte('.')
	b.WriteString(tenths[len(tenths)-1:])
	return b.String()
}

func ackKey(a RouteAlert) string {
	return ackKeyPrefix + a.Signature()
}

// Evaluate returns one alert when the route takes strictly longer than the
// threshold and none otherwise.
func Evaluate(route types.RoutePayload, thresholdMinutes int, now time.Time) []RouteAlert {
	if route.DurationMinutes <= float64(thresholdMinutes) {
		return []RouteAlert{}
	}
	return []RouteAlert{{
		ID:               strconv.FormatInt(now.UnixMilli(), 10),
		Message:          fmt.Sprintf("Travel time %s min exceeds threshold of %d min.", toFixed1(route.DurationMinutes), thresholdMinutes),
		RouteData:        route,
		ThresholdMinutes: thresholdMinutes,
		CreatedAtIso:     types.FormatISO(now),
	}}
}

// AckResult counts the outcome of an acknowledge request.
type AckResult struct {
	Acknowledged int `json:"acknowledged"`
	Failed       int `json:"failed"`
}

// Acknowledger records and looks up alert acknowledgements.
type Acknowledger struct {
	store  kv.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewAcknowledger creates an Acknowledger.
func NewAcknowledger(store kv.Store, logger *slog.Logger, now func() time.Time) *Acknowledger {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Acknowledger{store: store, logger: logger, now: now}
}

// Filter marks acknowledged alerts and, unless includeAcknowledged is set,
// drops them. A failed lookup counts as not acknowledged.
func (a *Acknowledger) Filter(ctx context.Context, alerts []RouteAlert, includeAcknowledged bool) []RouteAlert {
	logger := types.LoggerFromContext(ctx, a.logger)

	out := make([]RouteAlert, 0, len(alerts))
	for _, alert := range alerts {
		_, acked, err := a.store.Get(ctx, ackKey(alert))
		if err != nil {
			logger.Warn("Acknowledgement lookup failed", "signature", alert.Signature(), "error", err)
			acked = false
		}
		alert.Acknowledged = acked
		if acked && !includeAcknowledged {
			continue
		}
		out = append(out, alert)
	}
	return out
}

// Acknowledge stores an acknowledgement for each alert. Individual write
// failures are counted, not returned.
func (a *Acknowledger) Acknowledge(ctx context.Context, alerts []RouteAlert) AckResult {
	logger := types.LoggerFromContext(ctx, a.logger)
	stamp := types.FormatISO(a.now())

	var res AckResult
	for _, alert := range alerts {
		if err := a.store.Set(ctx, ackKey(alert), stamp, ackTTL); err != nil {
			logger.Warn("Acknowledgement write failed", "signature", alert.Signature(), "error", err)
			res.Failed++
			continue
		}
		res.Acknowledged++
	}
	return res
}
