// Package metrics exports sale activity as Prometheus metrics.
//
// Collector plugs into the sale engine as its Observer. Counters track
// accepted and rejected contributions (by reason); gauges mirror the running
// totals. Monetary gauges are float64 and therefore approximate for very
// large wei amounts: they are meant for dashboards, not accounting.
package metrics

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rony4d/go-opera-crowdsale/inter"
	"github.com/rony4d/go-opera-crowdsale/sale"
)

const namespace = "crowdsale"

// Collector holds the sale metrics.
type Collector struct {
	contributions prometheus.Counter
	rejections    *prometheus.CounterVec
	raised        prometheus.Gauge
	tokens        prometheus.Gauge
	whitelisted   prometheus.Gauge

	granted *big.Int
}

var _ sale.Observer = (*Collector)(nil)

// New creates the collector and registers it with reg. Every metric carries a
// constant "sale" label so several sales can share one registry.
func New(reg prometheus.Registerer, saleName string) (*Collector, error) {
	labels := prometheus.Labels{"sale": saleName}
	c := &Collector{
		contributions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "contributions_total",
			Help:        "Number of accepted contributions.",
			ConstLabels: labels,
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rejections_total",
			Help:        "Number of rejected operations by reason.",
			ConstLabels: labels,
		}, []string{"reason"}),
		raised: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "raised_wei",
			Help:        "Total value raised, in wei.",
			ConstLabels: labels,
		}),
		tokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "tokens_granted",
			Help:        "Total token units disbursed.",
			ConstLabels: labels,
		}),
		whitelisted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "whitelisted",
			Help:        "Number of identities currently whitelisted.",
			ConstLabels: labels,
		}),
		granted: new(big.Int),
	}
	for _, m := range []prometheus.Collector{c.contributions, c.rejections, c.raised, c.tokens, c.whitelisted} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Sync seeds the gauges from an engine status, e.g. after state was restored
// from disk. granted is the token total already disbursed.
func (c *Collector) Sync(st sale.Status, granted *big.Int) {
	c.raised.Set(toFloat(st.Raised))
	c.whitelisted.Set(float64(st.Whitelisted))
	c.granted = new(big.Int).Set(granted)
	c.tokens.Set(toFloat(c.granted))
}

// Contributed implements sale.Observer.
func (c *Collector) Contributed(r *inter.Receipt) {
	c.contributions.Inc()
	c.raised.Set(toFloat(r.Raised))
	c.granted.Add(c.granted, r.Tokens)
	c.tokens.Set(toFloat(c.granted))
}

// Rejected implements sale.Observer.
func (c *Collector) Rejected(reason sale.Reason) {
	if reason == "" {
		reason = "UNKNOWN"
	}
	c.rejections.WithLabelValues(string(reason)).Inc()
}

// WhitelistChanged implements sale.Observer.
func (c *Collector) WhitelistChanged(total int) {
	c.whitelisted.Set(float64(total))
}

func toFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

// Server exposes a gatherer on /metrics.
type Server struct {
	srv *http.Server
	log log.Logger
}

// NewServer prepares an HTTP server for addr. It is not started.
func NewServer(addr string, g prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &Server{
		srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		log: log.New("module", "metrics"),
	}
}

// Start serves in the background.
func (s *Server) Start() {
	s.log.Info("Starting metrics server", "addr", s.srv.Addr)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Metrics server failed", "err", err)
		}
	}()
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}
