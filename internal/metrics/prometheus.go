package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "options_calendar_bot"

type Prometheus struct {
	Metrics *Metrics

	registry         *prometheus.Registry
	deploys          prometheus.Counter
	deployFailed     prometheus.Counter
	monitorRuns      prometheus.Counter
	monitorFailed    prometheus.Counter
	adjustments      prometheus.Counter
	chainFetches     prometheus.Counter
	chainFetchFailed prometheus.Counter
	mockFallbacks    prometheus.Counter
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      name,
		Help:      help,
	})
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry:         prometheus.NewRegistry(),
		deploys:          newCounter("deploys_total", "Total number of successful strategy deployments."),
		deployFailed:     newCounter("deploy_failed_total", "Total number of failed strategy deployments."),
		monitorRuns:      newCounter("monitor_runs_total", "Total number of completed monitoring passes."),
		monitorFailed:    newCounter("monitor_failed_total", "Total number of failed monitoring passes."),
		adjustments:      newCounter("adjustments_total", "Total number of adjustments signalled by monitoring."),
		chainFetches:     newCounter("chain_fetches_total", "Total number of live option chain requests."),
		chainFetchFailed: newCounter("chain_fetch_failed_total", "Total number of failed or malformed live option chain requests."),
		mockFallbacks:    newCounter("mock_fallbacks_total", "Total number of mock lookups served by the default scenario."),
	}
	p.registry.MustRegister(
		p.deploys, p.deployFailed, p.monitorRuns, p.monitorFailed,
		p.adjustments, p.chainFetches, p.chainFetchFailed, p.mockFallbacks,
	)
	p.Metrics = &Metrics{
		Deploys:          p.deploys,
		DeployFailed:     p.deployFailed,
		MonitorRuns:      p.monitorRuns,
		MonitorFailed:    p.monitorFailed,
		Adjustments:      p.adjustments,
		ChainFetches:     p.chainFetches,
		ChainFetchFailed: p.chainFetchFailed,
		MockFallbacks:    p.mockFallbacks,
	}
	return p
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
