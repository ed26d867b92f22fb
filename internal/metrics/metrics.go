package metrics

type Counter interface {
	Inc()
	Add(float64)
}

type Metrics struct {
	Deploys          Counter
	DeployFailed     Counter
	MonitorRuns      Counter
	MonitorFailed    Counter
	Adjustments      Counter
	ChainFetches     Counter
	ChainFetchFailed Counter
	MockFallbacks    Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func (noopCounter) Add(float64) {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		Deploys:          n,
		DeployFailed:     n,
		MonitorRuns:      n,
		MonitorFailed:    n,
		Adjustments:      n,
		ChainFetches:     n,
		ChainFetchFailed: n,
		MockFallbacks:    n,
	}
}
