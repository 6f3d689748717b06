package observability_test

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/tally"
	"github.com/xraph/tally/observability"
	"github.com/xraph/tally/store/memory"
	"github.com/xraph/tally/types"
)

type countingFactory struct {
	counters   map[string]*fakeCounter
	histograms map[string]*fakeHistogram
}

type fakeCounter struct{ v float64 }

func (c *fakeCounter) Inc()          { c.v++ }
func (c *fakeCounter) Add(f float64) { c.v += f }

type fakeHistogram struct{ samples []float64 }

func (h *fakeHistogram) Observe(f float64) { h.samples = append(h.samples, f) }

func newCountingFactory() *countingFactory {
	return &countingFactory{
		counters:   make(map[string]*fakeCounter),
		histograms: make(map[string]*fakeHistogram),
	}
}

func (f *countingFactory) Counter(name string) observability.Counter {
	c := &fakeCounter{}
	f.counters[name] = c
	return c
}

func (f *countingFactory) Histogram(name string) observability.Histogram {
	h := &fakeHistogram{}
	f.histograms[name] = h
	return h
}

var (
	owner = types.MustParseAddress("0x1111111111111111111111111111111111111111")
	alice = types.MustParseAddress("0x2222222222222222222222222222222222222222")
)

func deploy(t *testing.T, m *observability.MetricsExtension, opts ...tally.Option) *tally.Ledger {
	t.Helper()
	opts = append(opts, tally.WithPlugin(m))
	l, err := tally.Deploy(context.Background(), memory.New(), tally.Params{
		Name:          "Metered Token",
		Symbol:        "MTR",
		Decimals:      0,
		InitialSupply: types.NewAmount(100),
		Owner:         owner,
	}, opts...)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	return l
}

func TestMetricsExtensionCounts(t *testing.T) {
	f := newCountingFactory()
	m := observability.NewMetricsExtension(f)
	l := deploy(t, m, tally.WithMintEvent())
	ctx := context.Background()

	if _, err := l.Transfer(ctx, owner, alice, types.NewAmount(40)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if _, err := l.Transfer(ctx, alice, owner, types.NewAmount(41)); err == nil {
		t.Fatal("expected insufficient funds")
	}
	if _, err := l.Transfer(ctx, owner, "", types.NewAmount(1)); err == nil {
		t.Fatal("expected invalid recipient")
	}

	want := map[string]float64{
		"tally.token.deployed":                       1,
		"tally.transfer.minted":                      1,
		"tally.transfer.completed":                   1,
		"tally.transfer.rejected":                    2,
		"tally.transfer.rejected.insufficient_funds": 1,
		"tally.transfer.rejected.invalid_party":      1,
		"tally.ledger.opened":                        0,
	}
	for name, v := range want {
		if got := f.counters[name].v; got != v {
			t.Errorf("%s = %v, want %v", name, got, v)
		}
	}

	amounts := f.histograms["tally.transfer.amount_units"].samples
	if len(amounts) != 1 || amounts[0] != 40 {
		t.Errorf("amount samples = %v, want [40]", amounts)
	}
}

func TestPrometheusFactory(t *testing.T) {
	f := observability.NewPrometheusFactory(nil)
	m := observability.NewMetricsExtension(f)
	l := deploy(t, m)

	if _, err := l.Transfer(context.Background(), owner, alice, types.NewAmount(5)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if got := testutil.ToFloat64(m.TransferCompleted.(prometheus.Counter)); got != 1 {
		t.Errorf("completed = %v, want 1", got)
	}
}

func TestPrometheusFactoryReusesCollectors(t *testing.T) {
	f := observability.NewPrometheusFactory(nil)
	a := f.Counter("tally.transfer.completed")
	b := f.Counter("tally.transfer.completed")
	a.Inc()
	b.Inc()

	n, err := testutil.GatherAndCount(f.Registry(), "tally_transfer_completed_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 1 {
		t.Errorf("series = %d, want 1", n)
	}

	out, err := f.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range out {
		if strings.Contains(mf.GetName(), ".") {
			t.Errorf("metric name %q not sanitized", mf.GetName())
		}
		if mf.GetName() == "tally_transfer_completed_total" {
			if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 2 {
				t.Errorf("value = %v, want 2", v)
			}
		}
	}
}
