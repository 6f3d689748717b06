package plugin_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/token"
	"github.com/xraph/tally/transfer"
)

type recorder struct {
	name string
	mu   sync.Mutex
	seen []string
	err  error
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) OnTokenDeployed(_ context.Context, t *token.Token) error {
	r.add("deployed:" + t.Symbol)
	return r.err
}

func (r *recorder) OnTransfer(_ context.Context, t *transfer.Transfer) error {
	r.add("transfer:" + t.Amount.String())
	return r.err
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.seen = append(r.seen, s)
	r.mu.Unlock()
}

func (r *recorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

type sleeper struct{ d time.Duration }

func (s sleeper) Name() string { return "sleeper" }

func (s sleeper) OnTransfer(ctx context.Context, _ *transfer.Transfer) error {
	select {
	case <-time.After(s.d):
	case <-ctx.Done():
	}
	return nil
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := plugin.NewRegistry()
	require.NoError(t, r.Register(&recorder{name: "a"}))
	require.Error(t, r.Register(&recorder{name: "a"}))
	assert.Equal(t, 1, r.Count())
	assert.NotNil(t, r.Get("a"))
	assert.Nil(t, r.Get("b"))
}

func TestEmitDispatchesByInterface(t *testing.T) {
	r := plugin.NewRegistry()
	rec := &recorder{name: "rec"}
	require.NoError(t, r.Register(rec))
	require.NoError(t, r.Register(sleeper{}))

	ctx := context.Background()
	r.EmitTokenDeployed(ctx, &token.Token{Symbol: "DLT"})
	r.EmitTransfer(ctx, &transfer.Transfer{})
	r.EmitTransferRejected(ctx, &transfer.Rejection{})

	assert.Equal(t, []string{"deployed:DLT", "transfer:0"}, rec.events())
	assert.Len(t, r.List(), 2)
}

func TestPluginErrorsAreSwallowed(t *testing.T) {
	r := plugin.NewRegistry()
	rec := &recorder{name: "rec", err: errors.New("boom")}
	require.NoError(t, r.Register(rec))

	r.EmitTransfer(context.Background(), &transfer.Transfer{})
	assert.Len(t, rec.events(), 1)
}

func TestSlowPluginTimesOut(t *testing.T) {
	r := plugin.NewRegistry().WithTimeout(20 * time.Millisecond)
	require.NoError(t, r.Register(sleeper{d: time.Second}))

	start := time.Now()
	r.EmitTransfer(context.Background(), &transfer.Transfer{})
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
