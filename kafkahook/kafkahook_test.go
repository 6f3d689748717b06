package kafkahook_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/tally"
	"github.com/xraph/tally/kafkahook"
	"github.com/xraph/tally/store/memory"
	"github.com/xraph/tally/transfer"
	"github.com/xraph/tally/types"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) envelopes(t *testing.T) []kafkahook.Envelope {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]kafkahook.Envelope, 0, len(w.msgs))
	for _, m := range w.msgs {
		var env kafkahook.Envelope
		require.NoError(t, json.Unmarshal(m.Value, &env))
		out = append(out, env)
	}
	return out
}

var (
	owner = types.MustParseAddress("0x1111111111111111111111111111111111111111")
	alice = types.MustParseAddress("0x2222222222222222222222222222222222222222")
)

func TestPublishesLedgerEvents(t *testing.T) {
	ctx := context.Background()
	w := &fakeWriter{}

	l, err := tally.Deploy(ctx, memory.New(), tally.Params{
		Name:          "Stream Token",
		Symbol:        "STR",
		InitialSupply: types.NewAmount(10),
		Owner:         owner,
	}, tally.WithMintEvent(), tally.WithPlugin(kafkahook.New(w)))
	require.NoError(t, err)

	_, err = l.Transfer(ctx, owner, alice, types.NewAmount(3))
	require.NoError(t, err)
	_, err = l.Transfer(ctx, alice, owner, types.NewAmount(4))
	require.ErrorIs(t, err, tally.ErrInsufficientFunds)
	require.NoError(t, l.Close())

	envs := w.envelopes(t)
	require.Len(t, envs, 4)
	assert.Equal(t, kafkahook.TypeTokenDeployed, envs[0].Type)
	assert.Equal(t, kafkahook.TypeTransferMinted, envs[1].Type)
	assert.Equal(t, kafkahook.TypeTransferCompleted, envs[2].Type)
	assert.Equal(t, kafkahook.TypeTransferRejected, envs[3].Type)

	for _, m := range w.msgs {
		assert.Equal(t, l.ID().String(), string(m.Key))
	}

	var got transfer.Transfer
	require.NoError(t, json.Unmarshal(envs[2].Data, &got))
	assert.Equal(t, uint64(2), got.Sequence)
	assert.Equal(t, alice, got.To)
	assert.True(t, got.Amount.Equal(types.NewAmount(3)))

	var rej transfer.Rejection
	require.NoError(t, json.Unmarshal(envs[3].Data, &rej))
	assert.Equal(t, transfer.RejectInsufficientFunds, rej.Code)

	assert.True(t, w.closed)
}

func TestPublishFailureDoesNotFailTransfer(t *testing.T) {
	ctx := context.Background()
	w := &fakeWriter{err: errors.New("broker down")}

	l, err := tally.Deploy(ctx, memory.New(), tally.Params{
		Name:          "Stream Token",
		Symbol:        "STR",
		InitialSupply: types.NewAmount(10),
		Owner:         owner,
	}, tally.WithPlugin(kafkahook.New(w)))
	require.NoError(t, err)

	_, err = l.Transfer(ctx, owner, alice, types.NewAmount(1))
	require.NoError(t, err)
	assert.Equal(t, "1", l.BalanceOf(alice).String())
}

func TestExtensionReturnsWriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	e := kafkahook.New(w)

	err := e.OnTransfer(context.Background(), &transfer.Transfer{Kind: transfer.KindTransfer})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNewWriterDefaultsTopic(t *testing.T) {
	w := kafkahook.NewWriter([]string{"localhost:9092"}, "")
	assert.Equal(t, kafkahook.DefaultTopic, w.Topic)
}
