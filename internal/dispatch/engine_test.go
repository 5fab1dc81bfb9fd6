package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-fulfillment/internal/domain"
)

type fakeSender struct {
	name     string
	errs     []error // one per call; last repeats
	calls    int
	payloads [][]byte
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) Send(_ context.Context, payload []byte) error {
	i := f.calls
	f.calls++
	f.payloads = append(f.payloads, payload)
	if len(f.errs) == 0 {
		return nil
	}
	if i >= len(f.errs) {
		i = len(f.errs) - 1
	}
	return f.errs[i]
}

func fastEngine(senders ...Sender) *Engine {
	e := New(nil, senders...)
	e.backoff = time.Millisecond
	return e
}

func TestFirstSuccessShortCircuits(t *testing.T) {
	a := &fakeSender{name: "ble"}
	b := &fakeSender{name: "network"}
	res := fastEngine(a, b).Dispatch(context.Background(), []byte("x"))

	require.True(t, res.OK)
	assert.Equal(t, "ble", res.Provider)
	assert.Equal(t, 1, a.calls)
	assert.Zero(t, b.calls)
}

func TestAllFailAggregatesEveryReason(t *testing.T) {
	a := &fakeSender{name: "ble", errs: []error{errors.New("device not found")}}
	b := &fakeSender{name: "network", errs: []error{errors.New("connection refused")}}
	c := &fakeSender{name: "pos-relay", errs: []error{errors.New("relay returned 502")}}

	res := fastEngine(a, b, c).Dispatch(context.Background(), []byte("x"))

	require.False(t, res.OK)
	msg := res.Err.Error()
	assert.Contains(t, msg, "ble: device not found")
	assert.Contains(t, msg, "network: connection refused")
	assert.Contains(t, msg, "pos-relay: relay returned 502")
}

func TestUnavailableSenderIsSkippedSilently(t *testing.T) {
	a := &fakeSender{name: "plugin", errs: []error{ErrUnavailable}}
	b := &fakeSender{name: "network"}

	res := fastEngine(a, b).Dispatch(context.Background(), []byte("x"))

	require.True(t, res.OK)
	assert.Equal(t, "network", res.Provider)
}

func TestRetrySucceedsOnThirdAttemptPrintsOnce(t *testing.T) {
	s := &fakeSender{name: "network", errs: []error{
		errors.New("timeout"), errors.New("timeout"), nil,
	}}
	res := fastEngine(s).DispatchWithRetry(context.Background(), []byte("x"))

	require.True(t, res.OK)
	assert.Equal(t, 3, s.calls, "one send per attempt, no duplicate after success")
}

func TestRetryRerunsWholeChainFromTop(t *testing.T) {
	a := &fakeSender{name: "ble", errs: []error{errors.New("link drop"), errors.New("link drop"), nil}}
	b := &fakeSender{name: "network", errs: []error{errors.New("refused")}}

	res := fastEngine(a, b).DispatchWithRetry(context.Background(), []byte("x"))

	require.True(t, res.OK)
	assert.Equal(t, "ble", res.Provider)
	assert.Equal(t, 3, a.calls)
	assert.Equal(t, 2, b.calls, "fallback tried on each failed attempt, not resumed mid-chain")
}

func TestRetriesAreBounded(t *testing.T) {
	s := &fakeSender{name: "network", errs: []error{errors.New("timeout")}}
	res := fastEngine(s).DispatchWithRetry(context.Background(), []byte("x"))

	require.False(t, res.OK)
	assert.Equal(t, 3, s.calls, "initial attempt plus two retries")
}

func TestConfigErrorIsNotRetried(t *testing.T) {
	s := &fakeSender{name: "network", errs: []error{&ConfigError{Reason: "printer address is missing"}}}
	res := fastEngine(s).DispatchWithRetry(context.Background(), []byte("x"))

	require.False(t, res.OK)
	assert.Equal(t, 1, s.calls)
}

func TestEmptyChainIsConfigError(t *testing.T) {
	res := fastEngine().Dispatch(context.Background(), []byte("x"))
	require.False(t, res.OK)
	var ce *ConfigError
	assert.True(t, errors.As(res.Err, &ce))
}

func TestNetworkSenderWritesPayloadAndCloses(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 1024)
		n, _ := conn.Read(buf)
		got <- buf[:n]
	}()

	addr := ln.Addr().(*net.TCPAddr)
	s := NewNetworkSender(domain.PrinterConfig{Kind: domain.PrinterNetwork, Host: "127.0.0.1", Port: addr.Port})
	require.NoError(t, s.Send(context.Background(), []byte("RECEIPT")))

	select {
	case payload := <-got:
		assert.Equal(t, "RECEIPT", string(payload))
	case <-time.After(2 * time.Second):
		t.Fatal("printer never received payload")
	}
}

func TestNetworkSenderMissingHostIsConfigError(t *testing.T) {
	s := NewNetworkSender(domain.PrinterConfig{Kind: domain.PrinterNetwork})
	err := s.Send(context.Background(), []byte("x"))
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
}

func TestNetworkSenderConnectFailureIsTransient(t *testing.T) {
	// Reserve a port and close it so the connect is refused quickly.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	s := NewNetworkSender(domain.PrinterConfig{Kind: domain.PrinterNetwork, Host: "127.0.0.1", Port: port})
	s.Timeout = time.Second
	err = s.Send(context.Background(), []byte("x"))
	require.Error(t, err)
	var ce *ConfigError
	assert.False(t, errors.As(err, &ce))
	assert.Contains(t, err.Error(), fmt.Sprintf("connect 127.0.0.1:%d", port))
}

func TestServerEngineKinds(t *testing.T) {
	netEng := ServerEngine(nil, domain.PrinterConfig{Kind: domain.PrinterNetwork, Host: "10.0.0.5"})
	require.Len(t, netEng.senders, 1)
	assert.Equal(t, "network", netEng.senders[0].Name())

	relayEng := ServerEngine(nil, domain.PrinterConfig{Kind: domain.PrinterBluetooth, Endpoint: "https://relay.local/print"})
	require.Len(t, relayEng.senders, 1)
	assert.Equal(t, "pos-relay", relayEng.senders[0].Name())

	none := ServerEngine(nil, domain.PrinterConfig{Kind: domain.PrinterNone})
	res := none.Dispatch(context.Background(), []byte("x"))
	assert.False(t, res.OK)
}
