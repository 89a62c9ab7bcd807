package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
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

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type flakyHandler struct {
	topic    string
	failures int
	calls    int
}

func (h *flakyHandler) Topic() string { return h.topic }

func (h *flakyHandler) Handle(_ context.Context, _ []byte) error {
	h.calls++
	if h.calls <= h.failures {
		return errors.New("transient")
	}
	return nil
}

func TestPublishEncodesValues(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w}

	require.NoError(t, p.Publish(context.Background(), "ledger.changed", []byte("t1"), map[string]string{"tenant_id": "t1"}))
	require.NoError(t, p.Publish(context.Background(), "raw", nil, "plain"))
	require.NoError(t, p.PublishBatch(context.Background(), "raw", nil))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "ledger.changed", w.msgs[0].Topic)
	assert.Equal(t, "t1", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"tenant_id":"t1"}`, string(w.msgs[0].Value))
	assert.Equal(t, "plain", string(w.msgs[1].Value))

	w.err = errors.New("broker down")
	err := p.Publish(context.Background(), "raw", nil, []byte("x"))
	assert.ErrorContains(t, err, "publish raw: broker down")

	_, err = encode(make(chan int))
	assert.Error(t, err)
}

func TestNewClientsRequireBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.EqualError(t, err, "brokers are required")
	_, err = NewConsumer()
	assert.EqualError(t, err, "brokers are required")
}

func TestProducerWriterConfig(t *testing.T) {
	cfg := defaultProducerConfig()
	WithBrokers([]string{"k1:9092"})(cfg)
	WithHashByKey(true)(cfg)
	w, err := cfg.writer()
	require.NoError(t, err)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.Equal(t, kafka.Snappy, w.Compression)

	WithCompression("brotli")(cfg)
	_, err = cfg.writer()
	assert.ErrorContains(t, err, `unknown compression "brotli"`)
}

func newTestConsumer(t *testing.T, opts ...ConsumerOption) *Consumer {
	t.Helper()
	opts = append([]ConsumerOption{
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
	}, opts...)
	c, err := NewConsumer(opts...)
	require.NoError(t, err)
	return c
}

func TestDeliverRetriesThenCommits(t *testing.T) {
	c := newTestConsumer(t)
	h := &flakyHandler{topic: "ledger.changed", failures: 2}
	c.RegisterHandler(h)
	reader := &fakeReader{}
	c.readers[h.topic] = reader

	c.deliver(&message{topic: h.topic, km: kafka.Message{Offset: 41, Value: []byte("{}")}})

	assert.Equal(t, 3, h.calls)
	assert.Equal(t, []int64{41}, reader.committed)
}

func TestDeliverSendsExhaustedMessagesToDLQ(t *testing.T) {
	c := newTestConsumer(t, WithConsumerDLQ("ledger.changed.dlq"))
	dlq := &fakeWriter{}
	c.dlq = dlq
	h := &flakyHandler{topic: "ledger.changed", failures: 10}
	c.RegisterHandler(h)
	reader := &fakeReader{}
	c.readers[h.topic] = reader

	c.deliver(&message{topic: h.topic, km: kafka.Message{Offset: 7, Value: []byte("bad")}})

	assert.Equal(t, 3, h.calls)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "ledger.changed.dlq", dlq.msgs[0].Topic)
	assert.Equal(t, "bad", string(dlq.msgs[0].Value))
	assert.Equal(t, "source_topic", dlq.msgs[0].Headers[0].Key)
	assert.Equal(t, "ledger.changed", string(dlq.msgs[0].Headers[0].Value))
	assert.Equal(t, []int64{7}, reader.committed)
}

func TestDeliverWithoutDLQLeavesOffset(t *testing.T) {
	c := newTestConsumer(t)
	h := &flakyHandler{topic: "ledger.changed", failures: 10}
	c.RegisterHandler(h)
	reader := &fakeReader{}
	c.readers[h.topic] = reader

	c.deliver(&message{topic: h.topic, km: kafka.Message{Offset: 9}})
	assert.Empty(t, reader.committed)
}

type panicHandler struct{}

func (panicHandler) Topic() string                        { return "p" }
func (panicHandler) Handle(context.Context, []byte) error { panic("boom") }

func TestProcessRecoversPanics(t *testing.T) {
	c := newTestConsumer(t, WithConsumerRetry(0, time.Millisecond, time.Millisecond))
	attempts, err := c.process(panicHandler{}, &message{topic: "p"})
	assert.Equal(t, 1, attempts)
	assert.ErrorContains(t, err, "panic in handler for topic p: boom")
}

func TestHookChainOrderAndPanics(t *testing.T) {
	var order []string
	rec := func(name string) ConsumerHook {
		return recordingHook{name: name, order: &order}
	}
	chain := NewHookChain(rec("a"), nil, rec("b"))

	_, _, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "x+a+b", string(data))
	chain.AfterHandle(context.Background(), "t", kafka.Message{}, nil, nil)
	assert.Equal(t, []string{"before:a", "before:b", "after:b", "after:a"}, order)

	_, _, _, err = NewHookChain(panicHook{}).BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var herr *HookError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "ERR_PANIC", herr.Code)
	assert.NotPanics(t, func() {
		NewHookChain(panicHook{}).AfterHandle(context.Background(), "t", kafka.Message{}, nil, nil)
	})
}

type recordingHook struct {
	name  string
	order *[]string
}

func (h recordingHook) BeforeHandle(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	*h.order = append(*h.order, "before:"+h.name)
	return ctx, km, append(data, []byte("+"+h.name)...), nil
}

func (h recordingHook) AfterHandle(context.Context, string, kafka.Message, []byte, error) {
	*h.order = append(*h.order, "after:"+h.name)
}

func (h recordingHook) OnError(context.Context, string, kafka.Message, []byte, error) {}

type panicHook struct{ NoopHook }

func (panicHook) BeforeHandle(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
	panic("hook")
}

func (panicHook) AfterHandle(context.Context, string, kafka.Message, []byte, error) { panic("hook") }

func TestHeaderCarrier(t *testing.T) {
	var headers []kafka.Header
	c := HeaderCarrier{Headers: &headers}
	c.Set("traceparent", "00-a")
	c.Set("traceparent", "00-b")
	c.Set("tracestate", "x=1")

	assert.Equal(t, "00-b", c.Get("traceparent"))
	assert.Equal(t, "", c.Get("missing"))
	assert.Equal(t, []string{"traceparent", "tracestate"}, c.Keys())
}

func TestBackoffWithJitter(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 80*time.Millisecond, attempt)
		assert.LessOrEqual(t, d, 80*time.Millisecond)
		assert.Greater(t, d, time.Duration(0))
	}
}
