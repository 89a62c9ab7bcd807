package kafka

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type clientMetrics struct {
	producerMessages *prometheus.CounterVec
	producerBytes    *prometheus.CounterVec
	producerLatency  *prometheus.HistogramVec
	consumerQueue    *prometheus.GaugeVec
	consumerHandle   *prometheus.HistogramVec
	consumerResults  *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	kmetrics    *clientMetrics
)

// RegisterMetrics registers producer and consumer collectors with reg once.
// Until it is called the clients record nothing.
func RegisterMetrics(reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		m := &clientMetrics{
			producerMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "omnitrackiq_kafka_producer_messages_total",
				Help: "Messages published to Kafka",
			}, []string{"topic", "result"}),
			producerBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "omnitrackiq_kafka_producer_bytes_total",
				Help: "Payload bytes published to Kafka",
			}, []string{"topic"}),
			producerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "omnitrackiq_kafka_producer_publish_seconds",
				Help:    "Publish latency",
				Buckets: prometheus.DefBuckets,
			}, []string{"topic"}),
			consumerQueue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "omnitrackiq_kafka_consumer_queue_depth",
				Help: "Messages waiting in the consumer queue",
			}, []string{"topic"}),
			consumerHandle: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "omnitrackiq_kafka_consumer_handle_seconds",
				Help:    "Handling time per message, retries included",
				Buckets: prometheus.DefBuckets,
			}, []string{"topic"}),
			consumerResults: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "omnitrackiq_kafka_consumer_messages_total",
				Help: "Consumed messages by outcome",
			}, []string{"topic", "result"}),
		}
		reg.MustRegister(m.producerMessages, m.producerBytes, m.producerLatency,
			m.consumerQueue, m.consumerHandle, m.consumerResults)
		kmetrics = m
	})
}

func observePublish(topic string, bytes int64, count int, dur time.Duration, err error) {
	if kmetrics == nil {
		return
	}
	kmetrics.producerMessages.WithLabelValues(topic, result(err)).Add(float64(count))
	kmetrics.producerBytes.WithLabelValues(topic).Add(float64(bytes))
	kmetrics.producerLatency.WithLabelValues(topic).Observe(dur.Seconds())
}

func observeQueue(topic string, depth int) {
	if kmetrics != nil {
		kmetrics.consumerQueue.WithLabelValues(topic).Set(float64(depth))
	}
}

func observeHandle(topic string, dur time.Duration, outcome string) {
	if kmetrics == nil {
		return
	}
	kmetrics.consumerHandle.WithLabelValues(topic).Observe(dur.Seconds())
	kmetrics.consumerResults.WithLabelValues(topic, outcome).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
