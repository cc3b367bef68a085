package repository

import (
	"context"
	"time"

	"LPPLWatch/internal/domain/models"
	domrepo "LPPLWatch/internal/domain/repository"
	pkgkafka "LPPLWatch/pkg/kafka"
	"LPPLWatch/pkg/util"
)

// ClusterEvent is the wire form of one detected signal cluster.
type ClusterEvent struct {
	RunID          string  `json:"run_id"`
	Symbol         string  `json:"symbol"`
	RunDate        string  `json:"run_date"`
	Label          string  `json:"label"`
	Start          string  `json:"start"`
	End            string  `json:"end"`
	Days           int     `json:"days"`
	PeakConfidence float64 `json:"peak_confidence"`
	CriticalTime   string  `json:"critical_time,omitempty"`
	Latest         bool    `json:"latest"`
}

type producer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaSignalPublisher emits one event per cluster keyed by symbol, and
// doubles as the error digest sink.
type KafkaSignalPublisher struct {
	producer producer
	topic    string
}

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)

func NewKafkaSignalPublisher(p *pkgkafka.Producer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: p, topic: topic}
}

func (p *KafkaSignalPublisher) PublishClusters(ctx context.Context, out *models.InstrumentOutcome) error {
	events := clusterEvents(out)
	if len(events) == 0 {
		return nil
	}
	key := []byte(out.Symbol)
	msgs := make([]pkgkafka.Message, len(events))
	for i, e := range events {
		msgs[i] = pkgkafka.Message{Key: key, Value: e}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// PublishMessage implements logger.Publisher.
func (p *KafkaSignalPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, []byte(time.Now().UTC().Format(time.RFC3339)), payload)
}

func (p *KafkaSignalPublisher) Close() error {
	return p.producer.Close()
}

func clusterEvents(out *models.InstrumentOutcome) []ClusterEvent {
	ct := ""
	if out.CriticalTime.Converged {
		ct = util.FormatDay(out.CriticalTime.Date)
	}
	events := make([]ClusterEvent, 0, len(out.Clusters))
	for i, c := range out.Clusters {
		events = append(events, ClusterEvent{
			RunID:          out.RunID.String(),
			Symbol:         out.Symbol,
			RunDate:        util.FormatDay(out.RunDate),
			Label:          string(c.Label),
			Start:          util.FormatDay(c.Start),
			End:            util.FormatDay(c.End),
			Days:           c.Days(),
			PeakConfidence: c.PeakConfidence,
			CriticalTime:   ct,
			Latest:         i == 0,
		})
	}
	return events
}
