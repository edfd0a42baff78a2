package kafka

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/niksmo/catalog-audit/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

// A producer is used for composition.
//
// Producing records to kafka broker and closing underlying [kgo.Client].
type producer struct {
	opPrefix string
	cl       ProducerClient
}

func (p producer) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))
	log.Info("closing producer...")
	p.cl.Close()
	log.Info("producer is closed")
}

func (p producer) produce(
	ctx context.Context, rs ...*kgo.Record,
) error {
	const op = "produce"
	res := p.cl.ProduceSync(ctx, rs...)
	if err := res.FirstErr(); err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return nil
}

// An IssuesProducer writes one [schema.IssueEventV1] per flagged product,
// keyed by the product ID so events of a product stay in one partition.
type IssuesProducer struct {
	producer producer
	encoder  Encoder
	opPrefix string
}

func NewIssuesProducer(
	opts ...ProducerOpt,
) (IssuesProducer, error) {
	const op = "NewIssuesProducer"

	if len(opts) != 2 {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return IssuesProducer{}, opErr(err, op)
		}
	}

	opPrefix := "IssuesProducer"
	p := producer{
		opPrefix: opPrefix,
		cl:       options.cl,
	}

	return IssuesProducer{
		producer: p,
		encoder:  options.encoder,
		opPrefix: opPrefix,
	}, nil
}

func (p IssuesProducer) Close() {
	p.producer.close()
}

// ProduceIssues is a no-op for a report without entries.
func (p IssuesProducer) ProduceIssues(
	ctx context.Context, r domain.Report,
) error {
	const op = "ProduceIssues"

	if err := ctx.Err(); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	if len(r.Entries) == 0 {
		return nil
	}

	rs, err := p.createRecords(r)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}

	if err := p.producer.produce(ctx, rs...); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	return nil
}

func (p IssuesProducer) createRecords(
	r domain.Report,
) ([]*kgo.Record, error) {
	const op = "createRecords"

	rs := make([]*kgo.Record, 0, len(r.Entries))
	for _, e := range r.Entries {
		s := p.toSchema(r, e)
		b, err := p.encoder.Encode(s)
		if err != nil {
			return nil, opErr(err, p.opPrefix, op)
		}
		msgKey := strconv.AppendInt(nil, s.ProductID, 10)
		rs = append(rs, &kgo.Record{
			Key:   msgKey,
			Value: b,
			Headers: []kgo.RecordHeader{
				{Key: "run-id", Value: []byte(r.RunID)},
			},
		})
	}
	return rs, nil
}

func (IssuesProducer) toSchema(
	r domain.Report, e domain.ProductIssues,
) schema.IssueEventV1 {
	return issueEventToSchemaV1(r, e)
}
