package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/niksmo/catalog-audit/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var (
	ErrTooFewOpts       = errors.New("too few options")
	ErrInvalidValueType = errors.New("invalid value type")
)

type ProducerOpt func(*producerOpts) error

type producerOpts struct {
	cl      ProducerClient
	encoder Encoder
}

// ProducerClientOpt dials the seed brokers and pings them.
// tlsCfg may be nil for plaintext listeners.
func ProducerClientOpt(
	ctx context.Context, seedBrokers []string, topic string, tlsCfg *tls.Config,
) ProducerOpt {
	return func(opts *producerOpts) error {
		kopts := []kgo.Opt{
			kgo.SeedBrokers(seedBrokers...),
			kgo.DefaultProduceTopicAlways(),
			kgo.DefaultProduceTopic(topic),
			kgo.RequiredAcks(kgo.AllISRAcks()),
		}
		if tlsCfg != nil {
			kopts = append(kopts, kgo.DialTLSConfig(tlsCfg))
		}

		cl, err := kgo.NewClient(kopts...)
		if err != nil {
			return err
		}

		if err := cl.Ping(ctx); err != nil {
			cl.Close()
			return err
		}
		opts.cl = cl
		return nil
	}
}

// ProducerClientInstanceOpt uses an already built client.
func ProducerClientInstanceOpt(cl ProducerClient) ProducerOpt {
	return func(opts *producerOpts) error {
		if cl == nil {
			return errors.New("client is nil")
		}
		opts.cl = cl
		return nil
	}
}

func ProducerEncoderOpt(encoder Encoder) ProducerOpt {
	return func(opts *producerOpts) error {
		if encoder == nil {
			return errors.New("encoder is nil")
		}
		opts.encoder = encoder
		return nil
	}
}

type ProducerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

type Encoder interface {
	Encode(v any) ([]byte, error)
}

type Decoder interface {
	Decode(b []byte, v any) error
}

type Serde interface {
	Encoder
	Decoder
}

func makeOp(s ...string) string {
	return strings.Join(s, ".")
}

func opErr(err error, op ...string) error {
	return fmt.Errorf("%s: %w", makeOp(op...), err)
}

func issueEventToSchemaV1(
	r domain.Report, e domain.ProductIssues,
) (s schema.IssueEventV1) {
	s.RunID = r.RunID
	s.ProductID = e.ProductID
	s.ProductTitle = e.Title
	s.ProductHandle = e.Handle
	s.DetectedAt = r.FinishedAt

	s.Issues = make([]schema.IssueV1, len(e.Issues))
	for i, issue := range e.Issues {
		s.Issues[i].Category = string(issue.Category)
		s.Issues[i].Description = issue.Description
		s.Issues[i].Detail = issue.Detail
	}
	return
}

func runSummaryToSchemaV1(r domain.Report) (s schema.RunSummaryV1) {
	s.RunID = r.RunID
	s.Status = string(r.Status)
	s.Error = r.Error
	s.StartedAt = r.StartedAt
	s.FinishedAt = r.FinishedAt
	s.Scanned = r.Scanned
	s.ProductsWithIssues = r.ProductsWithIssues()
	s.TotalIssues = r.TotalIssues()

	s.Counts = make(map[string]int, len(domain.Categories))
	for _, c := range r.Summary() {
		s.Counts[string(c.Category)] = c.Count
	}
	return
}
