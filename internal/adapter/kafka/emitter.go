package kafka

import (
	"context"
	"crypto/tls"
	"log/slog"

	"github.com/lovoo/goka"
	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/niksmo/catalog-audit/pkg/schema"
)

// A runSummaryCodec used for serde [schema.RunSummaryV1]
type runSummaryCodec struct {
	serde Serde
}

func newRunSummaryCodec(s Serde) runSummaryCodec {
	return runSummaryCodec{s}
}

func (c runSummaryCodec) Encode(v any) ([]byte, error) {
	const op = "runSummaryCodec.Encode"
	if _, ok := v.(schema.RunSummaryV1); !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return c.serde.Encode(v)
}

func (c runSummaryCodec) Decode(data []byte) (any, error) {
	const op = "runSummaryCodec.Decode"
	var s schema.RunSummaryV1
	if err := c.serde.Decode(data, &s); err != nil {
		return nil, opErr(err, op)
	}
	return s, nil
}

// A SummaryEmitter emits one [schema.RunSummaryV1] per completed run,
// keyed by the run ID.
type SummaryEmitter struct {
	ge       *goka.Emitter
	opPrefix string
}

type EmitterConfig struct {
	SeedBrokers []string
	Topic       string
	Serde       Serde

	// TLS is optional.
	TLS *tls.Config
}

// NewSummaryEmitter creates the emitter. Extra options go after
// the ones derived from cfg, so tests can swap the producer builder.
func NewSummaryEmitter(
	cfg EmitterConfig, extra ...goka.EmitterOption,
) (SummaryEmitter, error) {
	const op = "NewSummaryEmitter"

	var opts []goka.EmitterOption
	if cfg.TLS != nil {
		sc := goka.DefaultConfig()
		sc.Net.TLS.Enable = true
		sc.Net.TLS.Config = cfg.TLS
		opts = append(opts,
			goka.WithEmitterProducerBuilder(goka.ProducerBuilderWithConfig(sc)))
	}
	opts = append(opts, extra...)

	ge, err := goka.NewEmitter(
		cfg.SeedBrokers,
		goka.Stream(cfg.Topic),
		newRunSummaryCodec(cfg.Serde),
		opts...,
	)
	if err != nil {
		return SummaryEmitter{}, opErr(err, op)
	}
	return SummaryEmitter{ge: ge, opPrefix: "SummaryEmitter"}, nil
}

func (e SummaryEmitter) EmitSummary(
	ctx context.Context, r domain.Report,
) error {
	const op = "EmitSummary"

	if err := ctx.Err(); err != nil {
		return opErr(err, e.opPrefix, op)
	}

	if err := e.ge.EmitSync(r.RunID, runSummaryToSchemaV1(r)); err != nil {
		return opErr(err, e.opPrefix, op)
	}
	return nil
}

func (e SummaryEmitter) Close() {
	const op = "Close"
	log := slog.With("op", makeOp(e.opPrefix, op))

	log.Info("closing emitter...")
	if err := e.ge.Finish(); err != nil {
		log.Error("failed to finish gracefully", "err", err)
		return
	}
	log.Info("emitter is closed")
}
