package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hamba/avro/v2"
	"github.com/lovoo/goka"
	"github.com/lovoo/goka/tester"
	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/niksmo/catalog-audit/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type MockProducerClient struct {
	mock.Mock
}

func (m *MockProducerClient) ProduceSync(
	ctx context.Context, rs ...*kgo.Record,
) kgo.ProduceResults {
	args := m.Called(ctx, rs)
	return args.Get(0).(kgo.ProduceResults)
}

func (m *MockProducerClient) Close() {
	m.Called()
}

// avroSerde encodes without the registry wire header.
type avroSerde struct {
	schema avro.Schema
}

func (s avroSerde) Encode(v any) ([]byte, error) {
	return avro.Marshal(s.schema, v)
}

func (s avroSerde) Decode(data []byte, v any) error {
	return avro.Unmarshal(s.schema, data, v)
}

func testReport() domain.Report {
	return domain.Report{
		RunID:      "run-1",
		Status:     domain.RunCompleted,
		StartedAt:  time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 10, 15, 9, 1, 0, 0, time.UTC),
		Scanned:    10,
		Entries: []domain.ProductIssues{
			{ProductID: 7, Title: "YOKUMOKU Cigare", Handle: "yokumoku-cigare", Issues: []domain.Issue{
				{Category: domain.CategoryMetafield, Description: "link metafield is missing"},
			}},
			{ProductID: 9, Title: "Plain box", Handle: "plain-box", Issues: []domain.Issue{
				{Category: domain.CategorySalesSetting, Description: "product is a draft"},
				{Category: domain.CategoryTagLanguage, Description: "tag contains Japanese kana", Detail: "tag: ギフト"},
			}},
		},
		Counts: map[domain.Category]int{
			domain.CategoryMetafield:    1,
			domain.CategorySalesSetting: 1,
			domain.CategoryTagLanguage:  1,
		},
	}
}

func TestIssuesProducer(t *testing.T) {
	serde := avroSerde{schema.IssueEventV1Avro()}

	newProducer := func(t *testing.T, cl *MockProducerClient) IssuesProducer {
		t.Helper()
		p, err := NewIssuesProducer(
			ProducerClientInstanceOpt(cl),
			ProducerEncoderOpt(serde),
		)
		require.NoError(t, err)
		return p
	}

	t.Run("OneRecordPerProduct", func(t *testing.T) {
		cl := new(MockProducerClient)
		var sent []*kgo.Record
		cl.On("ProduceSync", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				sent = args.Get(1).([]*kgo.Record)
			}).
			Return(kgo.ProduceResults{})

		err := newProducer(t, cl).ProduceIssues(t.Context(), testReport())
		require.NoError(t, err)
		require.Len(t, sent, 2)

		assert.Equal(t, "7", string(sent[0].Key))
		assert.Equal(t, "9", string(sent[1].Key))
		assert.Equal(t, "run-1", string(sent[1].Headers[0].Value))

		var event schema.IssueEventV1
		require.NoError(t, serde.Decode(sent[1].Value, &event))
		assert.Equal(t, "plain-box", event.ProductHandle)
		require.Len(t, event.Issues, 2)
		assert.Equal(t, "TAG_LANGUAGE", event.Issues[1].Category)
		assert.True(t, testReport().FinishedAt.Equal(event.DetectedAt))
	})

	t.Run("CleanReport", func(t *testing.T) {
		cl := new(MockProducerClient)
		r := testReport()
		r.Entries = nil

		require.NoError(t, newProducer(t, cl).ProduceIssues(t.Context(), r))
		cl.AssertNotCalled(t, "ProduceSync", mock.Anything, mock.Anything)
	})

	t.Run("BrokerError", func(t *testing.T) {
		cl := new(MockProducerClient)
		brokerErr := errors.New("not enough replicas")
		cl.On("ProduceSync", mock.Anything, mock.Anything).
			Return(kgo.ProduceResults{{Err: brokerErr}})

		err := newProducer(t, cl).ProduceIssues(t.Context(), testReport())
		assert.ErrorIs(t, err, brokerErr)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		cl := new(MockProducerClient)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		err := newProducer(t, cl).ProduceIssues(ctx, testReport())
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Close", func(t *testing.T) {
		cl := new(MockProducerClient)
		cl.On("Close").Return()
		newProducer(t, cl).Close()
		cl.AssertExpectations(t)
	})

	t.Run("TooFewOpts", func(t *testing.T) {
		assert.Panics(t, func() {
			_, _ = NewIssuesProducer(ProducerEncoderOpt(serde))
		})
	})
}

func TestSummaryEmitter(t *testing.T) {
	gkt := tester.New(t)
	topic := "catalog-audit-runs"

	e, err := NewSummaryEmitter(EmitterConfig{
		Topic: topic,
		Serde: avroSerde{schema.RunSummaryV1Avro()},
	}, goka.WithEmitterTester(gkt))
	require.NoError(t, err)

	tracker := gkt.NewQueueTracker(topic)

	require.NoError(t, e.EmitSummary(t.Context(), testReport()))

	key, value, ok := tracker.Next()
	require.True(t, ok)
	assert.Equal(t, "run-1", key)

	summary, ok := value.(schema.RunSummaryV1)
	require.True(t, ok)
	assert.Equal(t, 10, summary.Scanned)
	assert.Equal(t, 2, summary.ProductsWithIssues)
	assert.Equal(t, 3, summary.TotalIssues)
	assert.Len(t, summary.Counts, len(domain.Categories))
	assert.Equal(t, 0, summary.Counts["REQUIRED_FIELD"])

	_, _, ok = tracker.Next()
	assert.False(t, ok)
}

func TestRunSummaryCodec(t *testing.T) {
	c := newRunSummaryCodec(avroSerde{schema.RunSummaryV1Avro()})
	_, err := c.Encode("not a summary")
	assert.ErrorIs(t, err, ErrInvalidValueType)
}

type fakeIssues struct {
	err    error
	calls  int
	closed bool
}

func (f *fakeIssues) ProduceIssues(context.Context, domain.Report) error {
	f.calls++
	return f.err
}

func (f *fakeIssues) Close() { f.closed = true }

type fakeSummaries struct {
	err    error
	calls  int
	closed bool
}

func (f *fakeSummaries) EmitSummary(context.Context, domain.Report) error {
	f.calls++
	return f.err
}

func (f *fakeSummaries) Close() { f.closed = true }

func TestPublisher(t *testing.T) {
	t.Run("Both", func(t *testing.T) {
		issues, summaries := new(fakeIssues), new(fakeSummaries)
		p := NewPublisher(issues, summaries)

		require.NoError(t, p.PublishReport(t.Context(), testReport()))
		assert.Equal(t, 1, issues.calls)
		assert.Equal(t, 1, summaries.calls)

		p.Close()
		assert.True(t, issues.closed)
		assert.True(t, summaries.closed)
	})

	t.Run("SummaryAfterIssuesFail", func(t *testing.T) {
		issuesErr := errors.New("issues topic unavailable")
		issues, summaries := &fakeIssues{err: issuesErr}, new(fakeSummaries)

		err := NewPublisher(issues, summaries).PublishReport(t.Context(), testReport())
		assert.ErrorIs(t, err, issuesErr)
		assert.Equal(t, 1, summaries.calls)
	})
}
