package schema_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/niksmo/catalog-audit/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSchemaIdentifier struct {
	mock.Mock
}

func (c *MockSchemaIdentifier) DetermineID(
	ctx context.Context, subject string, avroSchemaText string,
) (id int, err error) {
	args := c.Called(ctx, subject, avroSchemaText)
	return args.Int(0), args.Error(1)
}

func TestSerdeIssueEventV1(t *testing.T) {
	subject := "catalog-audit-issues-value"

	t.Run("NoOpts", func(t *testing.T) {
		_, err := schema.NewSerdeIssueEventV1(t.Context())
		assert.ErrorIs(t, err, schema.ErrTooFewOpts)
	})

	t.Run("OneOpt", func(t *testing.T) {
		_, err := schema.NewSerdeIssueEventV1(
			t.Context(),
			schema.SchemaIdentifierOpt(new(MockSchemaIdentifier)),
		)
		assert.ErrorIs(t, err, schema.ErrTooFewOpts)
	})

	t.Run("RegistryError", func(t *testing.T) {
		identifier := new(MockSchemaIdentifier)
		regErr := errors.New("registry unavailable")
		identifier.On("DetermineID", t.Context(), subject, schema.IssueEventSchemaTextV1).
			Return(0, regErr)

		_, err := schema.NewSerdeIssueEventV1(
			t.Context(),
			schema.SubjectOpt(subject),
			schema.SchemaIdentifierOpt(identifier),
		)
		assert.ErrorIs(t, err, regErr)
	})

	t.Run("EncodeDecode", func(t *testing.T) {
		identifier := new(MockSchemaIdentifier)
		identifier.On("DetermineID", t.Context(), subject, schema.IssueEventSchemaTextV1).
			Return(7, nil)

		serde, err := schema.NewSerdeIssueEventV1(
			t.Context(),
			schema.SubjectOpt(subject),
			schema.SchemaIdentifierOpt(identifier),
		)
		require.NoError(t, err)

		in := schema.IssueEventV1{
			RunID:         "run-1",
			ProductID:     8_123_456_789,
			ProductTitle:  "YOKUMOKU クッキー",
			ProductHandle: "yokumoku-cookie",
			DetectedAt:    time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
			Issues: []schema.IssueV1{
				{Category: "TRANSLATION", Description: "title contains Japanese kana", Detail: "title: クッキー"},
			},
		}

		data, err := serde.Encode(in)
		require.NoError(t, err)
		require.Greater(t, len(data), 5)
		assert.Equal(t, byte(0), data[0], "registry magic byte")

		var out schema.IssueEventV1
		require.NoError(t, serde.Decode(data, &out))
		assert.Equal(t, in.RunID, out.RunID)
		assert.Equal(t, in.ProductID, out.ProductID)
		assert.Equal(t, in.ProductTitle, out.ProductTitle)
		assert.True(t, in.DetectedAt.Equal(out.DetectedAt))
		assert.Equal(t, in.Issues, out.Issues)
	})
}

func TestSerdeRunSummaryV1(t *testing.T) {
	subject := "catalog-audit-runs-value"
	identifier := new(MockSchemaIdentifier)
	identifier.On("DetermineID", t.Context(), subject, schema.RunSummarySchemaTextV1).
		Return(3, nil)

	serde, err := schema.NewSerdeRunSummaryV1(
		t.Context(),
		schema.SubjectOpt(subject),
		schema.SchemaIdentifierOpt(identifier),
	)
	require.NoError(t, err)

	in := schema.RunSummaryV1{
		RunID:              "run-1",
		Status:             "completed",
		StartedAt:          time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
		FinishedAt:         time.Date(2026, 10, 15, 9, 1, 0, 0, time.UTC),
		Scanned:            120,
		ProductsWithIssues: 4,
		TotalIssues:        9,
		Counts:             map[string]int{"METAFIELD": 4, "TAG_LANGUAGE": 5},
	}

	data, err := serde.Encode(in)
	require.NoError(t, err)

	var out schema.RunSummaryV1
	require.NoError(t, serde.Decode(data, &out))
	assert.Equal(t, in.Scanned, out.Scanned)
	assert.Equal(t, in.Counts, out.Counts)
	assert.True(t, in.FinishedAt.Equal(out.FinishedAt))
}
