package schema

import (
	"context"
	"fmt"

	"github.com/hamba/avro/v2"
	"github.com/twmb/franz-go/pkg/sr"
)

// A SchemaIdentifier resolves the registry ID of a schema under a subject.
type SchemaIdentifier interface {
	DetermineID(ctx context.Context, subject, avroSchemaText string) (int, error)
}

// SchemaCreater registers schemas in a schema registry.
// Registering an already known schema returns its existing ID.
type SchemaCreater struct {
	cl *sr.Client
}

func NewSchemaCreater(cl *sr.Client) SchemaCreater {
	return SchemaCreater{cl}
}

func (c SchemaCreater) DetermineID(
	ctx context.Context, subject, avroSchemaText string,
) (int, error) {
	const op = "SchemaCreater.DetermineID"

	ss, err := c.cl.CreateSchema(ctx, subject, sr.Schema{
		Schema: avroSchemaText,
		Type:   sr.TypeAvro,
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return ss.ID, nil
}

// IssueEventV1Avro panics on an invalid schema text.
func IssueEventV1Avro() avro.Schema {
	return avro.MustParse(IssueEventSchemaTextV1)
}

func RunSummaryV1Avro() avro.Schema {
	return avro.MustParse(RunSummarySchemaTextV1)
}
