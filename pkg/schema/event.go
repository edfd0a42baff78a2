package schema

import "time"

const IssueEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "catalog.audit",
	"name": "issue_event",
	"fields": [
		{"name": "run_id", "type": "string"},
		{"name": "product_id", "type": "long"},
		{"name": "product_title", "type": "string"},
		{"name": "product_handle", "type": "string"},
		{"name": "detected_at", "type": {"type": "long", "logicalType": "timestamp-millis"}},
		{"name": "issues", "type": {"type": "array", "items": {
			"type": "record",
			"name": "issue",
			"fields": [
				{"name": "category", "type": "string"},
				{"name": "description", "type": "string"},
				{"name": "detail", "type": "string"}
			]
		}}}
	]
}`

const RunSummarySchemaTextV1 = `{
	"type": "record",
	"namespace": "catalog.audit",
	"name": "run_summary",
	"fields": [
		{"name": "run_id", "type": "string"},
		{"name": "status", "type": "string"},
		{"name": "error", "type": "string"},
		{"name": "started_at", "type": {"type": "long", "logicalType": "timestamp-millis"}},
		{"name": "finished_at", "type": {"type": "long", "logicalType": "timestamp-millis"}},
		{"name": "scanned", "type": "int"},
		{"name": "products_with_issues", "type": "int"},
		{"name": "total_issues", "type": "int"},
		{"name": "counts", "type": {"type": "map", "values": "int"}}
	]
}`

type (
	// IssueEventV1 carries the issues of one product found by one run.
	IssueEventV1 struct {
		RunID         string    `avro:"run_id"`
		ProductID     int64     `avro:"product_id"`
		ProductTitle  string    `avro:"product_title"`
		ProductHandle string    `avro:"product_handle"`
		DetectedAt    time.Time `avro:"detected_at"`
		Issues        []IssueV1 `avro:"issues"`
	}

	IssueV1 struct {
		Category    string `avro:"category"`
		Description string `avro:"description"`
		Detail      string `avro:"detail"`
	}
)

type RunSummaryV1 struct {
	RunID              string         `avro:"run_id"`
	Status             string         `avro:"status"`
	Error              string         `avro:"error"`
	StartedAt          time.Time      `avro:"started_at"`
	FinishedAt         time.Time      `avro:"finished_at"`
	Scanned            int            `avro:"scanned"`
	ProductsWithIssues int            `avro:"products_with_issues"`
	TotalIssues        int            `avro:"total_issues"`
	Counts             map[string]int `avro:"counts"`
}
