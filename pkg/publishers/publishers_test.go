package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: http
    enabled: true
    http:
      url: https://example.com/2
  - id: queue
    type: SQS
    sqs:
      uri: " https://sqs.us-east-1.amazonaws.com/1/outcomes "
      region: us-east-1
      endpoint: http://localhost:4566
  - id: topic
    type: pubsub
    pubsub:
      project_id: demo
      topic: outcomes
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 3 || enabled[0].ID != "http2" {
		t.Fatalf("expected http2, queue and topic enabled, got %#v", enabled)
	}

	queue, ok := reg.ByID("queue")
	if !ok || queue.Type != TypeSQS {
		t.Fatalf("expected sqs publisher, got %#v", queue)
	}
	if queue.SQS.QueueURL != "https://sqs.us-east-1.amazonaws.com/1/outcomes" || queue.SQS.Region != "us-east-1" || queue.SQS.Endpoint != "http://localhost:4566" {
		t.Fatalf("unexpected sqs config %#v", queue.SQS)
	}

	http2, _ := reg.ByID("http2")
	if http2.HTTP.Method != "POST" || http2.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("unexpected http defaults %#v", http2.HTTP)
	}
}

func TestPublisherConfigValidate(t *testing.T) {
	cases := map[string]PublisherConfig{
		"missing http":    {ID: "h1", Type: TypeHTTP},
		"missing sqs uri": {ID: "q1", Type: TypeSQS, SQS: &SQSPublisherConfig{AWSAccess: AWSAccess{Region: "us-east-1"}}},
		"missing region":  {ID: "s1", Type: TypeSNS, SNS: &SNSPublisherConfig{TopicARN: "arn:aws:sns:::t"}},
		"missing topic":   {ID: "p1", Type: TypePubSub, PubSub: &GCPQueueConfig{ProjectID: "demo"}},
		"unknown type":    {ID: "k1", Type: "kafka"},
	}
	for name, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	ok := PublisherConfig{ID: "s1", Type: TypeSNS, SNS: &SNSPublisherConfig{
		TopicARN:  "arn:aws:sns:us-east-1:1:t",
		AWSAccess: AWSAccess{Region: "us-east-1"},
	}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}
