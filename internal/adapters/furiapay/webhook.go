package furiapay

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/petbox/petbox-payments/internal/core/domain"
)

// webhookSchema requires the fields dispatch cannot work without: the event,
// the transaction and its id (the idempotence key). Everything else is
// optional so new gateway fields never break delivery.
const webhookSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["event", "transaction"],
  "properties": {
    "event": { "type": "string", "minLength": 1 },
    "transaction": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": { "type": ["string", "integer"], "minLength": 1 }
      }
    },
    "timestamp": { "type": ["string", "integer"] }
  }
}`

var webhookSchemaLoader = gojsonschema.NewStringLoader(webhookSchema)

type wireWebhook struct {
	Event       string          `json:"event"`
	Transaction wireTransaction `json:"transaction"`
	Timestamp   flexString      `json:"timestamp"`
}

// ParseWebhook validates a raw delivery and decodes it. Any shape problem
// is reported as domain.ErrMalformedWebhook.
func ParseWebhook(body []byte) (*domain.WebhookEvent, error) {
	result, err := gojsonschema.Validate(webhookSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, domain.NewServiceError(domain.ErrMalformedWebhook, "body is not valid JSON", domain.KindMalformedWebhook)
	}
	if !result.Valid() {
		var sb strings.Builder
		for i, e := range result.Errors() {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(e.String())
		}
		return nil, domain.NewServiceError(domain.ErrMalformedWebhook, sb.String(), domain.KindMalformedWebhook)
	}

	var w wireWebhook
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, domain.NewServiceError(domain.ErrMalformedWebhook, err.Error(), domain.KindMalformedWebhook)
	}

	return &domain.WebhookEvent{
		Event:       w.Event,
		Transaction: *w.Transaction.toDomain(),
		Timestamp:   string(w.Timestamp),
	}, nil
}
