package webhooks

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Known inbound sources. The source selects the verification scheme and the
// event-type resolution rules.
const (
	SourcePolar  = "polar"
	SourceGitHub = "github"
)

// Signature and event headers.
const (
	HeaderPolarSignature  = "Polar-Signature"
	HeaderGitHubSignature = "X-Hub-Signature-256"
	HeaderGitHubEvent     = "X-GitHub-Event"
	HeaderGitHubDelivery  = "X-GitHub-Delivery"
	HeaderWebhookID       = "Webhook-Id"
)

// InboundRequest is one raw webhook delivery as received on the wire.
type InboundRequest struct {
	Source  string
	Body    []byte
	Headers map[string]string
}

func (r InboundRequest) Header(key string) string {
	for existing, value := range r.Headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// Event is the parsed envelope handlers receive. Type is the routing
// discriminator; Data stays untyped here and is decoded by the handler that
// owns the event.
type Event struct {
	Type string
	Data map[string]any
}

// ParseEvent decodes a Polar-style {type, data} envelope.
func ParseEvent(body []byte) (Event, error) {
	var envelope struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Event{}, fmt.Errorf("webhooks: parse event payload: %w", err)
	}
	if envelope.Data == nil {
		envelope.Data = map[string]any{}
	}
	return Event{
		Type: strings.TrimSpace(envelope.Type),
		Data: envelope.Data,
	}, nil
}

// ParseGitHubEvent folds the X-GitHub-Event header and the payload action
// into a dotted event type ("member.added") over the full payload body.
func ParseGitHubEvent(eventHeader string, body []byte) (Event, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return Event{}, fmt.Errorf("webhooks: parse github payload: %w", err)
	}
	eventType := strings.TrimSpace(eventHeader)
	if action, ok := payload["action"].(string); ok && strings.TrimSpace(action) != "" {
		eventType = eventType + "." + strings.TrimSpace(action)
	}
	return Event{Type: eventType, Data: payload}, nil
}
