// Package memory keeps draft notifications in process when no Pub/Sub topic
// is configured.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Message is one recorded notification, shaped like a Pub/Sub message.
type Message struct {
	ID         string
	Topic      string
	Data       []byte
	Attributes map[string]string
}

// Publisher records draft notifications per topic.
type Publisher struct {
	attributes map[string]string

	mu     sync.RWMutex
	log    []Message
	counts map[string]int
}

// New returns a Publisher. Attributes are attached to every message.
func New(attributes map[string]string) *Publisher {
	attrs := make(map[string]string, len(attributes))
	for k, v := range attributes {
		attrs[k] = v
	}
	return &Publisher{attributes: attrs, counts: make(map[string]int)}
}

// Publish encodes the payload as JSON and appends it to the topic. IDs are
// "<topic>-<n>" with n counting from one per topic.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	attrs := make(map[string]string, len(p.attributes)+1)
	for k, v := range p.attributes {
		attrs[k] = v
	}
	attrs["content_type"] = "application/json"

	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[topic]++
	id := fmt.Sprintf("%s-%d", topic, p.counts[topic])
	p.log = append(p.log, Message{ID: id, Topic: topic, Data: data, Attributes: attrs})
	return id, nil
}

// Messages returns every recorded message in publish order.
func (p *Publisher) Messages() []Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneMessages(p.log, "")
}

// Topic returns the messages published to one topic.
func (p *Publisher) Topic(name string) []Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneMessages(p.log, name)
}

// JobIDs decodes the job_id field of every message on topic. Messages
// without one are skipped.
func (p *Publisher) JobIDs(topic string) []string {
	var ids []string
	for _, m := range p.Topic(topic) {
		var evt struct {
			JobID string `json:"job_id"`
		}
		if err := json.Unmarshal(m.Data, &evt); err != nil || evt.JobID == "" {
			continue
		}
		ids = append(ids, evt.JobID)
	}
	return ids
}

func cloneMessages(in []Message, topic string) []Message {
	out := make([]Message, 0, len(in))
	for _, m := range in {
		if topic != "" && m.Topic != topic {
			continue
		}
		attrs := make(map[string]string, len(m.Attributes))
		for k, v := range m.Attributes {
			attrs[k] = v
		}
		m.Data = append([]byte(nil), m.Data...)
		m.Attributes = attrs
		out = append(out, m)
	}
	return out
}
