// Package pubsub publishes draft notifications to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
)

// Publisher wraps a Pub/Sub client and caches one topic handle per name.
type Publisher struct {
	client     *pubsub.Client
	attributes map[string]string

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// New creates a Publisher. Attributes are attached to every message.
func New(client *pubsub.Client, attributes map[string]string) *Publisher {
	attrs := make(map[string]string, len(attributes))
	for k, v := range attributes {
		attrs[k] = v
	}
	return &Publisher{
		client:     client,
		attributes: attrs,
		topics:     make(map[string]*pubsub.Topic),
	}
}

// Publish marshals the payload to JSON and publishes it to topic, blocking
// until the server acknowledges it.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if p == nil || p.client == nil {
		return "", fmt.Errorf("pubsub publisher is not configured")
	}
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	msg := &pubsub.Message{Data: data, Attributes: make(map[string]string, len(p.attributes)+1)}
	for k, v := range p.attributes {
		msg.Attributes[k] = v
	}
	msg.Attributes["content_type"] = "application/json"

	id, err := p.topic(topic).Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Stop flushes and stops every cached topic.
func (p *Publisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for name, t := range p.topics {
		t.Stop()
		delete(p.topics, name)
	}
}

func (p *Publisher) topic(name string) *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.topics[name]
	if !ok {
		t = p.client.Topic(name)
		p.topics[name] = t
	}
	return t
}
