// Package pubsub publishes domain events to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/rentalz-backend/pkg/config"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopic           = errors.New("pubsub domain events topic is required")
	errClosed            = errors.New("pubsub client is closed")
)

// Client owns one long-lived publisher for the domain events topic.
// Publishers batch in the background, so they are created once and stopped
// on Close rather than per message.
type Client struct {
	client *pubsub.Client
	topic  string

	mu        sync.Mutex
	publisher *pubsub.Publisher
}

// NewClient connects and verifies the domain events topic exists. It does not
// create topics; those are provisioned with the rest of the infrastructure.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	if !cfg.Enabled() {
		return nil, errNoTopic
	}

	inner, err := pubsub.NewClient(ctx, project, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	c := &Client{client: inner, topic: TopicName(project, cfg.DomainEventsTopic)}
	if err := c.Ping(ctx); err != nil {
		_ = inner.Close()
		return nil, err
	}
	c.publisher = inner.Publisher(c.topic)

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", c.topic), "pubsub.connected")
	}
	return c, nil
}

// PublishDomainEvent publishes one message and waits for the server ack.
func (c *Client) PublishDomainEvent(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	c.mu.Lock()
	publisher := c.publisher
	c.mu.Unlock()
	if publisher == nil {
		return "", errClosed
	}
	id, err := publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", c.topic, err)
	}
	return id, nil
}

// Ping checks the topic is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	switch {
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("topic %s does not exist", c.topic)
	case err != nil:
		return fmt.Errorf("get topic %s: %w", c.topic, err)
	}
	return nil
}

// Close flushes pending messages and releases the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	publisher := c.publisher
	c.publisher = nil
	c.mu.Unlock()
	if publisher != nil {
		publisher.Stop()
	}
	return c.client.Close()
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.CredentialsFile) != "":
		return []option.ClientOption{option.WithCredentialsFile(strings.TrimSpace(gcp.CredentialsFile))}
	}
	return nil
}

// TopicName expands a bare topic id into its resource name. Full resource
// names pass through unchanged.
func TopicName(project, topic string) string {
	topic = strings.TrimSpace(topic)
	if strings.HasPrefix(topic, "projects/") {
		return topic
	}
	return "projects/" + project + "/topics/" + topic
}
