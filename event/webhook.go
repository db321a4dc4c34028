package event

import (
	"context"
	"net/http"

	httpclient "github.com/randalmurphal/codeflow/http"
)

// =============================================================================
// WebhookNotifier
// =============================================================================

// WebhookNotifier posts events to a generic HTTP webhook as JSON, retrying
// transient failures.
type WebhookNotifier struct {
	client *httpclient.Client
}

// NewWebhookNotifier creates a webhook notifier for the given URL. Extra
// headers (auth tokens and the like) are applied to every request.
func NewWebhookNotifier(url string, headers map[string]string) *WebhookNotifier {
	return &WebhookNotifier{
		client: httpclient.NewClient(httpclient.ClientConfig{
			BaseURL:     url,
			ServiceName: "webhook",
			BeforeRequest: func(req *http.Request) {
				for k, v := range headers {
					req.Header.Set(k, v)
				}
			},
		}),
	}
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	return n.client.Post(ctx, "", event, nil)
}
