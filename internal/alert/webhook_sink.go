package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSink posts alert messages to a shell-provided HTTP endpoint. Used
// when the websocket feed is down (app backgrounded) so the offer still
// reaches the device notification tray.
type WebhookSink struct {
	Endpoint string
	Client   *http.Client
}

func NewWebhookSink(endpoint string) *WebhookSink {
	return &WebhookSink{Endpoint: endpoint, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (w *WebhookSink) Push(msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	resp, err := w.Client.Post(w.Endpoint, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: http %s", resp.Status)
	}
	return nil
}
