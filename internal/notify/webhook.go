package notify

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gracehq/chms/internal/config"
	"github.com/gracehq/chms/internal/domain"
	"github.com/gracehq/chms/internal/logger"
)

// WebhookNotifier posts terminal export-job events to a configured URL.
// Delivery is best-effort: a failed POST is logged and never feeds back
// into the job's state.
type WebhookNotifier struct {
	client  *resty.Client
	url     string
	enabled bool
	logger  *logger.Logger
}

// NewWebhookNotifier creates a webhook notifier from configuration. A
// disabled or URL-less configuration yields a no-op notifier.
func NewWebhookNotifier(cfg *config.WebhookConfig, log *logger.Logger) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second)

	return &WebhookNotifier{
		client:  client,
		url:     cfg.URL,
		enabled: cfg.Enabled && cfg.URL != "",
		logger:  log,
	}
}

type jobEvent struct {
	JobID       string     `json:"job_id"`
	Status      string     `json:"status"`
	FileName    string     `json:"file_name"`
	FileSize    int64      `json:"file_size,omitempty"`
	TotalItems  int        `json:"total_items"`
	Error       string     `json:"error,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JobFinished delivers the terminal job snapshot to the webhook URL.
func (n *WebhookNotifier) JobFinished(ctx context.Context, job domain.ExportJob) {
	if !n.enabled {
		return
	}

	event := jobEvent{
		JobID:       job.ID,
		Status:      string(job.Status),
		FileName:    job.FileName,
		FileSize:    job.FileSize,
		TotalItems:  job.TotalItems,
		Error:       job.Error,
		CompletedAt: job.CompletedAt,
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(n.url)
	if err != nil {
		n.logger.WithField(logger.FieldJobID, job.ID).WithError(err).Warn("Failed to deliver export webhook")
		return
	}
	if resp.IsError() {
		n.logger.WithFields(logger.Fields{
			logger.FieldJobID:  job.ID,
			logger.FieldStatus: resp.StatusCode(),
		}).Warn("Export webhook returned error status")
	}
}
