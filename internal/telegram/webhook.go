package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mymmrac/telego"

	"bantrap/internal/logger"
)

var allowedUpdates = []string{"message"}

// webhookSecret is the configured secret token, or one derived from the bot
// token when none is set.
func webhookSecret(token, configured string) string {
	if configured != "" {
		return configured
	}
	if len(token) < 6 {
		return "secure_webhook_token_" + token
	}
	return "secure_webhook_token_" + token[len(token)-6:]
}

// webhookPath is the local route for the public endpoint URL.
func webhookPath(endpoint string) (string, error) {
	parsedURL, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	path := parsedURL.Path
	if path == "" {
		path = "/webhook"
		logger.Infof("No path specified in webhook endpoint, using default path: %s", path)
	}
	return path, nil
}

// SetupWebhook registers the webhook with Telegram and mounts the receiver on mux.
func SetupWebhook(ctx context.Context, bot *telego.Bot, mux *http.ServeMux, endpoint, secretToken string, tls bool) (<-chan telego.Update, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("webhook endpoint is required")
	}
	if mux == nil {
		return nil, fmt.Errorf("webhook mode requires the HTTP server to be enabled")
	}
	if !tls && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("HTTPS configuration required: set cert_file and key_file in config or use a HTTPS proxy")
	}

	path, err := webhookPath(endpoint)
	if err != nil {
		return nil, err
	}

	logger.Infof("Setting webhook to: %s", endpoint)
	err = bot.SetWebhook(ctx, &telego.SetWebhookParams{
		URL:            endpoint,
		AllowedUpdates: allowedUpdates,
		SecretToken:    secretToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook: %w", err)
	}

	webhookInfo, err := bot.GetWebhookInfo(ctx)
	if err != nil {
		logger.Warningf("Failed to get webhook info: %v", err)
	} else {
		logger.Infof("Webhook info: URL=%s, HasCustomCert=%v, PendingUpdateCount=%d",
			webhookInfo.URL, webhookInfo.HasCustomCertificate, webhookInfo.PendingUpdateCount)
		if webhookInfo.LastErrorDate > 0 {
			logger.Infof("Webhook last error: [%d] %s", webhookInfo.LastErrorDate, webhookInfo.LastErrorMessage)
		}
	}

	updates, err := bot.UpdatesViaWebhook(ctx, telego.WebhookHTTPServeMux(mux, path, secretToken))
	if err != nil {
		return nil, fmt.Errorf("failed to get updates channel: %w", err)
	}
	return updates, nil
}
