package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"BreakoutScan/internal/domain/models"
	apphttp "BreakoutScan/pkg/http"
	"BreakoutScan/pkg/logger"

	"github.com/shopspring/decimal"
)

const (
	colorAlert   = 5814783
	colorSummary = 3447003
	footerText   = "Early Breakout Scanner"
)

var detectorLabels = map[string]string{
	models.DetectorVolumeDryUp:        "Volume Dry-Up",
	models.DetectorMomentumDivergence: "Divergences",
	models.DetectorRelativeStrength:   "Rel. Strength",
}

// WebhookConfig configures a Discord-compatible webhook.
type WebhookConfig struct {
	URL      string
	Username string
	// MaxFields caps alert fields per embed; Discord rejects more than 25.
	MaxFields int
}

// Webhook implements repository.Notifier by posting Discord embeds.
type Webhook struct {
	cfg  WebhookConfig
	http *apphttp.Client
	log  *logger.Logger
	now  func() time.Time
}

func NewWebhook(cfg WebhookConfig, client *apphttp.Client, l *logger.Logger) *Webhook {
	if cfg.MaxFields <= 0 || cfg.MaxFields > 25 {
		cfg.MaxFields = 10
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Webhook{cfg: cfg, http: client, log: l, now: time.Now}
}

func (w *Webhook) Name() string { return "webhook" }

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp"`
	Fields      []embedField `json:"fields"`
	Footer      embedFooter  `json:"footer"`
}

type payload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds"`
}

// Notify posts the alert embed (when there are alerts) followed by the run
// summary. An empty URL disables delivery.
func (w *Webhook) Notify(ctx context.Context, run *models.ScanRun, alerts []models.ScanResult) error {
	if w.cfg.URL == "" {
		w.log.Info("webhook not configured, skipping notification")
		return nil
	}

	if len(alerts) > 0 {
		if err := w.post(ctx, w.alertEmbed(run, alerts)); err != nil {
			return fmt.Errorf("webhook alerts: %w", err)
		}
		w.log.Info("webhook alert sent", logger.Int("alerts", len(alerts)))
	}

	if err := w.post(ctx, w.summaryEmbed(run, len(alerts))); err != nil {
		return fmt.Errorf("webhook summary: %w", err)
	}
	return nil
}

func (w *Webhook) post(ctx context.Context, e embed) error {
	return w.http.SendAndParse(ctx, &apphttp.RequestOptions{
		Method:  apphttp.MethodPost,
		URL:     w.cfg.URL,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload{Username: w.cfg.Username, Embeds: []embed{e}},
	}, nil)
}

func (w *Webhook) alertEmbed(run *models.ScanRun, alerts []models.ScanResult) embed {
	shown := alerts
	if len(shown) > w.cfg.MaxFields {
		shown = shown[:w.cfg.MaxFields]
	}

	fields := make([]embedField, 0, len(shown))
	for _, a := range shown {
		fields = append(fields, embedField{
			Name:   a.Ticker,
			Value:  alertFieldValue(a),
			Inline: true,
		})
	}

	desc := fmt.Sprintf("Found **%d** stocks meeting criteria (%d+ signals)", len(alerts), run.AlertThreshold)
	if len(alerts) > len(shown) {
		desc += fmt.Sprintf(", showing top %d", len(shown))
	}

	return embed{
		Title:       "Early Breakout Scanner Alert",
		Description: desc,
		Color:       colorAlert,
		Timestamp:   w.now().UTC().Format(time.RFC3339),
		Fields:      fields,
		Footer:      w.footer(),
	}
}

func alertFieldValue(r models.ScanResult) string {
	var b strings.Builder
	for _, s := range r.Signals() {
		if s.Triggered {
			fmt.Fprintf(&b, "+ %s (%d)\n", detectorLabels[s.Detector], s.Score)
		}
	}
	fmt.Fprintf(&b, "**Total Score:** %d/30\n", r.TotalScore)
	fmt.Fprintf(&b, "**Signals:** %d/3\n", r.SignalsMet)
	fmt.Fprintf(&b, "**Level:** %s\n", r.AlertLevel)
	fmt.Fprintf(&b, "**Price:** $%s", decimal.NewFromFloat(r.CurrentPrice).StringFixed(2))
	return b.String()
}

func (w *Webhook) summaryEmbed(run *models.ScanRun, alerts int) embed {
	title := "Scan Complete"
	if run.Cancelled {
		title = "Scan Cancelled (partial results)"
	}
	return embed{
		Title:     title,
		Color:     colorSummary,
		Timestamp: w.now().UTC().Format(time.RFC3339),
		Fields: []embedField{
			{Name: "Stocks Scanned", Value: fmt.Sprint(run.Scanned), Inline: true},
			{Name: "Alerts Generated", Value: fmt.Sprint(alerts), Inline: true},
			{Name: "Skipped", Value: fmt.Sprint(len(run.Skipped)), Inline: true},
			{Name: "Scan Duration", Value: fmt.Sprintf("%.1fs", run.Duration().Seconds()), Inline: true},
		},
		Footer: w.footer(),
	}
}

func (w *Webhook) footer() embedFooter {
	return embedFooter{Text: fmt.Sprintf("%s • %s", footerText, w.now().Format("2006-01-02 15:04:05"))}
}
