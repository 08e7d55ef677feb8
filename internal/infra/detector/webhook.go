package detector

import (
	"iter"
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/ahrav/whisper/internal/domain/detection"
	"github.com/ahrav/whisper/pkg/common/logger"
)

var discordWebhook = regexp.MustCompile(
	`(?i)https://(?:canary\.|ptb\.)?discord(?:app)?\.com/api/webhooks/\d+/[A-Za-z0-9_-]+`,
)

func init() {
	Register("discord_webhook", func(p Params, _ *logger.Logger) (detection.Detector, error) {
		conf, err := p.Confidence(0.8)
		if err != nil {
			return nil, err
		}
		return NewDiscordWebhookDetector(conf), nil
	})
}

// DiscordWebhookDetector flags Discord webhook URLs, which carry their own
// bearer token in the path.
type DiscordWebhookDetector struct{ confidence float64 }

var _ detection.Detector = (*DiscordWebhookDetector)(nil)

// NewDiscordWebhookDetector returns a webhook detector.
func NewDiscordWebhookDetector(confidence float64) *DiscordWebhookDetector {
	return &DiscordWebhookDetector{confidence: confidence}
}

// Name implements detection.Detector.
func (d *DiscordWebhookDetector) Name() string { return "DiscordWebhook" }

// Detect implements detection.Detector.
func (d *DiscordWebhookDetector) Detect(content string) iter.Seq[detection.Candidate] {
	return func(yield func(detection.Candidate) bool) {
		for n, line := range lines(content) {
			for _, m := range discordWebhook.FindAllString(line, -1) {
				if !yield(detection.NewCandidate(m, d.confidence, d.Name(), "Discord Webhook URL", strings.TrimSpace(line), n)) {
					return
				}
			}
		}
	}
}
