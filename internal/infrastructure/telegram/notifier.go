package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsPortal/internal/domain"
	"NewsPortal/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier tells the editors' chat which articles just started trending.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	siteURL  string
	client   *http.Client
}

var _ ports.TrendingNotifier = (*Notifier)(nil)

// NewNotifier registers bot token, chat identifier and the public site URL
// used to build article links.
func NewNotifier(botToken, chatID, siteURL string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		siteURL:  strings.TrimRight(siteURL, "/"),
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// WithAPIBase points the notifier at another Bot API host.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	n.apiBase = strings.TrimRight(base, "/")
	return n
}

// NotifyTrending posts one message listing all newly trending articles.
func (n *Notifier) NotifyTrending(ctx context.Context, articles []domain.Article) error {
	if len(articles) == 0 {
		return nil
	}
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", n.message(articles))
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

func (n *Notifier) message(articles []domain.Article) string {
	var b strings.Builder
	b.WriteString("Now trending:\n")
	for _, a := range articles {
		fmt.Fprintf(&b, "\n- %s\n  %d views in 24h, score %.0f", a.Title, a.ViewsLast24h, a.TrendingScore)
		if n.siteURL != "" {
			fmt.Fprintf(&b, "\n  %s/articles/%s", n.siteURL, a.ID)
		}
	}
	return b.String()
}
