package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsPortal/internal/domain"
)

func TestNotifyTrendingPostsMessage(t *testing.T) {
	t.Parallel()

	var gotPath, gotChat, gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = r.ParseForm()
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewNotifier("token123", "-1001", "https://khabar.example.com/").WithAPIBase(server.URL)
	err := n.NotifyTrending(context.Background(), []domain.Article{
		{ID: "a1", Title: "बजेट सार्वजनिक", ViewsLast24h: 61, TrendingScore: 614},
	})
	require.NoError(t, err)

	assert.Equal(t, "/bottoken123/sendMessage", gotPath)
	assert.Equal(t, "-1001", gotChat)
	assert.Contains(t, gotText, "बजेट सार्वजनिक")
	assert.Contains(t, gotText, "61 views in 24h")
	assert.Contains(t, gotText, "https://khabar.example.com/articles/a1")
}

func TestNotifyTrendingErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	n := NewNotifier("token", "chat", "").WithAPIBase(server.URL)
	err := n.NotifyTrending(context.Background(), []domain.Article{{ID: "a1", Title: "x"}})
	assert.Error(t, err)
}

func TestNotifyTrendingMisconfigured(t *testing.T) {
	t.Parallel()

	n := NewNotifier("", "", "")
	assert.Error(t, n.NotifyTrending(context.Background(), []domain.Article{{ID: "a1"}}))
	assert.NoError(t, n.NotifyTrending(context.Background(), nil))
}
