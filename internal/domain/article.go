package domain

import "time"

// Article is a published news item together with its view counters and scores.
type Article struct {
	ID          string
	Title       string
	Body        string
	Excerpt     string
	Image       string
	Categories  []string
	PublishedAt time.Time

	Views        int64
	ViewsLast24h int64
	ViewsLast7d  int64

	TrendingScore   float64
	PopularScore    float64
	IsTrending      bool
	LastScoreUpdate time.Time
}

// HasCategory reports whether the article is tagged with category.
func (a Article) HasCategory(category string) bool {
	for _, c := range a.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Draft is the editor input for publishing a new article.
type Draft struct {
	Title      string
	Body       string
	Image      string
	Categories []string
}

// ScoreUpdate carries the fields the scoring pass writes back onto an article.
// A nil counter pointer leaves the stored value untouched.
type ScoreUpdate struct {
	ViewsLast24h    *int64
	ViewsLast7d     *int64
	TrendingScore   float64
	PopularScore    float64
	IsTrending      bool
	LastScoreUpdate time.Time
}

// Apply copies the update onto article.
func (u ScoreUpdate) Apply(article *Article) {
	if u.ViewsLast24h != nil {
		article.ViewsLast24h = *u.ViewsLast24h
	}
	if u.ViewsLast7d != nil {
		article.ViewsLast7d = *u.ViewsLast7d
	}
	article.TrendingScore = u.TrendingScore
	article.PopularScore = u.PopularScore
	article.IsTrending = u.IsTrending
	article.LastScoreUpdate = u.LastScoreUpdate
}

// ViewResult is returned by the view recorder.
type ViewResult struct {
	Counted       bool
	Views         int64
	ViewsLast24h  int64
	TrendingScore float64
}

// BatchResult summarises one scoring pass.
type BatchResult struct {
	Window  Window
	Updated int
	Failed  int
}

// SortOrder selects the ordering of a category listing.
type SortOrder string

const (
	SortLatest   SortOrder = "latest"
	SortTrending SortOrder = "trending"
	SortPopular  SortOrder = "popular"
)

// ParseSortOrder maps query input to a SortOrder, defaulting to latest.
func ParseSortOrder(value string) (SortOrder, error) {
	switch SortOrder(value) {
	case "", SortLatest:
		return SortLatest, nil
	case SortTrending:
		return SortTrending, nil
	case SortPopular:
		return SortPopular, nil
	default:
		return "", ErrInvalidArgument
	}
}
