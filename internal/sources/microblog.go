package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/brandpulse/brandpulse-bot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// MicroblogSource searches the X/Twitter recent-search API for keyword
// mentions. The API is aggressively rate limited; a 429 degrades to empty
// results so the other sources are never blocked behind it.
type MicroblogSource struct {
	bearerToken string
	client      *resty.Client
	limiter     *rate.Limiter
}

type microblogSearchResponse struct {
	Data []microblogPost `json:"data"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

type microblogPost struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	AuthorID      string `json:"author_id"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		RetweetCount int `json:"retweet_count"`
		LikeCount    int `json:"like_count"`
		ReplyCount   int `json:"reply_count"`
	} `json:"public_metrics"`
	ReferencedTweets []struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"referenced_tweets"`
}

// NewMicroblogSource creates a new microblog source
func NewMicroblogSource(bearerToken string, ratePerMin int, timeout time.Duration) *MicroblogSource {
	return &MicroblogSource{
		bearerToken: bearerToken,
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", "BrandPulse-Bot/1.0"),
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerMin)/60.0), 3),
	}
}

func (m *MicroblogSource) GetName() string {
	return "microblog"
}

func (m *MicroblogSource) IsEnabled() bool {
	return m.bearerToken != ""
}

func (m *MicroblogSource) FetchMentions(ctx context.Context, keywords []string, since time.Duration) ([]models.RawMention, error) {
	if !m.IsEnabled() {
		logrus.Debug("Microblog source disabled - missing bearer token")
		return nil, nil
	}

	var allMentions []models.RawMention

	for _, keyword := range keywords {
		mentions, err := m.searchKeyword(ctx, keyword, since)
		if err != nil {
			logrus.Errorf("Failed to search microblog for keyword '%s': %v", keyword, err)
			continue
		}

		logrus.Infof("Found %d microblog mentions for keyword '%s'", len(mentions), keyword)
		allMentions = append(allMentions, mentions...)
	}

	return deduplicateMentions(allMentions), nil
}

func (m *MicroblogSource) searchKeyword(ctx context.Context, keyword string, since time.Duration) ([]models.RawMention, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	startTime := time.Now().Add(-since).Format(time.RFC3339)
	query := url.QueryEscape(fmt.Sprintf(`"%s" -is:retweet lang:en`, keyword))

	searchURL := fmt.Sprintf("https://api.twitter.com/2/tweets/search/recent?query=%s&start_time=%s&max_results=100&tweet.fields=created_at,author_id,public_metrics,referenced_tweets",
		query, startTime)

	resp, err := m.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+m.bearerToken).
		Get(searchURL)

	if err != nil {
		return nil, err
	}

	// Rate limited: return empty instead of waiting so the other sources
	// can still deliver this run
	if resp.StatusCode() == 429 {
		logrus.Warnf("Microblog API rate limit hit for keyword '%s' - skipping", keyword)
		return []models.RawMention{}, nil
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("microblog API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var searchResp microblogSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse microblog response: %w", err)
	}

	var mentions []models.RawMention

	for _, post := range searchResp.Data {
		if m.isRepost(post) {
			continue
		}

		createdAt, err := time.Parse(time.RFC3339, post.CreatedAt)
		if err != nil {
			logrus.Errorf("Failed to parse microblog timestamp: %v", err)
			continue
		}

		mentions = append(mentions, models.RawMention{
			ID:        fmt.Sprintf("microblog_%s", post.ID),
			Source:    "microblog",
			Platform:  "X.com (Twitter)",
			Content:   post.Text,
			Author:    post.AuthorID,
			URL:       fmt.Sprintf("https://twitter.com/i/status/%s", post.ID),
			CreatedAt: createdAt,
			Likes:     post.PublicMetrics.LikeCount,
			Replies:   post.PublicMetrics.ReplyCount,
			Reposts:   post.PublicMetrics.RetweetCount,
			Keywords:  []string{keyword},
		})
	}

	return mentions, nil
}

func (m *MicroblogSource) isRepost(post microblogPost) bool {
	for _, ref := range post.ReferencedTweets {
		if ref.Type == "retweeted" {
			return true
		}
	}
	return false
}
