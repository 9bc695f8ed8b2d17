package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/brandpulse/brandpulse-bot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// YouTubeSource pulls video descriptions and comment threads that mention
// tracked keywords via the YouTube Data API
type YouTubeSource struct {
	apiKey  string
	client  *resty.Client
	limiter *rate.Limiter
}

type youTubeSearchResponse struct {
	Items []youTubeVideo `json:"items"`
}

type youTubeVideo struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		ChannelTitle string `json:"channelTitle"`
		PublishedAt  string `json:"publishedAt"`
	} `json:"snippet"`
}

type youTubeCommentsResponse struct {
	Items []youTubeComment `json:"items"`
}

type youTubeComment struct {
	ID      string `json:"id"`
	Snippet struct {
		TotalReplyCount int `json:"totalReplyCount"`
		TopLevelComment struct {
			Snippet struct {
				TextDisplay       string `json:"textDisplay"`
				AuthorDisplayName string `json:"authorDisplayName"`
				PublishedAt       string `json:"publishedAt"`
				LikeCount         int    `json:"likeCount"`
			} `json:"snippet"`
		} `json:"topLevelComment"`
	} `json:"snippet"`
}

// NewYouTubeSource creates a new YouTube source
func NewYouTubeSource(apiKey string, ratePerMin int, timeout time.Duration) *YouTubeSource {
	return &YouTubeSource{
		apiKey: apiKey,
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", "BrandPulse-Bot/1.0"),
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerMin)/60.0), 5),
	}
}

func (y *YouTubeSource) GetName() string {
	return "youtube"
}

func (y *YouTubeSource) IsEnabled() bool {
	return y.apiKey != ""
}

func (y *YouTubeSource) FetchMentions(ctx context.Context, keywords []string, since time.Duration) ([]models.RawMention, error) {
	if !y.IsEnabled() {
		logrus.Debug("YouTube source disabled - missing API key")
		return nil, nil
	}

	var allMentions []models.RawMention

	for _, keyword := range keywords {
		videos, err := y.searchVideos(ctx, keyword, since)
		if err != nil {
			logrus.Errorf("Failed to search YouTube videos for keyword '%s': %v", keyword, err)
			continue
		}

		// Comment threads carry the actual opinions; the video hit itself
		// only tells us where to look
		for _, video := range videos {
			comments, err := y.getVideoComments(ctx, video, keyword)
			if err != nil {
				logrus.Errorf("Failed to get comments for video %s: %v", video.ID.VideoID, err)
				continue
			}
			allMentions = append(allMentions, comments...)
		}
	}

	return deduplicateMentions(allMentions), nil
}

func (y *YouTubeSource) searchVideos(ctx context.Context, keyword string, since time.Duration) ([]youTubeVideo, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	publishedAfter := time.Now().Add(-since).Format(time.RFC3339)
	query := url.QueryEscape(keyword)

	searchURL := fmt.Sprintf("https://www.googleapis.com/youtube/v3/search?part=snippet&q=%s&type=video&publishedAfter=%s&maxResults=25&key=%s",
		query, publishedAfter, y.apiKey)

	resp, err := y.client.R().
		SetContext(ctx).
		Get(searchURL)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("youtube API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var searchResp youTubeSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse YouTube response: %w", err)
	}

	var videos []youTubeVideo
	for _, video := range searchResp.Items {
		content := strings.ToLower(video.Snippet.Title + " " + video.Snippet.Description)
		if strings.Contains(content, strings.ToLower(keyword)) {
			videos = append(videos, video)
		}
	}

	return videos, nil
}

func (y *YouTubeSource) getVideoComments(ctx context.Context, video youTubeVideo, keyword string) ([]models.RawMention, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	commentsURL := fmt.Sprintf("https://www.googleapis.com/youtube/v3/commentThreads?part=snippet&videoId=%s&maxResults=100&key=%s",
		video.ID.VideoID, y.apiKey)

	resp, err := y.client.R().
		SetContext(ctx).
		Get(commentsURL)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		// Comments might be disabled, skip this video
		if resp.StatusCode() == 403 {
			return nil, nil
		}
		return nil, fmt.Errorf("youtube comments API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var commentsResp youTubeCommentsResponse
	if err := json.Unmarshal(resp.Body(), &commentsResp); err != nil {
		return nil, fmt.Errorf("failed to parse YouTube comments response: %w", err)
	}

	var mentions []models.RawMention

	for _, comment := range commentsResp.Items {
		snippet := comment.Snippet.TopLevelComment.Snippet

		if !strings.Contains(strings.ToLower(snippet.TextDisplay), strings.ToLower(keyword)) {
			continue
		}

		publishedAt, err := time.Parse(time.RFC3339, snippet.PublishedAt)
		if err != nil {
			logrus.Errorf("Failed to parse YouTube comment timestamp: %v", err)
			continue
		}

		mentions = append(mentions, models.RawMention{
			ID:        fmt.Sprintf("youtube_comment_%s", comment.ID),
			Source:    "youtube",
			Platform:  "YouTube Comments",
			Title:     video.Snippet.Title,
			Content:   snippet.TextDisplay,
			Author:    snippet.AuthorDisplayName,
			URL:       fmt.Sprintf("https://www.youtube.com/watch?v=%s&lc=%s", video.ID.VideoID, comment.ID),
			CreatedAt: publishedAt,
			Likes:     snippet.LikeCount,
			Replies:   comment.Snippet.TotalReplyCount,
			Keywords:  []string{keyword},
		})
	}

	return mentions, nil
}
