package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"feedloom/internal/config"
	"feedloom/internal/transport"
	"feedloom/internal/types"
	"feedloom/internal/utils"
)

const githubAPI = "https://api.github.com"

var defaultGitHubTopics = []string{"machine-learning", "web-development", "data-science", "mobile-apps"}

// GitHub serves repositories from the search API. Repository descriptions
// are often a single line, so the provider is excerpt-exempt unless the
// config says otherwise.
type GitHub struct {
	base
	token          string
	topics         []string
	discoverStars  int
	searchMinStars int
}

type githubRepo struct {
	ID              int64    `json:"id"`
	FullName        string   `json:"full_name"`
	Description     string   `json:"description"`
	HTMLURL         string   `json:"html_url"`
	StargazersCount int      `json:"stargazers_count"`
	ForksCount      int      `json:"forks_count"`
	Language        string   `json:"language"`
	Topics          []string `json:"topics"`
	Owner           struct {
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
	} `json:"owner"`
}

func NewGitHub(t *transport.Transport, opts Options) *GitHub {
	if opts.ExcerptExempt == nil {
		opts.ExcerptExempt = boolPtr(true)
	}

	topics := config.GetStringSlice(opts.Settings, "topics")
	if len(topics) == 0 {
		topics = defaultGitHubTopics
	}

	return &GitHub{
		base:           newBase(t, opts, "github", types.CategoryRepository, githubAPI, 10),
		token:          opts.Token,
		topics:         topics,
		discoverStars:  config.GetInt(opts.Settings, "min_stars", 1000),
		searchMinStars: config.GetInt(opts.Settings, "search_min_stars", 100),
	}
}

func (g *GitHub) Fetch(ctx context.Context, searchTerm string) ([]types.RawItem, error) {
	var query string
	if term, ok := searching(searchTerm); ok {
		query = fmt.Sprintf("%s stars:>%d", term, g.searchMinStars)
	} else {
		query = fmt.Sprintf("topic:%s stars:>%d", pick(g.topics), g.discoverStars)
	}

	params := url.Values{
		"q":        {query},
		"sort":     {"stars"},
		"order":    {"desc"},
		"per_page": {strconv.Itoa(g.maxItems)},
	}

	headers := http.Header{"Accept": {"application/vnd.github.v3+json"}}
	if g.token != "" {
		headers.Set("Authorization", "token "+g.token)
	}

	var resp struct {
		Items []githubRepo `json:"items"`
	}
	if err := g.getJSON(ctx, g.baseURL+"/search/repositories?"+params.Encode(), headers, &resp); err != nil {
		return nil, fmt.Errorf("failed to search repositories: %w", err)
	}

	items := make([]types.RawItem, 0, len(resp.Items))
	for _, repo := range utils.Take(resp.Items, g.maxItems) {
		item := g.raw(strconv.FormatInt(repo.ID, 10))
		item.Title = repo.FullName
		item.Excerpt = repo.Description
		item.ThumbnailURL = repo.Owner.AvatarURL
		item.CanonicalURL = repo.HTMLURL
		item.Metadata = map[string]interface{}{
			"stars":    repo.StargazersCount,
			"forks":    repo.ForksCount,
			"language": repo.Language,
			"topics":   repo.Topics,
			"owner":    repo.Owner.Login,
		}

		items = append(items, item)
	}

	return items, nil
}
