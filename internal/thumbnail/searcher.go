package thumbnail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"feedloom/internal/transport"
	"feedloom/internal/types"
)

// Searcher finds an image for an item. An empty URL with a nil error means
// the lookup ran and found nothing.
type Searcher interface {
	Name() string
	Search(ctx context.Context, item types.ContentItem) (string, error)
}

const (
	wikimediaAPI = "https://en.wikipedia.org/w/api.php"
	unsplashAPI  = "https://api.unsplash.com"
)

// WikimediaSearcher looks up the page image of the best MediaWiki search hit
// for the item title.
type WikimediaSearcher struct {
	transport *transport.Transport
	apiURL    string
}

func NewWikimediaSearcher(t *transport.Transport, apiURL string) *WikimediaSearcher {
	if apiURL == "" {
		apiURL = wikimediaAPI
	}
	return &WikimediaSearcher{transport: t, apiURL: apiURL}
}

func (w *WikimediaSearcher) Name() string {
	return "wikimedia"
}

// wikimediaHints narrow the search toward pages about the kind of thing the
// item is. Articles need none.
var wikimediaHints = map[types.Category]string{
	types.CategoryBook:          "book",
	types.CategoryTextbook:      "textbook",
	types.CategoryResearchPaper: "research",
	types.CategoryRepository:    "software",
}

// Search tries the title with its category hint first and falls back to the
// bare title when the hinted query finds no image.
func (w *WikimediaSearcher) Search(ctx context.Context, item types.ContentItem) (string, error) {
	if hint := wikimediaHints[item.Category]; hint != "" {
		src, err := w.search(ctx, item.Title+" "+hint)
		if err != nil || src != "" {
			return src, err
		}
	}
	return w.search(ctx, item.Title)
}

func (w *WikimediaSearcher) search(ctx context.Context, term string) (string, error) {
	params := url.Values{
		"action":       {"query"},
		"format":       {"json"},
		"generator":    {"search"},
		"gsrsearch":    {term},
		"gsrnamespace": {"0"},
		"gsrlimit":     {"3"},
		"prop":         {"pageimages"},
		"piprop":       {"thumbnail"},
		"pithumbsize":  {"500"},
		"origin":       {"*"},
	}

	resp, err := w.transport.Get(ctx, "wikimedia", w.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	var body struct {
		Query *struct {
			Pages map[string]struct {
				Index     int `json:"index"`
				Thumbnail *struct {
					Source string `json:"source"`
				} `json:"thumbnail"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", types.NewParseError("wikimedia", "json", err)
	}
	if body.Query == nil {
		return "", nil
	}

	type hit struct {
		index int
		src   string
	}
	var hits []hit
	for _, page := range body.Query.Pages {
		if page.Thumbnail != nil && page.Thumbnail.Source != "" {
			hits = append(hits, hit{page.Index, page.Thumbnail.Source})
		}
	}
	if len(hits) == 0 {
		return "", nil
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].index < hits[j].index })
	return hits[0].src, nil
}

// UnsplashSearcher queries the Unsplash photo search with the item title
// and category.
type UnsplashSearcher struct {
	transport *transport.Transport
	apiURL    string
	accessKey string
}

func NewUnsplashSearcher(t *transport.Transport, apiURL, accessKey string) *UnsplashSearcher {
	if apiURL == "" {
		apiURL = unsplashAPI
	}
	return &UnsplashSearcher{transport: t, apiURL: strings.TrimRight(apiURL, "/"), accessKey: accessKey}
}

func (u *UnsplashSearcher) Name() string {
	return "unsplash"
}

func (u *UnsplashSearcher) Search(ctx context.Context, item types.ContentItem) (string, error) {
	params := url.Values{
		"query":    {item.Title + " " + strings.ReplaceAll(string(item.Category), "_", " ")},
		"per_page": {"1"},
	}
	headers := http.Header{
		"Authorization":  {"Client-ID " + u.accessKey},
		"Accept-Version": {"v1"},
	}

	resp, err := u.transport.Get(ctx, "unsplash", u.apiURL+"/search/photos?"+params.Encode(), headers)
	if err != nil {
		return "", err
	}

	var body struct {
		Results []struct {
			URLs struct {
				Regular string `json:"regular"`
				Small   string `json:"small"`
			} `json:"urls"`
		} `json:"results"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", types.NewParseError("unsplash", "json", err)
	}
	if len(body.Results) == 0 {
		return "", nil
	}

	if body.Results[0].URLs.Regular != "" {
		return body.Results[0].URLs.Regular, nil
	}
	return body.Results[0].URLs.Small, nil
}

// OpenGraphSearcher reads og:image (or twitter:image) from the item's own
// page.
type OpenGraphSearcher struct {
	transport *transport.Transport
}

func NewOpenGraphSearcher(t *transport.Transport) *OpenGraphSearcher {
	return &OpenGraphSearcher{transport: t}
}

func (o *OpenGraphSearcher) Name() string {
	return "opengraph"
}

func (o *OpenGraphSearcher) Search(ctx context.Context, item types.ContentItem) (string, error) {
	page, err := url.Parse(item.CanonicalURL)
	if err != nil || (page.Scheme != "http" && page.Scheme != "https") {
		return "", errors.New("canonical url is not an http page")
	}

	resp, err := o.transport.Get(ctx, "opengraph", page.String(), http.Header{"Accept": {"text/html"}})
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return "", types.NewParseError("opengraph", "html", err)
	}

	for _, name := range []string{"og:image", "og:image:url", "twitter:image"} {
		selector := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, name, name)
		content, ok := doc.Find(selector).First().Attr("content")
		if !ok || strings.TrimSpace(content) == "" {
			continue
		}

		ref, err := url.Parse(strings.TrimSpace(content))
		if err != nil {
			continue
		}
		return page.ResolveReference(ref).String(), nil
	}

	return "", nil
}
