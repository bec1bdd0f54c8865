package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"feedloom/internal/config"
	"feedloom/internal/transport"
	"feedloom/internal/types"
	"feedloom/internal/utils"
)

const (
	openLibraryAPI    = "https://openlibrary.org"
	openLibraryCovers = "https://covers.openlibrary.org/b/id/%d-L.jpg"
)

var defaultBookSubjects = []string{"science", "programming", "technology", "fiction"}

// OpenLibrary serves the "books" provider. Discover browses a random
// subject; search uses the full-text search endpoint.
type OpenLibrary struct {
	base
	subjects  []string
	coversURL string
}

type openLibraryWork struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
		Key  string `json:"key"`
	} `json:"authors"`
	CoverID          int64    `json:"cover_id"`
	FirstPublishYear int      `json:"first_publish_year"`
	Subject          []string `json:"subject"`
}

type openLibraryDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	CoverI           int64    `json:"cover_i"`
	FirstPublishYear int      `json:"first_publish_year"`
	Subject          []string `json:"subject"`
}

func NewOpenLibrary(t *transport.Transport, opts Options) *OpenLibrary {
	subjects := config.GetStringSlice(opts.Settings, "subjects")
	if len(subjects) == 0 {
		subjects = defaultBookSubjects
	}

	return &OpenLibrary{
		base:      newBase(t, opts, "books", types.CategoryBook, openLibraryAPI, 10),
		subjects:  subjects,
		coversURL: config.GetString(opts.Settings, "covers_url", openLibraryCovers),
	}
}

func (o *OpenLibrary) Fetch(ctx context.Context, searchTerm string) ([]types.RawItem, error) {
	if term, ok := searching(searchTerm); ok {
		return o.search(ctx, term)
	}
	return o.discover(ctx)
}

func (o *OpenLibrary) discover(ctx context.Context) ([]types.RawItem, error) {
	subject := pick(o.subjects)
	endpoint := fmt.Sprintf("%s/subjects/%s.json?limit=%d", o.baseURL, url.PathEscape(subject), o.maxItems)

	var resp struct {
		Works []openLibraryWork `json:"works"`
	}
	if err := o.getJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch subject %s: %w", subject, err)
	}

	items := make([]types.RawItem, 0, len(resp.Works))
	for _, work := range utils.Take(resp.Works, o.maxItems) {
		authors := make([]string, 0, len(work.Authors))
		for _, a := range work.Authors {
			authors = append(authors, a.Name)
		}

		item := o.book(work.Key, work.Title, authors, work.CoverID, work.FirstPublishYear, work.Subject)
		item.Metadata["browse_subject"] = subject
		items = append(items, item)
	}

	return items, nil
}

func (o *OpenLibrary) search(ctx context.Context, term string) ([]types.RawItem, error) {
	params := url.Values{
		"q":     {term},
		"limit": {strconv.Itoa(o.maxItems)},
	}

	var resp struct {
		Docs []openLibraryDoc `json:"docs"`
	}
	if err := o.getJSON(ctx, o.baseURL+"/search.json?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}

	items := make([]types.RawItem, 0, len(resp.Docs))
	for _, doc := range utils.Take(resp.Docs, o.maxItems) {
		items = append(items, o.book(doc.Key, doc.Title, doc.AuthorName, doc.CoverI, doc.FirstPublishYear, doc.Subject))
	}

	return items, nil
}

func (o *OpenLibrary) book(key, title string, authors []string, coverID int64, year int, subjects []string) types.RawItem {
	item := o.raw(key)
	item.Title = title
	item.Excerpt = describeBook(authors, year, subjects)
	item.CanonicalURL = o.baseURL + key
	if coverID > 0 {
		item.ThumbnailURL = fmt.Sprintf(o.coversURL, coverID)
	}
	item.Metadata = map[string]interface{}{
		"authors":            authors,
		"first_publish_year": year,
		"subjects":           utils.Take(subjects, 10),
	}
	return item
}

// describeBook builds a readable excerpt, since OpenLibrary listings carry
// no description.
func describeBook(authors []string, year int, subjects []string) string {
	var parts []string

	if len(authors) > 0 {
		parts = append(parts, "By "+strings.Join(utils.Take(authors, 3), ", ")+".")
	}
	if year > 0 {
		parts = append(parts, fmt.Sprintf("First published in %d.", year))
	}
	if len(subjects) > 0 {
		parts = append(parts, "Subjects: "+strings.Join(utils.Take(subjects, 5), ", ")+".")
	}

	return strings.Join(parts, " ")
}
