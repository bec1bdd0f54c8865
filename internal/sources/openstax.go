package sources

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"

	"feedloom/internal/transport"
	"feedloom/internal/types"
	"feedloom/internal/utils"
)

const openStaxAPI = "https://openstax.org"

// OpenStax serves the "textbooks" provider. The subjects endpoint lists
// every subject with its books, so both modes issue the same request and
// differ only in selection.
type OpenStax struct {
	base
}

type openStaxSubject struct {
	Name  string         `json:"name"`
	Books []openStaxBook `json:"books"`
}

type openStaxBook struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	CoverURL    string `json:"cover_url"`
	Edition     string `json:"edition"`
	Language    string `json:"language"`
}

func NewOpenStax(t *transport.Transport, opts Options) *OpenStax {
	return &OpenStax{
		base: newBase(t, opts, "textbooks", types.CategoryTextbook, openStaxAPI, 10),
	}
}

func (o *OpenStax) Fetch(ctx context.Context, searchTerm string) ([]types.RawItem, error) {
	var resp struct {
		Items []openStaxSubject `json:"items"`
	}
	if err := o.getJSON(ctx, o.baseURL+"/api/v2/subjects", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch openstax subjects: %w", err)
	}

	subjects := utils.FilterArray(resp.Items, func(s openStaxSubject) bool {
		return len(s.Books) > 0
	})
	if len(subjects) == 0 {
		return []types.RawItem{}, nil
	}

	if term, ok := searching(searchTerm); ok {
		return o.matching(subjects, term), nil
	}

	subject := subjects[rand.IntN(len(subjects))]

	items := make([]types.RawItem, 0, len(subject.Books))
	for _, book := range utils.Take(subject.Books, o.maxItems) {
		items = append(items, o.textbook(subject.Name, book))
	}

	return items, nil
}

func (o *OpenStax) matching(subjects []openStaxSubject, term string) []types.RawItem {
	seen := make(map[int64]struct{})
	items := make([]types.RawItem, 0)

	for _, subject := range subjects {
		for _, book := range subject.Books {
			if _, dup := seen[book.ID]; dup {
				continue
			}
			if !utils.ContainsFold(term, book.Title, utils.StripHTML(book.Description), subject.Name) {
				continue
			}
			seen[book.ID] = struct{}{}
			items = append(items, o.textbook(subject.Name, book))
			if len(items) == o.maxItems {
				return items
			}
		}
	}

	return items
}

func (o *OpenStax) textbook(subject string, book openStaxBook) types.RawItem {
	description := utils.StripHTML(book.Description)
	if description == "" {
		description = "Open textbook"
	}

	item := o.raw(strconv.FormatInt(book.ID, 10))
	item.Title = book.Title
	item.Excerpt = subject + " - " + description
	item.ThumbnailURL = book.CoverURL
	item.CanonicalURL = o.baseURL + "/details/" + book.Slug
	item.Metadata = map[string]interface{}{
		"subject":  subject,
		"edition":  book.Edition,
		"language": book.Language,
	}
	return item
}
