package rss

import (
	"encoding/xml"
	"fmt"
	"strings"

	"feedloom/internal/utils"
)

type opmlDocument struct {
	XMLName  xml.Name      `xml:"opml"`
	Outlines []opmlOutline `xml:"body>outline"`
}

type opmlOutline struct {
	Title    string        `xml:"title,attr"`
	Text     string        `xml:"text,attr"`
	XMLURL   string        `xml:"xmlUrl,attr"`
	Children []opmlOutline `xml:"outline"`
}

// ParseOPML flattens the outline tree into the feeds it subscribes to, in
// document order. Folder outlines without xmlUrl only contribute children.
func ParseOPML(data []byte) ([]Feed, error) {
	var doc opmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse OPML: %w", err)
	}
	return flatten(nil, doc.Outlines), nil
}

func flatten(feeds []Feed, outlines []opmlOutline) []Feed {
	for _, o := range outlines {
		if o.XMLURL != "" {
			label := o.Title
			if label == "" {
				label = o.Text
			}
			feeds = append(feeds, Feed{URL: o.XMLURL, Name: feedName(label, o.XMLURL)})
		}
		feeds = flatten(feeds, o.Children)
	}
	return feeds
}

// feedName is the slug of the label, or of the URL without its scheme.
func feedName(label, url string) string {
	if strings.TrimSpace(label) != "" {
		return utils.Slugify(label)
	}
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	return utils.Slugify(url)
}
