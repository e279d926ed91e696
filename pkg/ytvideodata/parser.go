package ytvideodata

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

func (f *Fetcher) getFromPage(ctx context.Context, videoID string) (*VideoData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.pageURL+videoID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrVideoNotFound
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(strings.TrimSuffix(getTitle(doc), "- YouTube"))
	if title == "" {
		return nil, ErrVideoNotFound
	}

	return &VideoData{
		Title:        title,
		ThumbnailURL: fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", videoID),
		AuthorName:   getLinkContent(doc),
	}, nil
}

func getTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild == nil {
			return ""
		}
		return n.FirstChild.Data
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := getTitle(c); title != "" {
			return title
		}
	}
	return ""
}

// getLinkContent finds the channel name in <link itemprop="name" content="...">.
func getLinkContent(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "link" {
		var isName bool
		var content string
		for _, attr := range n.Attr {
			switch {
			case attr.Key == "itemprop" && attr.Val == "name":
				isName = true
			case attr.Key == "content":
				content = attr.Val
			}
		}
		if isName {
			return content
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if content := getLinkContent(c); content != "" {
			return content
		}
	}
	return ""
}
