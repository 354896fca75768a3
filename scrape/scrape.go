// Package scrape fetches externally hosted pages and converts them to
// markdown: notes bundles that carry a URL instead of inline content, and
// source-page previews for library documents.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// PageSummary is the metadata extracted from a fetched page.
type PageSummary struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// contentSelectors are tried in order when the caller does not name one.
var contentSelectors = []string{"main", "article", "#content", ".content", "body"}

// FetchNote downloads a hosted note page and returns its main content as
// markdown.
func FetchNote(ctx context.Context, client *http.Client, url string) (string, error) {
	_, markdown, err := Fetch(ctx, client, url, "")
	return markdown, err
}

// Fetch downloads a page, extracts the node matching selector (or the first
// plausible content region when selector is empty) and converts it to
// markdown alongside the page's metadata summary.
func Fetch(ctx context.Context, client *http.Client, url, selector string) (*PageSummary, string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("page request failed with status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	summary := &PageSummary{
		URL:         url,
		Title:       extractTitle(doc),
		Description: extractMetaDescription(doc),
		Keywords:    extractMetaKeywords(doc),
	}

	node, err := selectContent(doc, selector)
	if err != nil {
		return nil, "", err
	}
	markdown, err := htmltomarkdown.ConvertNode(node)
	if err != nil {
		return nil, "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return summary, string(markdown), nil
}

func selectContent(doc *html.Node, selector string) (*html.Node, error) {
	if selector != "" {
		node, err := findBySelector(doc, selector)
		if err != nil {
			return nil, fmt.Errorf("failed to extract node with selector '%s': %w", selector, err)
		}
		return node, nil
	}
	for _, candidate := range contentSelectors {
		if node, err := findBySelector(doc, candidate); err == nil {
			return node, nil
		}
	}
	return doc, nil
}
