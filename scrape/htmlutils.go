package scrape

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// findBySelector resolves a minimal CSS selector: #id, .class, or a bare
// tag name. Hosted note pages are simple enough that nothing richer is
// needed.
func findBySelector(doc *html.Node, selector string) (*html.Node, error) {
	switch {
	case strings.HasPrefix(selector, "#"):
		return findByAttr(doc, "id", strings.TrimPrefix(selector, "#"), false)
	case strings.HasPrefix(selector, "."):
		return findByAttr(doc, "class", strings.TrimPrefix(selector, "."), true)
	default:
		return findByTag(doc, selector)
	}
}

func findByAttr(n *html.Node, key, value string, contains bool) (*html.Node, error) {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key != key {
				continue
			}
			if attr.Val == value || (contains && strings.Contains(attr.Val, value)) {
				return n, nil
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result, err := findByAttr(c, key, value, contains); err == nil {
			return result, nil
		}
	}
	return nil, fmt.Errorf("element with %s '%s' not found", key, value)
}

func findByTag(n *html.Node, tag string) (*html.Node, error) {
	if n.Type == html.ElementNode && n.Data == tag {
		return n, nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result, err := findByTag(c, tag); err == nil {
			return result, nil
		}
	}
	return nil, fmt.Errorf("element with tag '%s' not found", tag)
}

// extractTitle returns the document's <title> text.
func extractTitle(doc *html.Node) string {
	node, err := findByTag(doc, "title")
	if err != nil || node.FirstChild == nil || node.FirstChild.Type != html.TextNode {
		return ""
	}
	return strings.TrimSpace(node.FirstChild.Data)
}

func metaContent(doc *html.Node, name string) string {
	var content string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if content != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" {
			var metaName, metaValue string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "name":
					metaName = attr.Val
				case "content":
					metaValue = attr.Val
				}
			}
			if metaName == name {
				content = metaValue
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return content
}

func extractMetaDescription(doc *html.Node) string {
	return metaContent(doc, "description")
}

func extractMetaKeywords(doc *html.Node) []string {
	raw := metaContent(doc, "keywords")
	if raw == "" {
		return nil
	}
	var keywords []string
	for _, kw := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(kw); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	return keywords
}
