// Package parser extracts the visible text, in-scope links and title from
// HTML documents.
package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/masahif/politecrawl/internal/urlscope"
)

// NoTitle is returned when a document has no usable <title> element.
const NoTitle = "No title"

// Page holds everything extracted from one document.
type Page struct {
	Title string
	Text  string
	Links []string
}

// Parse parses htmlContent once and runs all three extractions on it.
// pageURL is the base for link resolution and domain bounds the links kept.
func Parse(pageURL string, htmlContent []byte, domain string) (*Page, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}

	root, err := parseHTML(htmlContent)
	if err != nil {
		return nil, err
	}
	doc := goquery.NewDocumentFromNode(root)

	return &Page{
		Title: titleOf(doc),
		Text:  textOf(root),
		Links: linksOf(doc, base, domain),
	}, nil
}

// ExtractLinks returns every in-scope link of the document, resolved against
// pageURL. Duplicates are dropped and first-seen order is kept.
func ExtractLinks(pageURL string, htmlContent []byte, domain string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}
	root, err := parseHTML(htmlContent)
	if err != nil {
		return nil, err
	}
	return linksOf(goquery.NewDocumentFromNode(root), base, domain), nil
}

// ExtractText returns the visible text of the document with script and
// style content removed and whitespace collapsed.
func ExtractText(htmlContent []byte) (string, error) {
	root, err := parseHTML(htmlContent)
	if err != nil {
		return "", err
	}
	return textOf(root), nil
}

// ExtractTitle returns the text of the first <title> element with
// surrounding whitespace trimmed. A missing title, or one that is empty
// after trimming, yields NoTitle.
func ExtractTitle(htmlContent []byte) (string, error) {
	root, err := parseHTML(htmlContent)
	if err != nil {
		return "", err
	}
	return titleOf(goquery.NewDocumentFromNode(root)), nil
}

// parseHTML parses with scripting disabled so <noscript> content is parsed
// as markup instead of raw text.
func parseHTML(htmlContent []byte) (*html.Node, error) {
	root, err := html.ParseWithOptions(bytes.NewReader(htmlContent), html.ParseOptionEnableScripting(false))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return root, nil
}

func titleOf(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return NoTitle
	}
	return title
}

func linksOf(doc *goquery.Document, base *url.URL, domain string) []string {
	links := []string{}
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved, err := urlscope.Resolve(base, href)
		if err != nil {
			return
		}
		if !urlscope.InScope(resolved, domain) {
			return
		}
		abs := resolved.String()
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})

	return links
}

// textOf concatenates all text nodes outside script and style subtrees and
// then normalizes whitespace: lines are trimmed, split on double spaces,
// and the non-empty pieces joined by a single space.
func textOf(root *html.Node) string {
	var raw strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			raw.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return normalizeWhitespace(raw.String())
}

func normalizeWhitespace(text string) string {
	var chunks []string
	for _, line := range splitLines(text) {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				chunks = append(chunks, phrase)
			}
		}
	}
	return strings.Join(chunks, " ")
}

// splitLines splits on \n, \r\n and lone \r.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
