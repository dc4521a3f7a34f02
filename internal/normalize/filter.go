package normalize

import (
	"bytes"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// MinContentLength is the floor of visible characters a filtering stage
// must leave behind. A stage that drops below it is rolled back, so
// aggressive filtering degrades to the previous result instead of
// destroying a short but legitimate document.
const MinContentLength = 150

var structuralJunkTags = map[string]bool{
	"nav":    true,
	"header": true,
	"footer": true,
	"aside":  true,
}

var mediaJunkTags = map[string]bool{
	"script": true,
	"style":  true,
	"iframe": true,
	"embed":  true,
	"object": true,
	"video":  true,
	"audio":  true,
	"canvas": true,
	"svg":    true,
	"img":    true,
}

var patternJunkTags = map[string]bool{
	"figure": true,
	"form":   true,
	"input":  true,
	"button": true,
}

var unwantedPatterns = []string{
	"advertisement", "ad-", "ads-", "banner", "promo", "promotion",
	"sidebar", "widget", "social", "share", "comment", "related",
	"recommended", "trending", "popular", "navigation", "nav-", "menu",
	"breadcrumb", "logo", "brand", "cookie", "popup", "modal", "overlay",
	"subscription", "newsletter", "signup", "login", "search", "filter",
	"pagination", "pager", "tags", "category", "metadata",
}

var hiddenTextTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"title":    true,
}

var blockTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "blockquote": true, "li": true, "ul": true, "ol": true,
	"br": true, "div": true, "section": true, "article": true, "tr": true,
}

// ExtractText filters raw HTML in stages and returns the visible text of
// the best surviving version. It never returns less than the input's own
// visible text when every stage proves too aggressive.
func ExtractText(rawHTML string) string {
	current := rawHTML

	current = runStage(current, func(doc *html.Node) {
		removeMatching(doc, func(n *html.Node) bool {
			return n.Type == html.ElementNode && structuralJunkTags[n.Data]
		})
	})

	current = runStage(current, func(doc *html.Node) {
		removeMatching(doc, func(n *html.Node) bool {
			if n.Type == html.CommentNode {
				return true
			}
			return n.Type == html.ElementNode && mediaJunkTags[n.Data]
		})
	})

	current = runStage(current, func(doc *html.Node) {
		removeMatching(doc, func(n *html.Node) bool {
			if n.Type != html.ElementNode {
				return false
			}
			return patternJunkTags[n.Data] || hasUnwantedPattern(n)
		})
	})

	doc, err := html.Parse(strings.NewReader(current))
	if err != nil {
		return ""
	}
	return CleanText(visibleText(doc))
}

// DocumentTitle returns the contents of the first <title> element.
func DocumentTitle(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			title = strings.Join(strings.Fields(sb.String()), " ")
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// CleanText normalizes line endings and collapses extra in-line whitespace.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}

// VisibleLength counts the non-whitespace characters of text.
func VisibleLength(text string) int {
	count := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			count++
		}
	}
	return count
}

func runStage(lastGood string, action func(*html.Node)) string {
	doc, err := html.Parse(strings.NewReader(lastGood))
	if err != nil {
		return lastGood
	}

	action(doc)

	if VisibleLength(visibleText(doc)) < MinContentLength {
		return lastGood
	}

	rendered, err := renderHTML(doc)
	if err != nil {
		return lastGood
	}
	return rendered
}

func renderHTML(doc *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func removeMatching(root *html.Node, match func(*html.Node) bool) {
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		child := node.FirstChild
		for child != nil {
			next := child.NextSibling
			if match(child) {
				node.RemoveChild(child)
			} else {
				walk(child)
			}
			child = next
		}
	}
	walk(root)
}

func hasUnwantedPattern(n *html.Node) bool {
	var attrText strings.Builder
	for _, attr := range n.Attr {
		if attr.Key == "class" || attr.Key == "id" {
			attrText.WriteString(attr.Val)
			attrText.WriteString(" ")
		}
	}
	if attrText.Len() == 0 {
		return false
	}

	haystack := strings.ToLower(attrText.String())
	for _, pattern := range unwantedPatterns {
		if strings.Contains(haystack, pattern) {
			return true
		}
	}
	return false
}

func visibleText(root *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hiddenTextTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			sb.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			sb.WriteString("\n")
		}
	}
	walk(root)
	return sb.String()
}
