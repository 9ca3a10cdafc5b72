package htmlutil

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText returns the concatenated text of the node and all of its
// descendants, in document order.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// FindLabel returns the first element of the given tag whose trimmed text is
// exactly label, or nil when no such element exists.
func FindLabel(doc *goquery.Document, tag, label string) *html.Node {
	for _, n := range doc.Find(tag).Nodes {
		if strings.TrimSpace(GetText(n)) == label {
			return n
		}
	}
	return nil
}

// NextSiblingText returns the raw text of the node immediately following the
// given one. The empty string means there is no next sibling.
func NextSiblingText(node *html.Node) string {
	if node == nil || node.NextSibling == nil {
		return ""
	}
	return GetText(node.NextSibling)
}

// NextNonEmptyText scans at most limit following siblings and returns the
// first trimmed text that is non-empty.
func NextNonEmptyText(node *html.Node, limit int) string {
	if node == nil {
		return ""
	}
	count := 0
	for s := node.NextSibling; s != nil && count < limit; s = s.NextSibling {
		if text := strings.TrimSpace(GetText(s)); text != "" {
			return text
		}
		count++
	}
	return ""
}

// FindNext returns the nearest element of the given tag that follows node in
// document order, descendants included.
func FindNext(node *html.Node, tag string) *html.Node {
	for n := successor(node); n != nil; n = successor(n) {
		if n.Type == html.ElementNode && n.Data == tag {
			return n
		}
	}
	return nil
}

// FollowingSiblings returns the direct siblings of the given tag that follow
// node, in order.
func FollowingSiblings(node *html.Node, tag string) []*html.Node {
	if node == nil {
		return nil
	}
	var out []*html.Node
	for s := node.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.Data == tag {
			out = append(out, s)
		}
	}
	return out
}

func successor(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for n != nil {
		if n.NextSibling != nil {
			return n.NextSibling
		}
		n = n.Parent
	}
	return nil
}
