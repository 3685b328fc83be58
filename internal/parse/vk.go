package parse

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"sqrt-go/internal/model"
)

// VkChat is one page of a chat in a VK data archive.
type VkChat struct {
	Name     string
	Messages []model.Message
}

// Sender names the archive uses for the owner of the account.
var vkSelf = []string{"You", "Вы"}

var vkMonths = []string{"янв", "фев", "мар", "апр", "мая", "июн", "июл", "авг", "сен", "окт", "ноя", "дек"}

// VkChatHTML parses a messages*.html page of a VK archive. The page
// encoding is taken from its meta tag (the archive uses windows-1251).
// Messages of the account owner get author as sender. Messages without
// text, such as bare attachments, are skipped.
func VkChatHTML(r io.Reader, author string) (*VkChat, error) {
	decoded, err := charset.NewReader(r, "text/html")
	if err != nil {
		return nil, fmt.Errorf("detecting charset: %w", err)
	}
	doc, err := html.Parse(decoded)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	crumb := findNode(doc, func(n *html.Node) bool { return n.Data == "div" && hasClass(n, "ui_crumb") })
	if crumb == nil {
		return nil, fmt.Errorf("missing chat name")
	}
	chat := &VkChat{Name: strings.TrimSpace(textContent(crumb))}

	for i, item := range findAll(doc, func(n *html.Node) bool { return hasClass(n, "item") }) {
		header := findNode(item, func(n *html.Node) bool { return hasClass(n, "message__header") })
		if header == nil {
			return nil, fmt.Errorf("item %d: missing message header", i)
		}
		sender, rawDate, ok := strings.Cut(textContent(header), ", ")
		if !ok {
			return nil, fmt.Errorf("item %d: malformed header %q", i, textContent(header))
		}
		date, edited, err := VkDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		text := vkText(header.Parent)
		if text == "" {
			continue
		}
		sender = strings.TrimSpace(sender)
		outgoing := slices.Contains(vkSelf, sender)
		if outgoing {
			sender = author
		}
		chat.Messages = append(chat.Messages, model.Message{
			Target:     chat.Name,
			Sender:     sender,
			IsOutgoing: outgoing,
			Text:       text,
			Date:       date,
			IsEdited:   edited,
		})
	}
	return chat, nil
}

// VkDate parses the header dates of an English ("3 Jan 2020 at 7:49:17 pm")
// or Russian ("3 янв 2020 в 19:49:17") archive. It also reports the
// "(edited)" marker. Times are naive and taken as UTC.
func VkDate(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	edited := false
	for _, suffix := range []string{" (edited)", " (ред.)"} {
		if strings.HasSuffix(s, suffix) {
			s, edited = strings.TrimSuffix(s, suffix), true
		}
	}

	if t, err := time.ParseInLocation("2 Jan 2006 at 3:04:05 pm", s, time.UTC); err == nil {
		return t, edited, nil
	}

	fields := strings.Fields(s)
	if len(fields) == 5 {
		if month := slices.Index(vkMonths, fields[1]); month >= 0 {
			normalized := fmt.Sprintf("%s %02d %s %s", fields[0], month+1, fields[2], fields[4])
			if t, err := time.ParseInLocation("2 01 2006 15:04:05", normalized, time.UTC); err == nil {
				return t, edited, nil
			}
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognized date %q", s)
}

// vkText joins the text lines of the unclassed body div of a message.
func vkText(message *html.Node) string {
	var body *html.Node
	for c := message.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "div" && attr(c, "class") == "" {
			body = c
			break
		}
	}
	if body == nil {
		return ""
	}
	var lines []string
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			if line := strings.TrimSpace(c.Data); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	return n.Type == html.ElementNode && slices.Contains(strings.Fields(attr(n, "class")), class)
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns matching nodes in document order without descending
// into a match.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	if match(n) {
		return []*html.Node{n}
	}
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, findAll(c, match)...)
	}
	return out
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}
