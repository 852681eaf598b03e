package clipper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// DefaultMaxChars caps the text handed to the generator to keep prompts small.
const DefaultMaxChars = 8000

const maxBodyBytes = 4 << 20

// Notes is the readable text of a web page, ready to use as generator input.
type Notes struct {
	Title string
	Text  string
}

// Clipper fetches meal-plan or recipe pages and reduces them to plain text.
type Clipper struct {
	httpClient *http.Client
	policy     *bluemonday.Policy
	maxChars   int
}

// NewClipper creates a new Clipper instance.
func NewClipper() *Clipper {
	return &Clipper{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		policy:     bluemonday.UGCPolicy(),
		maxChars:   DefaultMaxChars,
	}
}

// ClipURL fetches the page at rawURL and returns its readable text.
func (c *Clipper) ClipURL(ctx context.Context, rawURL string) (*Notes, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: only http and https links are supported", rawURL)
	}

	html, err := c.fetch(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}

	notes, err := c.extract(html)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}
	if notes.Text == "" {
		return nil, fmt.Errorf("no readable text found at %s", u.String())
	}
	return notes, nil
}

func (c *Clipper) fetch(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "ai-grocery-checklist/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// extract reads the title, then sanitizes the page and keeps the text of
// headings, paragraphs and list entries, one per line.
func (c *Clipper) extract(rawHTML string) (*Notes, error) {
	original, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(original.Find("title").First().Text())

	// Remove noise before sanitizing so their text does not survive as loose words
	original.Find("nav, footer, header, aside, form, .ads, #ads, .advertisement, .comments").Remove()
	body, err := original.Find("body").Html()
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(c.policy.Sanitize(body)))
	if err != nil {
		return nil, err
	}

	var lines []string
	doc.Find("h1, h2, h3, h4, p, li, td").Each(func(_ int, s *goquery.Selection) {
		// Nested blocks are reached on their own; only take leaf-level text
		if s.Find("p, li").Length() > 0 {
			return
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		if goquery.NodeName(s) == "li" {
			text = "- " + text
		}
		lines = append(lines, text)
	})

	text := strings.Join(lines, "\n")
	return &Notes{Title: title, Text: truncate(text, c.maxChars)}, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
