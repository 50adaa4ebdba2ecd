// Package lodestone scrapes character data from the Lodestone, the
// public FFXIV character directory. Registration and profile refresh
// both go through it: character search by name and world, and the
// character page with its free-form profile text.
package lodestone

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// DefaultBaseURL is the North American Lodestone. All regions serve
// the same markup.
const DefaultBaseURL = "https://na.finalfantasyxiv.com"

// requestTimeout bounds a single page fetch.
const requestTimeout = 10 * time.Second

// maxBody caps how much of a page is parsed.
const maxBody = 2 << 20

const userAgent = "extrachat-server/1.0"

// Character is a scraped character page.
type Character struct {
	ID          uint64
	Name        string
	World       string
	ProfileText string
}

// SearchResult is one row of a character search page.
type SearchResult struct {
	ID    uint64
	Name  string
	World string
}

// SearchPage is one page of search results plus the page count needed
// to keep paging.
type SearchPage struct {
	Results    []SearchResult
	TotalPages int
}

type Client struct {
	base string
	http *http.Client
}

// NewClient returns a scraper against the given Lodestone base URL.
// An empty base selects the North American directory.
func NewClient(base string) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Timeout: requestTimeout},
	}
}

// Character fetches a character page by lodestone id.
func (c *Client) Character(ctx context.Context, id uint64) (*Character, error) {
	doc, err := c.fetch(ctx, fmt.Sprintf("%s/lodestone/character/%d/", c.base, id))
	if err != nil {
		return nil, err
	}

	name := nodeText(findFirst(doc, "frame__chara__name"))
	world := nodeText(findFirst(doc, "frame__chara__world"))
	if name == "" || world == "" {
		return nil, fmt.Errorf("character %d: page has no name or world", id)
	}

	return &Character{
		ID:          id,
		Name:        name,
		World:       worldName(world),
		ProfileText: nodeText(findFirst(doc, "character__selfintroduction")),
	}, nil
}

// Search fetches one page of character search results for an exact
// name on a world. Pages start at 1.
func (c *Client) Search(ctx context.Context, name, world string, page int) (*SearchPage, error) {
	query := url.Values{
		"q":         {name},
		"worldname": {world},
		"page":      {strconv.Itoa(page)},
	}
	doc, err := c.fetch(ctx, fmt.Sprintf("%s/lodestone/character/?%s", c.base, query.Encode()))
	if err != nil {
		return nil, err
	}

	sp := &SearchPage{TotalPages: 1}
	if pager := nodeText(findFirst(doc, "btn__pager__current")); pager != "" {
		// "Page 1 of 3"
		fields := strings.Fields(pager)
		if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil && n > 0 {
			sp.TotalPages = n
		}
	}

	for _, entry := range findAll(doc, "entry__link") {
		id, ok := characterID(attrValue(entry, "href"))
		if !ok {
			continue
		}
		resultName := nodeText(findFirst(entry, "entry__name"))
		resultWorld := nodeText(findFirst(entry, "entry__world"))
		if resultName == "" || resultWorld == "" {
			continue
		}
		sp.Results = append(sp.Results, SearchResult{
			ID:    id,
			Name:  resultName,
			World: worldName(resultWorld),
		})
	}

	return sp, nil
}

func (c *Client) fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// characterID pulls the numeric id out of a character page href like
// "/lodestone/character/12345678/".
func characterID(href string) (uint64, bool) {
	const marker = "/character/"
	i := strings.Index(href, marker)
	if i < 0 {
		return 0, false
	}
	rest := strings.TrimSuffix(href[i+len(marker):], "/")
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// worldName strips the datacenter suffix from Lodestone world text,
// "Coeurl [Crystal]" -> "Coeurl". The separator is sometimes a
// non-breaking space.
func worldName(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	if i := strings.Index(s, " ["); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func findFirst(n *html.Node, class string) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, class); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, class) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attrValue(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// nodeText concatenates the text content under n, trimmed. Nil-safe so
// missing elements read as empty.
func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
