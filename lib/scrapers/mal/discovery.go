package mal

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// matches profile links in raw markup, with or without the site origin.
// The username is the first path segment after /profile/; trailing
// sub-paths are tolerated.
var profileLinkRegex = regexp.MustCompile(
	`(?i)href=["'](?:https?://myanimelist\.net)?/profile/(\w+)[\w/]*["']`,
)

// A UserStore accumulates usernames seen on pages fetched through the
// client. Every page the client retrieves is mined for profile links as a
// side effect, so discovery is mostly free. Safe for concurrent use.
type UserStore struct {
	mu    sync.Mutex
	users map[string]struct{}
}

func NewUserStore() *UserStore {
	return &UserStore{users: map[string]struct{}{}}
}

// AddFromHTML scans raw markup for profile links and records every
// username found. Returns how many were new to the store.
func (s *UserStore) AddFromHTML(html string) int {
	matches := profileLinkRegex.FindAllStringSubmatch(html, -1)
	if len(matches) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, match := range matches {
		username := match[1]
		if _, seen := s.users[username]; seen {
			continue
		}
		s.users[username] = struct{}{}
		added++
	}
	return added
}

// Add records usernames directly, bypassing link extraction.
func (s *UserStore) Add(usernames ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, username := range usernames {
		s.users[username] = struct{}{}
	}
}

// Len reports how many usernames are currently held.
func (s *UserStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// Drain removes and returns every stored username. Order is unspecified.
func (s *UserStore) Drain() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	usernames := make([]string, 0, len(s.users))
	for username := range s.users {
		usernames = append(usernames, username)
	}
	s.users = map[string]struct{}{}
	return usernames
}

// WebPolicy controls whether DiscoverUsers may hit the site's community
// page to find fresh usernames.
type WebPolicy int

const (
	// WebAuto fetches the community page only when no banked usernames are
	// usable.
	WebAuto WebPolicy = iota
	// WebNever drains the store and nothing else.
	WebNever
	// WebAlways fetches the community page before draining.
	WebAlways
)

type DiscoverOptions struct {
	// NoCache leaves the usernames banked from earlier page fetches out of
	// the result (and untouched in the store).
	NoCache bool
	Web     WebPolicy
}

// DiscoverUsers returns a batch of usernames to crawl next. Depending on
// the options it drains usernames banked from earlier page fetches,
// scrapes the community page for new ones, or both.
func (c *Client) DiscoverUsers(ctx context.Context, opts DiscoverOptions) (map[string]struct{}, error) {
	ctx, span := tracer.Start(ctx, "client:DiscoverUsers")
	defer span.End()

	found := map[string]struct{}{}

	fetch := opts.Web == WebAlways ||
		(opts.Web == WebAuto && (opts.NoCache || c.users.Len() == 0))
	if fetch {
		usernames, err := c.discoverFromWeb(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to scrape community page")
			return nil, err
		}
		for _, username := range usernames {
			found[username] = struct{}{}
		}
	}

	if !opts.NoCache {
		// the web fetch above banks its finds too, so this picks them up
		// alongside everything seen before
		for _, username := range c.users.Drain() {
			found[username] = struct{}{}
		}
	}

	span.SetAttributes(attribute.Int("usernames", len(found)))
	return found, nil
}

func (c *Client) discoverFromWeb(ctx context.Context) ([]string, error) {
	_, doc, err := c.getHTML(ctx, "/users.php")
	if err != nil {
		return nil, err
	}

	// getHTML already mined the raw markup into the store; walking the
	// parsed anchors additionally catches hrefs the regex grammar is too
	// strict for.
	var usernames []string
	doc.Find(`a[href^="/profile/"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		if username, ok := trimProfileHref(href); ok {
			usernames = append(usernames, username)
		}
	})
	c.users.Add(usernames...)
	return usernames, nil
}

// trimProfileHref extracts the username from a relative profile href.
func trimProfileHref(href string) (string, bool) {
	rest, ok := strings.CutPrefix(href, "/profile/")
	if !ok || rest == "" {
		return "", false
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest, rest != ""
}
