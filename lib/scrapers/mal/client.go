// Package mal retrieves and parses pages from the MyAnimeList catalogue
// into typed records: show metadata, user profile stats and user anime
// lists.
//
// The parsers are written to fail loudly and specifically when the expected
// page structure is absent rather than to guess: every failed field carries
// a ParseError that distinguishes a missing anchor from malformed content
// from vocabulary the tables do not know yet.
package mal

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"anistats-backend/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the site root. Https avoids the auto-redirect the site
// does on plain http.
const DefaultBaseURL = "https://myanimelist.net"

type Client struct {
	baseURL *url.URL
	http    *resty.Client
	users   *UserStore
}

type ClientOptions struct {
	// BaseURL overrides the site root, e.g. to point at a fixture server.
	BaseURL string
	// Insecure switches the default site root to plain http. Ignored when
	// BaseURL is set.
	Insecure bool
	// Http injects the requester. Retry, rate limiting and timeouts belong
	// to it, not to this package. When nil a default client is built.
	Http *resty.Client
	// Users injects the discovery cache shared with other clients. When nil
	// the client owns a fresh one.
	Users *UserStore
	// DumpOutput, when non-nil, receives request/response transcripts while
	// debug logging is enabled.
	DumpOutput restyutil.DumpOutput
}

func NewClient(opts ClientOptions) (*Client, error) {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
		if opts.Insecure {
			base = "http://myanimelist.net"
		}
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, err
	}

	client := opts.Http
	if client == nil {
		client = resty.New()
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		client.SetCookieJar(jar)
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
		client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
		client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseURL.Hostname()))
		client.SetTimeout(time.Second * 30)
	}
	client.SetBaseURL(baseURL.String())
	restyutil.InstrumentClient(client, "anistats.lib.scrapers.mal.http", opts.DumpOutput)

	users := opts.Users
	if users == nil {
		users = NewUserStore()
	}

	return &Client{
		baseURL: baseURL,
		http:    client,
		users:   users,
	}, nil
}

// Users exposes the discovery cache the client feeds on every successful
// page fetch.
func (c *Client) Users() *UserStore {
	return c.users
}

// getHTML fetches one page, validates the http outcome, feeds the raw page
// into the discovery cache and parses the document.
func (c *Client) getHTML(ctx context.Context, path string) (*resty.Response, *goquery.Document, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return nil, nil, err
	}
	if err := checkStatus(res); err != nil {
		return nil, nil, err
	}

	c.users.AddFromHTML(res.String())

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, nil, err
	}
	return res, doc, nil
}

func checkStatus(res *resty.Response) error {
	switch res.StatusCode() {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return &RequestError{
			Code:   CodeForbidden,
			URL:    res.Request.URL,
			Status: res.StatusCode(),
		}
	case http.StatusNotFound:
		return &RequestError{
			Code:   CodeDoesNotExist,
			URL:    res.Request.URL,
			Status: res.StatusCode(),
		}
	}
	if !res.IsSuccess() {
		return fmt.Errorf("unexpected http status %d for %s", res.StatusCode(), res.Request.URL)
	}
	return nil
}
