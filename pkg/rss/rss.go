// Package rss fetches the AWS regions announcement feed and extracts
// per-region launch dates. Feed data takes precedence over Parameter Store
// launch dates downstream; a feed failure only costs that precedence.
package rss

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultFeedURL is the official AWS regions announcement feed.
const DefaultFeedURL = "https://docs.aws.amazon.com/global-infrastructure/latest/regions/regions.rss"

const userAgent = "awsmap/1.0"

// LaunchInfo is one region's launch announcement as parsed from the feed.
type LaunchInfo struct {
	Date            time.Time
	RawDate         string
	AnnouncementURL string
	Title           string
}

// getter is the slice of heimdall's client the feed fetch needs.
type getter interface {
	Get(url string, headers http.Header) (*http.Response, error)
}

type Client struct {
	http      getter
	url       string
	allowHTTP bool
}

func NewClient(feedURL string, allowHTTP bool) *Client {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	backoff := heimdall.NewExponentialBackoff(500*time.Millisecond, 10*time.Second, 2, 500*time.Millisecond)
	return &Client{
		http: httpclient.NewClient(
			httpclient.WithHTTPTimeout(30*time.Second),
			httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
			httpclient.WithRetryCount(3),
		),
		url:       feedURL,
		allowHTTP: allowHTTP,
	}
}

// LaunchDates fetches and parses the feed into a map keyed by region code.
func (c *Client) LaunchDates() (map[string]LaunchInfo, error) {
	if !strings.HasPrefix(c.url, "https://") {
		if !strings.HasPrefix(c.url, "http://") {
			return nil, errors.Errorf("unsupported feed URL scheme: %s", c.url)
		}
		if !c.allowHTTP {
			return nil, errors.Errorf("refusing plain-http feed URL %s without explicit opt-in", c.url)
		}
	}

	res, err := c.http.Get(c.url, http.Header{"User-Agent": []string{userAgent}})
	if err != nil {
		return nil, errors.Wrap(err, "fetching feed")
	}
	defer res.Body.Close() // nolint:errcheck
	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching feed: unexpected status %d", res.StatusCode)
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading feed body")
	}
	return Parse(data)
}

var doctypeRe = regexp.MustCompile(`(?i)<!DOCTYPE`)

// regionCodeRe matches region codes of any partition depth, eg us-east-1,
// ap-southeast-3, us-gov-west-1.
var regionCodeRe = regexp.MustCompile(`(?i)\b([a-z]{2}(?:-[a-z]+)+-\d+)\b`)

// Parse extracts launch info from raw feed XML. Documents carrying a
// DOCTYPE are rejected outright so entity expansion never gets a foothold.
func Parse(data []byte) (map[string]LaunchInfo, error) {
	if doctypeRe.Match(data) {
		return nil, errors.New("feed contains a DOCTYPE declaration, refusing to parse")
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(bytes.TrimSpace(data)); err != nil {
		return nil, errors.Wrap(err, "parsing feed XML")
	}

	launches := make(map[string]LaunchInfo)
	for _, item := range doc.FindElements("//item") {
		title := elementText(item, "title")
		description := elementText(item, "description")
		link := elementText(item, "link")
		pubDate := elementText(item, "pubDate")
		if pubDate == "" {
			continue
		}

		code := extractRegionCode(description)
		if code == "" {
			code = extractRegionCode(title)
		}
		if code == "" {
			continue
		}

		date, err := parsePubDate(pubDate)
		if err != nil {
			zap.S().Warnf("rss: unparseable date %q for region %s", pubDate, code)
			continue
		}

		launches[code] = LaunchInfo{
			Date:            date,
			RawDate:         pubDate,
			AnnouncementURL: strings.TrimSpace(link),
			Title:           strings.TrimSpace(title),
		}
	}
	zap.S().Debugf("rss: parsed launch dates for %d regions", len(launches))
	return launches, nil
}

func elementText(parent *etree.Element, tag string) string {
	el := parent.SelectElement(tag)
	if el == nil {
		return ""
	}
	return el.Text()
}

func extractRegionCode(text string) string {
	match := regionCodeRe.FindString(text)
	return strings.ToLower(match)
}

func parsePubDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC1123, time.RFC1123Z} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized date format %q", raw)
}
