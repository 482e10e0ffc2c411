package rss

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>AWS Regions</title>
    <item>
      <title>US East (N. Virginia)</title>
      <description>The us-east-1 region is now available.</description>
      <link>https://aws.amazon.com/blogs/launch-us-east-1</link>
      <pubDate>Fri, 25 Aug 2006 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>AWS GovCloud (US-West)</title>
      <description>Announcing AWS us-gov-west-1 for government workloads.</description>
      <link>https://aws.amazon.com/blogs/launch-govcloud</link>
      <pubDate>Tue, 16 Aug 2011 00:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Asia Pacific (Jakarta) region</title>
      <description>Now open: ap-southeast-3.</description>
      <link>https://aws.amazon.com/blogs/launch-jakarta</link>
      <pubDate>not a date</pubDate>
    </item>
    <item>
      <title>Some unrelated announcement</title>
      <description>Nothing regional here.</description>
      <link>https://aws.amazon.com/blogs/other</link>
      <pubDate>Mon, 02 Jan 2023 00:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func Test_Parse(t *testing.T) {
	assert := assert.New(t)

	launches, err := Parse([]byte(sampleFeed))
	if !assert.NoError(err) {
		return
	}
	// the unparseable-date and no-region items are skipped
	assert.Len(launches, 2)

	use1, ok := launches["us-east-1"]
	if assert.True(ok) {
		assert.Equal("2006-08-25", use1.Date.Format("2006-01-02"))
		assert.Equal("https://aws.amazon.com/blogs/launch-us-east-1", use1.AnnouncementURL)
		assert.Equal("US East (N. Virginia)", use1.Title)
	}

	gov, ok := launches["us-gov-west-1"]
	if assert.True(ok) {
		assert.Equal("2011-08-16", gov.Date.Format("2006-01-02"))
	}
}

func Test_ParseRegionCodeFromTitleFallback(t *testing.T) {
	assert := assert.New(t)

	feed := `<rss version="2.0"><channel><item>
		<title>Launch: eu-central-2</title>
		<description>A new European region.</description>
		<pubDate>Tue, 08 Nov 2022 00:00:00 GMT</pubDate>
	</item></channel></rss>`

	launches, err := Parse([]byte(feed))
	if assert.NoError(err) {
		assert.Contains(launches, "eu-central-2")
	}
}

func Test_ParseRejectsDoctype(t *testing.T) {
	assert := assert.New(t)

	evil := `<?xml version="1.0"?>
<!DOCTYPE rss [<!ENTITY x SYSTEM "file:///etc/passwd">]>
<rss version="2.0"><channel></channel></rss>`

	_, err := Parse([]byte(evil))
	assert.Error(err)
	assert.Contains(err.Error(), "DOCTYPE")
}

func Test_ParseMalformedXML(t *testing.T) {
	assert := assert.New(t)

	_, err := Parse([]byte("<rss><channel><item>"))
	assert.Error(err)
}

func Test_LaunchDates(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleFeed)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/regions.rss", true)
	launches, err := c.LaunchDates()
	if assert.NoError(err) {
		assert.Len(launches, 2)
	}
}

func Test_LaunchDatesSchemePolicy(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		allowHTTP bool
		wantErr   string
	}{
		{name: "http refused by default", url: "http://example.com/feed.rss", wantErr: "plain-http"},
		{name: "unknown scheme refused", url: "ftp://example.com/feed.rss", allowHTTP: true, wantErr: "scheme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)

			_, err := NewClient(tt.url, tt.allowHTTP).LaunchDates()
			if assert.Error(err) {
				assert.Contains(err.Error(), tt.wantErr)
			}
		})
	}
}

func Test_LaunchDatesBadStatus(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, true).LaunchDates()
	assert.Error(err)
}
