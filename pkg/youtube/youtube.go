// Package youtube extracts video ids from watch URLs and fetches caption
// tracks as ordered timed text segments.
package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const defaultBaseUrl = "https://video.google.com/timedtext"

var videoIdPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=|/v/|/embed/|/shorts/)([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
}

// ExtractVideoID pulls the 11-character video id out of a YouTube URL in
// any of its common forms (watch, short link, embed, shorts).
func ExtractVideoID(rawUrl string) (string, error) {
	for _, re := range videoIdPatterns {
		if m := re.FindStringSubmatch(rawUrl); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("no video id found in url %q", rawUrl)
}

// TimedText is one caption entry in chronological order.
type TimedText struct {
	Start    float64
	Duration float64
	Text     string
}

type Fetcher struct {
	BaseUrl    string
	Language   string
	HttpClient *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		BaseUrl:    defaultBaseUrl,
		Language:   "en",
		HttpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type timedTextXML struct {
	Texts []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Body  string  `xml:",chardata"`
	} `xml:"text"`
}

// Fetch returns the caption track for a video id in chronological order.
// A video without captions is an error, not an empty transcript.
func (f *Fetcher) Fetch(ctx context.Context, videoId string) ([]TimedText, error) {
	endpoint := fmt.Sprintf("%s?lang=%s&v=%s", f.BaseUrl, url.QueryEscape(f.Language), url.QueryEscape(videoId))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.HttpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcript fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("transcript fetch http %d: %s", resp.StatusCode, string(b))
	}

	var parsed timedTextXML
	if err := xml.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse transcript: %w", err)
	}
	if len(parsed.Texts) == 0 {
		return nil, fmt.Errorf("no transcript available for video %s", videoId)
	}

	segments := make([]TimedText, 0, len(parsed.Texts))
	for _, entry := range parsed.Texts {
		text := strings.TrimSpace(html.UnescapeString(entry.Body))
		if text == "" {
			continue
		}
		segments = append(segments, TimedText{
			Start:    entry.Start,
			Duration: entry.Dur,
			Text:     text,
		})
	}
	return segments, nil
}

// JoinSegments concatenates segment texts with single spaces in order,
// which defines the full transcript for a video asset.
func JoinSegments(segments []TimedText) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}
