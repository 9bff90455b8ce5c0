package parser

import (
	"net/url"
	"regexp"
	"strings"
)

// FallbackRule supplies an image for items whose host contains Host when
// scraping found nothing.
type FallbackRule struct {
	Host       string `yaml:"host"`
	ImageURL   string `yaml:"image_url"`
	UseItemURL bool   `yaml:"use_item_url"`
}

var youTubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtu\.be/([^?&/#]+)`),
	regexp.MustCompile(`youtube\.com/watch\?(?:[^#]*&)?v=([^&#]+)`),
	regexp.MustCompile(`youtube\.com/shorts/([^?&/#]+)`),
	regexp.MustCompile(`youtube\.com/embed/([^?&/#]+)`),
}

// YouTubeVideoID returns the video id of a YouTube link.
func YouTubeVideoID(itemURL string) (string, bool) {
	for _, pattern := range youTubePatterns {
		if match := pattern.FindStringSubmatch(itemURL); match != nil && match[1] != "" {
			return match[1], true
		}
	}
	return "", false
}

// FallbackImage derives an image for an item without scraping it. YouTube
// links map to the video thumbnail; otherwise the first rule whose host
// matches applies.
func FallbackImage(itemURL string, rules []FallbackRule) (string, bool) {
	if id, ok := YouTubeVideoID(itemURL); ok {
		return "https://i.ytimg.com/vi/" + id + "/maxresdefault.jpg", true
	}

	parsed, err := url.Parse(strings.TrimSpace(itemURL))
	if err != nil || parsed.Host == "" {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")

	for _, rule := range rules {
		key := strings.ToLower(strings.TrimSpace(rule.Host))
		if key == "" || !strings.Contains(host, key) {
			continue
		}
		switch {
		case rule.UseItemURL:
			return itemURL, true
		case rule.ImageURL != "":
			return rule.ImageURL, true
		default:
			// a matching rule without an image marks the host as having none
			return "", false
		}
	}
	return "", false
}
