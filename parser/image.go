package parser

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

type imagePattern struct {
	re     *regexp.Regexp
	weight int
}

// Candidate patterns in scan order. Meta tags are matched in both attribute
// orders and in the looser form rendered snapshots print them in.
var imagePatterns = []imagePattern{
	{regexp.MustCompile(`(?i)og:image(?::url|:secure_url)?["'\s][^>]*?content\s*=\s*["']([^"']+)["']`), 100},
	{regexp.MustCompile(`(?i)content\s*=\s*["']([^"']+)["'][^>]*?(?:property|name)\s*=\s*["']og:image(?::url|:secure_url)?["']`), 100},
	{regexp.MustCompile(`(?i)twitter:image(?::src)?["'\s][^>]*?content\s*=\s*["']([^"']+)["']`), 90},
	{regexp.MustCompile(`(?i)content\s*=\s*["']([^"']+)["'][^>]*?(?:property|name)\s*=\s*["']twitter:image(?::src)?["']`), 90},
	{regexp.MustCompile(`"image"\s*:\s*"([^"]+)"`), 80},
	{regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)(?:\s+"[^"]*")?\)`), 50},
	{regexp.MustCompile(`(?i)<img[^>]+?src\s*=\s*["']([^"']+)["']`), 40},
}

var excludedImageTerms = []string{"icon", "logo", "avatar", "placeholder", "sprite"}

// ExtractImage picks the highest weighted image candidate in text and
// returns it as an absolute URL. Ties keep the first candidate found.
func ExtractImage(text, sourceURL string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	best, bestWeight := "", 0
	for _, pattern := range imagePatterns {
		if pattern.weight <= bestWeight {
			continue
		}
		for _, match := range pattern.re.FindAllStringSubmatch(text, -1) {
			candidate := cleanCandidate(match[1])
			if candidate == "" || excludedImage(candidate) {
				continue
			}
			best, bestWeight = candidate, pattern.weight
			break
		}
	}

	if best == "" {
		return "", false
	}
	return NormalizeImageURL(best, sourceURL), true
}

// NormalizeImageURL makes a candidate absolute. Protocol-relative URLs get
// https, root-relative and bare relative paths are resolved against the
// source page.
func NormalizeImageURL(raw, sourceURL string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	}

	ref, err := url.Parse(raw)
	if err != nil || ref.IsAbs() {
		return raw
	}
	base, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return raw
	}
	if strings.HasPrefix(raw, "/") {
		return base.Scheme + "://" + base.Host + raw
	}
	return base.ResolveReference(ref).String()
}

func cleanCandidate(raw string) string {
	candidate := strings.TrimSpace(raw)
	candidate = strings.ReplaceAll(candidate, `\/`, "/")
	return html.UnescapeString(candidate)
}

func excludedImage(candidate string) bool {
	lower := strings.ToLower(candidate)
	if strings.HasPrefix(lower, "data:") || strings.HasSuffix(lower, ".svg") {
		return true
	}
	for _, term := range excludedImageTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
