package wordpress

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

var (
	markdownImage = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	markdownLink  = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	markdownNoise = regexp.MustCompile("[#*_`>|~]+")
	anySpace      = regexp.MustCompile(`\s+`)
)

// Summary returns a plain-text description cut at a word boundary before limit runes, with an
// ellipsis when something was dropped.  The export's own excerpt wins; otherwise the body is
// flattened to text.
func (c ContentItem) Summary(limit int) (string, error) {
	text := c.Excerpt
	if text == "" {
		if c.Body == "" {
			return "", nil
		}

		converter := md.NewConverter("", true, nil)
		markdown, err := converter.ConvertString(c.Body)
		if err != nil {
			return "", fmt.Errorf("wordpress: couldn't flatten body of %q: %w", c.Title, err)
		}
		text = markdown
	}

	text = markdownImage.ReplaceAllString(text, "")
	text = markdownLink.ReplaceAllString(text, "$1")
	text = markdownNoise.ReplaceAllString(text, "")
	text = strings.TrimSpace(anySpace.ReplaceAllString(text, " "))

	return truncateWords(text, limit), nil
}

func truncateWords(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)
	cut := string(runes[:limit])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "…"
}
