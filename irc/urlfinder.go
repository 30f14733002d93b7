package irc

import (
	"strings"

	"mvdan.cc/xurls/v2"
)

// urlRegexp matches URLs with an explicit scheme, cached once at package
// init since compiling it is too expensive to redo per-message.
var urlRegexp = xurls.Strict()

// trailingPunct is stripped from the end of any URL found by FindURLs since
// it usually belongs to the surrounding sentence and not the URL itself.
const trailingPunct = ".,?:!;"

// FindURLs extracts every URL with an explicit scheme (http://, https://,
// etc.) from msg, trimming any trailing sentence punctuation from each match.
func FindURLs(msg string) []string {
	matches := urlRegexp.FindAllString(msg, -1)
	if len(matches) == 0 {
		return nil
	}

	urls := make([]string, len(matches))
	for i, m := range matches {
		urls[i] = strings.TrimRight(m, trailingPunct)
	}
	return urls
}
