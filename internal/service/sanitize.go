package service

import "github.com/microcosm-cc/bluemonday"

// newCommentPolicy allows the rich-text subset the comment editor emits.
func newCommentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("strong", "em", "u", "a", "ul", "ol", "li", "br", "p", "div", "b", "i", "hr")
	p.AllowAttrs("href", "target", "rel").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.RequireParseableURLs(true)
	return p
}

func (s *Service) sanitize(html string) string {
	return s.sanitizer.Sanitize(html)
}
