package view

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// newMessagePolicy admits the markup backend messages carry: line breaks, emphasis and links.
func newMessagePolicy() *bluemonday.Policy {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("br", "b", "strong", "em", "i")
	policy.AllowAttrs("href").OnElements("a")
	policy.AllowAttrs("class").OnElements("a", "span")
	policy.AllowElements("span")
	policy.AllowRelativeURLs(true)
	policy.AllowURLSchemes("http", "https", "mailto")
	return policy
}

func newDocumentPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	return policy
}

var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
		goldmarkHTML.WithUnsafe(),
	),
)

// Message sanitises a backend message for inline display.
func (r *Renderer) Message(raw string) template.HTML {
	return template.HTML(r.messages.Sanitize(strings.TrimSpace(raw)))
}

// Markdown renders src and sanitises the result. Terms stored as HTML pass through the same
// policy.
func (r *Renderer) Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(r.documents.Sanitize(src))
	}
	return template.HTML(r.documents.SanitizeBytes(buf.Bytes()))
}
