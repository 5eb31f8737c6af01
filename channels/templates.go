package channels

import (
	"fmt"
	"strings"

	"github.com/rcmckee/bigcases2/core"
)

// Character budgets per service. Twitter counts every link as a fixed-size
// t.co wrapper; Mastodon counts links verbatim but most instances allow
// five hundred characters.
const (
	twitterMaxChars  = 280
	twitterLinkChars = 23
	mastodonMaxChars = 500
)

const truncationMarker = "…"

type postTemplate struct {
	// body uses {docket}, {description}, {doc_num}, {pdf_link} and
	// {docket_link} placeholders.
	body      string
	maxChars  int
	linkChars int
}

func (t postTemplate) Render(fields core.TemplateFields) (core.RenderedPost, error) {
	docNum := ""
	if fields.DocNumber != nil {
		docNum = fmt.Sprintf("%d", *fields.DocNumber)
	}

	expand := func(description string) string {
		replacer := strings.NewReplacer(
			"{docket}", fields.Docket,
			"{description}", description,
			"{doc_num}", docNum,
			"{pdf_link}", fields.PDFLink,
			"{docket_link}", fields.DocketLink,
		)
		return replacer.Replace(t.body)
	}

	text := expand(fields.Description)
	overflow := t.charCount(text, fields) - t.maxChars
	if overflow > 0 {
		description := []rune(fields.Description)
		keep := len(description) - overflow - len([]rune(truncationMarker))
		if keep < 0 {
			keep = 0
		}
		text = expand(strings.TrimSpace(string(description[:keep])) + truncationMarker)
	}
	return core.RenderedPost{Text: text}, nil
}

// charCount applies the service's link accounting before measuring.
func (t postTemplate) charCount(text string, fields core.TemplateFields) int {
	if t.linkChars > 0 {
		for _, link := range []string{fields.PDFLink, fields.DocketLink} {
			if link == "" {
				continue
			}
			text = strings.ReplaceAll(text, link, strings.Repeat("x", t.linkChars))
		}
	}
	return len([]rune(text))
}

const (
	documentBody = "New filing in {docket}\n" +
		"Doc #{doc_num}: {description}\n\n" +
		"PDF: {pdf_link}\n" +
		"Docket: {docket_link}"

	minuteEntryBody = "New minute entry in {docket}: {description}\n\n" +
		"Docket: {docket_link}"
)

// Resolver picks the template for a service and docket entry shape.
// Entries without a document number are clerk minute entries and get a
// variant with no PDF link.
type Resolver struct{}

func (Resolver) ResolveTemplate(service core.ChannelService, documentNumber *int64) (core.PostTemplate, error) {
	var maxChars, linkChars int
	switch service {
	case core.ChannelServiceTwitter:
		maxChars, linkChars = twitterMaxChars, twitterLinkChars
	case core.ChannelServiceMastodon:
		maxChars, linkChars = mastodonMaxChars, 0
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidChannelService, string(service))
	}

	body := documentBody
	if documentNumber == nil {
		body = minuteEntryBody
	}
	return postTemplate{body: body, maxChars: maxChars, linkChars: linkChars}, nil
}

var _ core.TemplateResolver = Resolver{}
