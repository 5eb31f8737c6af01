package channels

import (
	"strings"
	"testing"

	"github.com/rcmckee/bigcases2/core"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func sampleFields() core.TemplateFields {
	return core.TemplateFields{
		Docket:      "United States v. Example (criminal fraud)",
		Description: "Motion to Dismiss for Lack of Jurisdiction",
		DocNumber:   int64Ptr(12),
		PDFLink:     "https://www.courtlistener.com/recap/gov.uscourts.doc-a/",
		DocketLink:  "https://www.courtlistener.com/docket/101/",
	}
}

func TestResolveTemplate_DocumentEntryCarriesPDFLink(t *testing.T) {
	template, err := Resolver{}.ResolveTemplate(core.ChannelServiceTwitter, int64Ptr(12))
	if err != nil {
		t.Fatalf("resolve template: %v", err)
	}
	rendered, err := template.Render(sampleFields())
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	if !strings.Contains(rendered.Text, "Doc #12") {
		t.Fatalf("expected document number in text, got %q", rendered.Text)
	}
	if !strings.Contains(rendered.Text, "PDF: https://www.courtlistener.com/recap/") {
		t.Fatalf("expected pdf link in text, got %q", rendered.Text)
	}
	if !strings.Contains(rendered.Text, "Docket: https://www.courtlistener.com/docket/101/") {
		t.Fatalf("expected docket link in text, got %q", rendered.Text)
	}
}

func TestResolveTemplate_MinuteEntryOmitsPDFLink(t *testing.T) {
	template, err := Resolver{}.ResolveTemplate(core.ChannelServiceTwitter, nil)
	if err != nil {
		t.Fatalf("resolve template: %v", err)
	}
	fields := sampleFields()
	fields.DocNumber = nil
	rendered, err := template.Render(fields)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	if !strings.Contains(rendered.Text, "New minute entry") {
		t.Fatalf("expected minute entry variant, got %q", rendered.Text)
	}
	if strings.Contains(rendered.Text, "PDF:") {
		t.Fatalf("minute entry must not carry a pdf link, got %q", rendered.Text)
	}
}

func TestRender_TwitterBudgetTruncatesDescription(t *testing.T) {
	template, err := Resolver{}.ResolveTemplate(core.ChannelServiceTwitter, int64Ptr(12))
	if err != nil {
		t.Fatalf("resolve template: %v", err)
	}
	fields := sampleFields()
	fields.Description = strings.Repeat("very long description ", 30)

	rendered, err := template.Render(fields)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	if !strings.Contains(rendered.Text, truncationMarker) {
		t.Fatalf("expected truncated description marker")
	}

	measured := rendered.Text
	for _, link := range []string{fields.PDFLink, fields.DocketLink} {
		measured = strings.ReplaceAll(measured, link, strings.Repeat("x", twitterLinkChars))
	}
	if got := len([]rune(measured)); got > twitterMaxChars {
		t.Fatalf("expected text within %d weighted chars, got %d", twitterMaxChars, got)
	}
	if !strings.Contains(rendered.Text, fields.PDFLink) {
		t.Fatalf("links must survive truncation")
	}
}

func TestRender_MastodonBudgetIsLarger(t *testing.T) {
	fields := sampleFields()
	fields.Description = strings.Repeat("detail ", 40)

	twitterTemplate, _ := Resolver{}.ResolveTemplate(core.ChannelServiceTwitter, int64Ptr(12))
	mastodonTemplate, _ := Resolver{}.ResolveTemplate(core.ChannelServiceMastodon, int64Ptr(12))

	short, err := twitterTemplate.Render(fields)
	if err != nil {
		t.Fatalf("render twitter: %v", err)
	}
	long, err := mastodonTemplate.Render(fields)
	if err != nil {
		t.Fatalf("render mastodon: %v", err)
	}
	if len([]rune(long.Text)) <= len([]rune(short.Text)) {
		t.Fatalf("expected mastodon to keep more of the description")
	}
	if got := len([]rune(long.Text)); got > mastodonMaxChars {
		t.Fatalf("expected mastodon text within %d chars, got %d", mastodonMaxChars, got)
	}
}

func TestRender_ShortPostIsUntouched(t *testing.T) {
	template, _ := Resolver{}.ResolveTemplate(core.ChannelServiceMastodon, int64Ptr(1))
	rendered, err := template.Render(sampleFields())
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	if strings.Contains(rendered.Text, truncationMarker) {
		t.Fatalf("short post must not be truncated")
	}
	if !strings.Contains(rendered.Text, "Motion to Dismiss for Lack of Jurisdiction") {
		t.Fatalf("expected full description, got %q", rendered.Text)
	}
}

func TestResolveTemplate_UnknownServiceRejected(t *testing.T) {
	if _, err := (Resolver{}).ResolveTemplate(core.ChannelService("bluesky"), nil); err == nil {
		t.Fatalf("expected unknown service rejected")
	}
}
