package models

import (
	"net/url"
	"strings"

	itinmodels "wayfare/internal/itinerary/models"
	"wayfare/pkg/canonhash"
	dErrors "wayfare/pkg/domain-errors"
)

// SourceType discriminates the heterogeneous formats agents submit in.
type SourceType string

const (
	SourcePDF          SourceType = "pdf"
	SourceExternalLink SourceType = "external_link"
	SourceFreeText     SourceType = "free_text"
	SourceStructured   SourceType = "structured"
)

var validSourceTypes = map[SourceType]bool{
	SourcePDF:          true,
	SourceExternalLink: true,
	SourceFreeText:     true,
	SourceStructured:   true,
}

// PDFContent references an uploaded proposal document.
type PDFContent struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
}

// ExternalLinkContent points at a proposal hosted elsewhere.
type ExternalLinkContent struct {
	URL string `json:"url"`
}

// FreeTextContent is an unstructured proposal written inline.
type FreeTextContent struct {
	Text string `json:"text"`
}

// StructuredContent is a proposal already in itinerary item form, minus the
// identifiers the version store assigns downstream.
type StructuredContent struct {
	Items []itinmodels.ItemDraft `json:"items"`
}

// Content is the tagged union of submission payloads. Exactly the variant
// matching Source is set; validation and hashing dispatch on the tag, never
// on runtime type inspection.
type Content struct {
	Source       SourceType           `json:"source"`
	PDF          *PDFContent          `json:"pdf,omitempty"`
	ExternalLink *ExternalLinkContent `json:"external_link,omitempty"`
	FreeText     *FreeTextContent     `json:"free_text,omitempty"`
	Structured   *StructuredContent   `json:"structured,omitempty"`
}

// Validate runs the source-specific structural checks. A failure means the
// submission is rejected before anything is persisted.
func (c Content) Validate() error {
	if !validSourceTypes[c.Source] {
		return dErrors.Newf(dErrors.CodeValidation, "unknown submission source %q", string(c.Source))
	}

	switch c.Source {
	case SourcePDF:
		if c.PDF == nil {
			return dErrors.New(dErrors.CodeValidation, "pdf submission requires a pdf payload")
		}
		if strings.TrimSpace(c.PDF.FileURL) == "" {
			return dErrors.New(dErrors.CodeValidation, "pdf submission requires a file URL")
		}
		if strings.TrimSpace(c.PDF.FileName) == "" {
			return dErrors.New(dErrors.CodeValidation, "pdf submission requires a file name")
		}
	case SourceExternalLink:
		if c.ExternalLink == nil {
			return dErrors.New(dErrors.CodeValidation, "link submission requires a link payload")
		}
		u, err := url.Parse(strings.TrimSpace(c.ExternalLink.URL))
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return dErrors.New(dErrors.CodeValidation, "link submission requires a well-formed http(s) URL")
		}
	case SourceFreeText:
		if c.FreeText == nil || strings.TrimSpace(c.FreeText.Text) == "" {
			return dErrors.New(dErrors.CodeValidation, "free text submission requires non-empty content")
		}
	case SourceStructured:
		if c.Structured == nil || len(c.Structured.Items) == 0 {
			return dErrors.New(dErrors.CodeValidation, "structured submission requires at least one item")
		}
		for _, item := range c.Structured.Items {
			if err := item.Validate(); err != nil {
				return dErrors.Wrap(err, dErrors.CodeValidation, "structured submission item is invalid")
			}
		}
	}
	return nil
}

// Hash computes the dedup digest over the canonicalized content. Free text is
// whitespace-normalized before hashing; everything else goes through the
// canonical JSON form so field ordering never affects the digest. The source
// tag participates so identical text submitted as different source types does
// not collide.
func (c Content) Hash() (string, error) {
	if c.Source == SourceFreeText && c.FreeText != nil {
		return canonhash.SumText(string(SourceFreeText) + "\n" + c.FreeText.Text), nil
	}
	digest, _, err := canonhash.SumObject(c)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash submission content")
	}
	return digest, nil
}
