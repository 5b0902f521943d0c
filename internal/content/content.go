package content

import "fmt"

// #region kind

// Kind is the closed set of marketing content types the loop can produce.
type Kind string

const (
	KindTagline      Kind = "tagline"
	KindDescription  Kind = "description"
	KindSocialPost   Kind = "social_post"
	KindEmailSubject Kind = "email_subject"
	KindBlurb        Kind = "blurb"
)

// #endregion kind

// #region spec

// Spec defines the per-kind generation envelope.
type Spec struct {
	TemplateID   string
	MinWords     int
	MaxWords     int
	MaxTokens    int
	MinSentences int
	MaxSentences int
}

// specs maps every Kind to its envelope. Lookup through SpecFor keeps
// dispatch exhaustive instead of scattering string comparisons.
var specs = map[Kind]Spec{
	KindTagline: {
		TemplateID:   "tpl_tagline_v2",
		MinWords:     3,
		MaxWords:     14,
		MaxTokens:    60,
		MinSentences: 1,
		MaxSentences: 1,
	},
	KindDescription: {
		TemplateID:   "tpl_description_v3",
		MinWords:     60,
		MaxWords:     220,
		MaxTokens:    600,
		MinSentences: 3,
		MaxSentences: 12,
	},
	KindSocialPost: {
		TemplateID:   "tpl_social_v1",
		MinWords:     15,
		MaxWords:     80,
		MaxTokens:    240,
		MinSentences: 1,
		MaxSentences: 5,
	},
	KindEmailSubject: {
		TemplateID:   "tpl_email_subject_v1",
		MinWords:     4,
		MaxWords:     12,
		MaxTokens:    48,
		MinSentences: 1,
		MaxSentences: 1,
	},
	KindBlurb: {
		TemplateID:   "tpl_blurb_v2",
		MinWords:     25,
		MaxWords:     90,
		MaxTokens:    280,
		MinSentences: 2,
		MaxSentences: 6,
	},
}

// #endregion spec

// #region lookup

// All returns every known kind in a stable order.
func All() []Kind {
	return []Kind{KindTagline, KindDescription, KindSocialPost, KindEmailSubject, KindBlurb}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := specs[k]
	return ok
}

// SpecFor returns the envelope for k.
func SpecFor(k Kind) (Spec, error) {
	s, ok := specs[k]
	if !ok {
		return Spec{}, fmt.Errorf("unknown content kind %q", k)
	}
	return s, nil
}

// #endregion lookup
