package types

// Category is the closed set of sections an article can be filed under
type Category string

// Category values accepted from the generative service
const (
	CategoryNews       Category = "news"
	CategoryTechnology Category = "technology"
	CategoryBusiness   Category = "business"
	CategoryScience    Category = "science"
	CategoryCulture    Category = "culture"
	CategoryOpinion    Category = "opinion"
)

// DefaultCategory is used when the response omits or invents a category.
const DefaultCategory = CategoryNews

// Categories lists every valid category in prompt order.
func Categories() []Category {
	return []Category{
		CategoryNews,
		CategoryTechnology,
		CategoryBusiness,
		CategoryScience,
		CategoryCulture,
		CategoryOpinion,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// QuotePosition is where a featured quote is placed in the layout
type QuotePosition string

// Quote positions
const (
	QuoteLeft   QuotePosition = "left"
	QuoteCenter QuotePosition = "center"
	QuoteRight  QuotePosition = "right"
)

// Valid reports whether p is left, center, or right.
func (p QuotePosition) Valid() bool {
	return p == QuoteLeft || p == QuoteCenter || p == QuoteRight
}

// Citation points at a source the rewrite relied on
type Citation struct {
	Title string `json:"title" validate:"required_without=URL"`
	URL   string `json:"url" validate:"omitempty,url"`
}

// Quote is a featured pull quote
type Quote struct {
	Text        string        `json:"text" validate:"required"`
	Attribution string        `json:"attribution,omitempty"`
	Position    QuotePosition `json:"position" validate:"oneof=left center right"`
}

// RecoveryLayer names the parser layer that produced a RewriteResult.
type RecoveryLayer string

// Recovery layers in the order they are attempted
const (
	LayerStructural RecoveryLayer = "structural"
	LayerLoose      RecoveryLayer = "loose"
	LayerDegraded   RecoveryLayer = "degraded"
)

// RewriteResult is the structured rewrite returned by the generative service.
// It is produced fresh for every attempt and never merged across attempts.
type RewriteResult struct {
	Title       string     `json:"title"`
	Rewritten   string     `json:"rewritten"`
	Summary     string     `json:"summary"`
	Tags        []string   `json:"tags"`
	Citations   []Citation `json:"citations"`
	Topic       string     `json:"topic"`
	Category    Category   `json:"category"`
	PhotoCredit string     `json:"photoCredit,omitempty"`
	Quotes      []Quote    `json:"quotes"`

	Layer RecoveryLayer `json:"-"`
}

// Degraded reports whether the result was synthesized from unstructured text.
func (r *RewriteResult) Degraded() bool {
	return r.Layer == LayerDegraded
}
