package analyzer

import "image"

// Kind is the storage category of a tag value.
type Kind int

const (
	// KindNumber values are float64.
	KindNumber Kind = iota
	// KindNumberArray values are []float64.
	KindNumberArray
	// KindString values are string.
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "NUMBER"
	case KindNumberArray:
		return "ARRAY_OF_NUMBER"
	case KindString:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// Tagger produces one typed value per image.
//
// Tag returns a nil value when the tag does not apply to the image content
// and an AnalysisFailure error only for infrastructure problems. The image
// may be a *Frame; implementations must not mutate it. Taggers are called
// concurrently on distinct and identical images without synchronization.
type Tagger interface {
	Kind() Kind
	Tag(img image.Image) (any, error)
}

// LiteralParser is implemented by taggers whose values can be written as text.
type LiteralParser interface {
	// ParseLiteral fails with an InvalidLiteral error.
	ParseLiteral(text string) (any, error)
}

// Distancer is implemented by taggers whose values can be ranked.
type Distancer interface {
	// Distance fails with an IncomparableValues error when either argument
	// is not a value of this tagger. ok is false when the metric is
	// undefined for the inputs.
	Distance(a, b any) (d float64, ok bool, err error)
}

// Capabilities describes the optional operations a tagger supports.
type Capabilities struct {
	ParseLiteral bool `json:"parse_literal"`
	Distance     bool `json:"distance"`
}

// CapabilitiesOf inspects a tagger for the optional interfaces.
func CapabilitiesOf(t Tagger) Capabilities {
	_, parses := t.(LiteralParser)
	_, ranks := t.(Distancer)
	return Capabilities{ParseLiteral: parses, Distance: ranks}
}
