package models

// ImageResponse is one catalogued image. Absent tags are null.
type ImageResponse struct {
	ID   string                 `json:"id"`
	Path string                 `json:"path"`
	Tags map[string]interface{} `json:"tags"`
}

// ImagesResponse lists the images of a selection
type ImagesResponse struct {
	Count  int             `json:"count"`
	Images []ImageResponse `json:"images"`
}

// TagResponse is a single stored tag value
type TagResponse struct {
	ImageID string      `json:"image_id"`
	Tag     string      `json:"tag"`
	Present bool        `json:"present"`
	Value   interface{} `json:"value"`
}

// TaggerInfo describes a registered tagger
type TaggerInfo struct {
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	Column       string `json:"column"`
	ParseLiteral bool   `json:"parse_literal"`
	Distance     bool   `json:"distance"`
}

// TaggersResponse lists the registered taggers in registration order
type TaggersResponse struct {
	Taggers []TaggerInfo `json:"taggers"`
}

// PassResponse summarizes a finished pass. Error is set when some units
// failed; their siblings were still written.
type PassResponse struct {
	PassID     string   `json:"pass_id"`
	Taggers    []string `json:"taggers"`
	Rows       int      `json:"rows"`
	Units      int      `json:"units"`
	Writes     int      `json:"writes"`
	Failures   int      `json:"failures"`
	DurationMs int64    `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}

// AddImageResponse is the result of cataloguing one image
type AddImageResponse struct {
	Image     ImageResponse `json:"image"`
	Hash      string        `json:"hash,omitempty"`
	Duplicate bool          `json:"duplicate,omitempty"`
	Pass      *PassResponse `json:"pass,omitempty"`
}

// DistanceEntry is one ranked neighbour
type DistanceEntry struct {
	ID       string  `json:"id"`
	Path     string  `json:"path"`
	Distance float64 `json:"distance"`
}

// DistancesResponse ranks images by tag distance to a reference image
type DistancesResponse struct {
	ImageID string          `json:"image_id"`
	Tag     string          `json:"tag"`
	Results []DistanceEntry `json:"results"`
}
