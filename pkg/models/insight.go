package models

// ImageRole represents the vision classifier's role label for a product photo
type ImageRole string

const (
	RoleFront   ImageRole = "front"
	RoleBack    ImageRole = "back"
	RoleOther   ImageRole = "other"
	RoleUnclear ImageRole = "unclear"
)

// PackagingType represents the physical packaging observed in a photo
type PackagingType string

const (
	PackagingBottle  PackagingType = "bottle"
	PackagingJar     PackagingType = "jar"
	PackagingTub     PackagingType = "tub"
	PackagingPouch   PackagingType = "pouch"
	PackagingBox     PackagingType = "box"
	PackagingSachet  PackagingType = "sachet"
	PackagingUnknown PackagingType = "unknown"
)

// ImageInsight is the per-image classification record produced by the
// external vision classifier. The pairing engine treats it as read-only input.
type ImageInsight struct {
	ImageKey          string        `json:"image_key"`
	Role              ImageRole     `json:"role"`
	RoleScore         float64       `json:"role_score"`
	Brand             string        `json:"brand,omitempty"`
	ProductName       string        `json:"product_name,omitempty"`
	Variant           string        `json:"variant,omitempty"`
	Size              string        `json:"size,omitempty"`
	PackagingType     PackagingType `json:"packaging_type,omitempty"`
	ColorSignature    []string      `json:"color_signature,omitempty"`
	KeyText           []string      `json:"key_text,omitempty"`
	OCRText           string        `json:"ocr_text,omitempty"`
	VisualDescription string        `json:"visual_description,omitempty"`
	EvidenceTriggers  []string      `json:"evidence_triggers,omitempty"`
	TextEmbedding     []float64     `json:"text_embedding,omitempty"`
	ImageEmbedding    []float64     `json:"image_embedding,omitempty"`
	CaptureIndex      *int          `json:"capture_index,omitempty"`
}

// Feature is the engine's normalized view of an ImageInsight. Features are
// built once per scan and are immutable afterwards.
type Feature struct {
	ImageInsight

	IsFront bool `json:"is_front"`
	IsBack  bool `json:"is_back"`
	IsOther bool `json:"is_other"`

	// Normalized text derived from the raw insight
	NormalizedBrand string   `json:"normalized_brand,omitempty"`
	ProductTokens   []string `json:"product_tokens,omitempty"`
	VariantTokens   []string `json:"variant_tokens,omitempty"`

	// GroupHint carries an upstream clustering assignment if one exists
	GroupHint string `json:"group_hint,omitempty"`
}
