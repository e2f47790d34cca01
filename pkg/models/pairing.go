package models

// BrandFlag describes how two brands compared during scoring
type BrandFlag string

const (
	BrandEqual    BrandFlag = "equal"
	BrandMismatch BrandFlag = "mismatch"
	BrandUnknown  BrandFlag = "unknown"
)

// ColorTier describes the quality of a dominant-color match
type ColorTier string

const (
	ColorExact ColorTier = "exact"
	ColorClose ColorTier = "close"
	ColorNone  ColorTier = "none"
)

// PairSource identifies how a pair was committed
type PairSource string

const (
	PairSourceAuto  PairSource = "auto"
	PairSourceModel PairSource = "model"
)

// ScoreBreakdown records each signal's contribution to a candidate score
type ScoreBreakdown struct {
	BrandFlag      BrandFlag `json:"brand_flag"`
	BrandScore     float64   `json:"brand_score"`
	ProductJaccard float64   `json:"product_jaccard"`
	VariantJaccard float64   `json:"variant_jaccard"`
	SizeEqual      bool      `json:"size_equal"`
	PackagingMatch bool      `json:"packaging_match"`
	ColorTier      ColorTier `json:"color_tier"`
	CategoryScore  float64   `json:"category_score"`
	ProximityBoost float64   `json:"proximity_boost"`
	BarcodeBoost   float64   `json:"barcode_boost"`
}

// Candidate is a scored (front, back) pairing hypothesis prior to commitment
type Candidate struct {
	FrontKey  string         `json:"front_key"`
	BackKey   string         `json:"back_key"`
	PreScore  float64        `json:"pre_score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// Pair is a committed front/back pairing for a single physical product
type Pair struct {
	ID         string     `json:"id"`
	Front      string     `json:"front"`
	Back       string     `json:"back"`
	Confidence float64    `json:"confidence"`
	Brand      string     `json:"brand,omitempty"`
	Product    string     `json:"product,omitempty"`
	Evidence   []string   `json:"evidence,omitempty"`
	Source     PairSource `json:"source"`
}

// Singleton is an image that could not be paired and needs human review
type Singleton struct {
	ImagePath   string `json:"image_path"`
	Reason      string `json:"reason"`
	NeedsReview bool   `json:"needs_review"`
}

// Group is a finalized set of images belonging to one product, used by the
// orphan reassigner and role reconciler
type Group struct {
	ID     string   `json:"id"`
	Images []string `json:"images"`
}

// OrphanMatch records the reassignment of an orphaned image into a group
type OrphanMatch struct {
	OrphanKey      string  `json:"orphan_key"`
	MatchedGroupID string  `json:"matched_group_id"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
}

// RoleCorrection is a proposed role relabel for one image. Corrections are
// returned to the caller and applied between scan cycles, never in place.
type RoleCorrection struct {
	ImageKey      string    `json:"image_key"`
	OriginalRole  ImageRole `json:"original_role"`
	CorrectedRole ImageRole `json:"corrected_role"`
	Reason        string    `json:"reason"`
}

// ScanMetrics is the observability contract for a pairing run. It is emitted
// even when a scan partially fails.
type ScanMetrics struct {
	Images     int `json:"images"`
	Fronts     int `json:"fronts"`
	Backs      int `json:"backs"`
	Candidates int `json:"candidates"`
	AutoPairs  int `json:"auto_pairs"`
	ModelPairs int `json:"model_pairs"`
	Singletons int `json:"singletons"`
}

// ScanResult is the durable output of a pairing run, consumed by the
// downstream draft-creation service
type ScanResult struct {
	BatchID     string           `json:"batch_id"`
	Pairs       []Pair           `json:"pairs"`
	Singletons  []Singleton      `json:"singletons"`
	Orphans     []OrphanMatch    `json:"orphans,omitempty"`
	Corrections []RoleCorrection `json:"corrections,omitempty"`
	Metrics     ScanMetrics      `json:"metrics"`
}
