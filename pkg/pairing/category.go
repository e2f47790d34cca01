package pairing

import "strings"

// CategoryBucket represents a coarse product category used for pairing
// compatibility checks
type CategoryBucket string

const (
	BucketSupplement CategoryBucket = "supplement"
	BucketFood       CategoryBucket = "food"
	BucketHair       CategoryBucket = "hair"
	BucketCosmetic   CategoryBucket = "cosmetic"
	BucketAccessory  CategoryBucket = "accessory"
	BucketOther      CategoryBucket = "other"
)

// bucketKeywords maps trigger substrings to buckets. First match wins, in
// bucket priority order below.
var bucketKeywords = []struct {
	bucket   CategoryBucket
	keywords []string
}{
	{BucketSupplement, []string{
		"supplement", "vitamin", "capsule", "tablet", "softgel", "gummies",
		"probiotic", "collagen", "protein powder", "omega", "multivitamin",
	}},
	{BucketHair, []string{
		"hair", "shampoo", "conditioner", "scalp", "pomade", "beard",
	}},
	{BucketCosmetic, []string{
		"cosmetic", "serum", "moisturizer", "lotion", "makeup", "skincare",
		"skin care", "facial", "cleanser", "toner", "sunscreen", "lip balm",
	}},
	{BucketFood, []string{
		"food", "snack", "tea", "coffee", "sauce", "honey", "spice", "seasoning",
		"candy", "chocolate", "cereal", "granola", "syrup", "drink",
	}},
	{BucketAccessory, []string{
		"accessory", "brush", "comb", "applicator", "sponge", "tool", "case",
	}},
}

// incompatibleBuckets lists bucket pairs that essentially never belong to the
// same physical product
var incompatibleBuckets = map[CategoryBucket]map[CategoryBucket]bool{
	BucketHair: {BucketSupplement: true, BucketFood: true},
	BucketCosmetic: {BucketFood: true},
	BucketAccessory: {BucketSupplement: true, BucketFood: true},
}

// BucketFor classifies a free-text category description into a bucket
func BucketFor(text string) CategoryBucket {
	lowered := strings.ToLower(text)
	for _, entry := range bucketKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lowered, keyword) {
				return entry.bucket
			}
		}
	}
	return BucketOther
}

// CategoryCompat scores the compatibility of two free-text category
// descriptions using the default weight
func CategoryCompat(a, b string) float64 {
	return bucketCompat(BucketFor(a), BucketFor(b), 1.0)
}

// bucketCompat scores two buckets: same bucket is a strong positive, an
// "other" bucket on either side is a weak positive (we know too little to
// penalize), known-incompatible pairs are penalized, and the food/supplement
// pair gets a small positive since the two regularly blur together.
func bucketCompat(a, b CategoryBucket, weight float64) float64 {
	if a == BucketOther || b == BucketOther {
		return 0.2 * weight
	}
	if a == b {
		return 1.5 * weight
	}
	if incompatibleBuckets[a][b] || incompatibleBuckets[b][a] {
		return -2.0 * weight
	}
	if (a == BucketFood && b == BucketSupplement) || (a == BucketSupplement && b == BucketFood) {
		return 0.4 * weight
	}
	return 0
}
