package domain

// SimilarityCluster groups records that repeat the same pattern.
// Built transiently during a clustering pass, never persisted.
type SimilarityCluster struct {
	// Centroid is the record the cluster was seeded from.
	Centroid Memory

	// Members are all records in the cluster, centroid included.
	Members []Memory

	// Label is a short description derived from the centroid title.
	Label string
}

// Size returns the member count.
func (c SimilarityCluster) Size() int { return len(c.Members) }
