// Package chromem provides an in-memory vector index backed by
// chromem-go. It implements the driven.VectorIndex interface.
//
// Pure Go, no CGO. The index is a rebuildable projection of the
// embedding store and is repopulated on startup.
package chromem
