package domain

import "time"

// EntityKind identifies a logical collection of embeddable records.
// Each kind gets its own embedding table; a store for one kind never
// mixes vectors from another.
type EntityKind string

const (
	KindMemory     EntityKind = "memories"
	KindDocSection EntityKind = "doc_sections"
	KindAgent      EntityKind = "agents"
	KindSkill      EntityKind = "skills"
	KindTask       EntityKind = "tasks"
)

// Valid reports whether the kind is one of the registered collections.
// Table names are derived from kinds, so only registered values are
// ever interpolated into SQL.
func (k EntityKind) Valid() bool {
	switch k {
	case KindMemory, KindDocSection, KindAgent, KindSkill, KindTask:
		return true
	}
	return false
}

// Memory is a structured note captured during a development session:
// a decision, a recurring fix, a convention worth keeping.
type Memory struct {
	// ID is the unique identifier for the memory.
	ID string

	// ProjectID scopes the memory to one project. Empty means global.
	ProjectID string

	// Title is a short human-readable summary.
	Title string

	// Content is the full text of the memory.
	Content string

	// Category groups memories (e.g. "decision", "gotcha", "convention").
	Category string

	// CreatedAt is when the memory was first saved.
	CreatedAt time.Time

	// UpdatedAt is when the memory was last updated.
	UpdatedAt time.Time
}

// EmbedID implements Embeddable.
func (m Memory) EmbedID() string { return m.ID }

// EmbedText implements Embeddable. Title and content together carry
// the semantic meaning used for retrieval.
func (m Memory) EmbedText() string {
	if m.Title == "" {
		return m.Content
	}
	return m.Title + "\n" + m.Content
}

// Embeddable is any record that can be turned into a vector and
// retrieved by meaning.
type Embeddable interface {
	// EmbedID returns the entity identifier the vector is stored under.
	EmbedID() string

	// EmbedText returns the text whose meaning the vector represents.
	EmbedText() string
}

// EmbeddingRecord is one stored vector for one entity.
type EmbeddingRecord struct {
	// EntityID identifies the owning entity within its kind.
	EntityID string

	// Vector is the fixed-length embedding.
	Vector []float32

	// CreatedAt is when the vector was stored.
	CreatedAt time.Time
}
