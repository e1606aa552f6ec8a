// Package chunk builds normalized chunk records from converted document segments.
package chunk

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Segment is one chunk-sized unit produced by the external document-conversion
// stage, carrying raw text plus provenance metadata.
type Segment struct {
	Text     string    `json:"text"`
	Headings []string  `json:"headings,omitempty"`
	Origin   Origin    `json:"origin"`
	DocItems []DocItem `json:"doc_items,omitempty"`
}

// Origin identifies the source file a segment was extracted from.
// BinaryHash is the content fingerprint of the whole file, shared by
// every segment of one conversion run.
type Origin struct {
	Filename   string `json:"filename"`
	Mimetype   string `json:"mimetype"`
	BinaryHash string `json:"binary_hash"`
}

// DocItem is one labelled layout element contributing to a segment.
type DocItem struct {
	Label string       `json:"label"`
	Prov  []Provenance `json:"prov,omitempty"`
}

// Provenance locates a layout element on a source page.
type Provenance struct {
	PageNo int             `json:"page_no"`
	BBox   json.RawMessage `json:"bbox,omitempty"`
}

// Document is the parent record for one ingested source file.
// ID is derived deterministically from DocHash so re-ingesting the same
// file content always yields the same Document identity.
type Document struct {
	DocHash  string    `json:"doc_hash"`
	Filename string    `json:"filename"`
	Mimetype string    `json:"mimetype"`
	ID       uuid.UUID `json:"id"`
}

// Chunk is one bounded unit of document text with provenance metadata and,
// once embedded, a vector. ChunkID is globally unique and immutable;
// (DocHash, ChunkIndex) defines chunk order within a document.
type Chunk struct {
	ChunkID       uuid.UUID `json:"chunk_id"`
	DocHash       string    `json:"doc_hash"`
	ChunkIndex    int       `json:"chunk_index"`
	Text          string    `json:"text"`
	Filename      string    `json:"filename"`
	Title         string    `json:"title,omitempty"`
	PageNumbers   []int     `json:"page_numbers,omitempty"`
	ContentTypes  []string  `json:"content_types,omitempty"`
	BoundingBoxes []string  `json:"bounding_boxes,omitempty"`
	Vector        []float32 `json:"vector,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// DocumentID derives the deterministic Document identity for a content hash.
// This is the idempotence anchor for ingestion.
func DocumentID(docHash string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(docHash))
}
