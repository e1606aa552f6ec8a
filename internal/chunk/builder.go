package chunk

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Builder transforms converted document segments into one Document record
// plus its ordered Chunk records. It performs no I/O.
type Builder struct{}

// NewBuilder creates a chunk builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build normalizes a conversion run into a Document and its chunks.
// The document fingerprint is taken from the first segment and shared by all
// chunks; chunk indexes are assigned by segment order starting at 0 with no
// gaps. Returns ErrEmptyDocument when no segments are supplied.
func (b *Builder) Build(segments []Segment) (Document, []Chunk, error) {
	if len(segments) == 0 {
		return Document{}, nil, ErrEmptyDocument
	}

	origin := segments[0].Origin
	doc := Document{
		DocHash:  origin.BinaryHash,
		Filename: origin.Filename,
		Mimetype: origin.Mimetype,
		ID:       DocumentID(origin.BinaryHash),
	}

	chunks := make([]Chunk, 0, len(segments))
	for i, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			return Document{}, nil, fmt.Errorf("segment %d: %w", i, ErrEmptyText)
		}

		chunks = append(chunks, Chunk{
			ChunkID:       uuid.New(),
			DocHash:       doc.DocHash,
			ChunkIndex:    i,
			Text:          seg.Text,
			Filename:      origin.Filename,
			Title:         firstHeading(seg.Headings),
			PageNumbers:   pageNumbers(seg.DocItems),
			ContentTypes:  contentTypes(seg.DocItems),
			BoundingBoxes: boundingBoxes(seg.DocItems),
		})
	}

	return doc, chunks, nil
}

// firstHeading returns the first non-empty heading in the segment's heading
// path, or "" when the segment has none.
func firstHeading(headings []string) string {
	for _, h := range headings {
		if strings.TrimSpace(h) != "" {
			return h
		}
	}
	return ""
}

// pageNumbers collects the sorted set of distinct page numbers across all
// provenance items. Returns nil when the segment carries no page info.
func pageNumbers(items []DocItem) []int {
	seen := make(map[int]struct{})
	for _, item := range items {
		for _, prov := range item.Prov {
			seen[prov.PageNo] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	pages := make([]int, 0, len(seen))
	for page := range seen {
		pages = append(pages, page)
	}
	sort.Ints(pages)
	return pages
}

// contentTypes collects the deduplicated set of lower-cased content-type
// labels across the segment's items.
func contentTypes(items []DocItem) []string {
	seen := make(map[string]struct{})
	var types []string
	for _, item := range items {
		label := strings.ToLower(item.Label)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		types = append(types, label)
	}
	return types
}

// boundingBoxes serializes one box string per provenance item. Order is not
// guaranteed to be meaningful and duplicates are permitted.
func boundingBoxes(items []DocItem) []string {
	var boxes []string
	for _, item := range items {
		for _, prov := range item.Prov {
			if len(prov.BBox) == 0 {
				continue
			}
			boxes = append(boxes, string(prov.BBox))
		}
	}
	return boxes
}
