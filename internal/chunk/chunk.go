// Package chunk splits extracted policy documents into paragraph units.
package chunk

import "strings"

// Document is one extracted policy document ready for chunking.
type Document struct {
	Name string // file name, becomes the provenance marker
	Text string // full extracted text
}

// Chunk is one indexed unit of policy text. Ordinal is the chunk's global
// position across the whole build and doubles as its vector id. Text always
// begins with a "Source:" line so retrieved context identifies its document
// without a side lookup.
type Chunk struct {
	Source  string `json:"source"`
	Text    string `json:"text"`
	Ordinal int    `json:"ordinal"`
}

// SourceMarker is the provenance prefix carried by every chunk.
const SourceMarker = "Source: "

// Split breaks documents into trimmed, non-empty paragraphs on blank-line
// boundaries, preserving document order and assigning global ordinals.
// Deterministic: identical input always yields identical chunks.
func Split(docs []Document) []Chunk {
	var chunks []Chunk
	ordinal := 0

	for _, doc := range docs {
		for _, para := range strings.Split(doc.Text, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				Source:  doc.Name,
				Text:    SourceMarker + doc.Name + "\n\n" + para,
				Ordinal: ordinal,
			})
			ordinal++
		}
	}

	return chunks
}
