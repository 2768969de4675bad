package index

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/complykit/regap/internal/chunk"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
// This constant is shared across all JSONL file readers.
const MaxJSONLLineCapacity = 1024 * 1024

// ReadChunks reads all chunks from a JSONL file.
// A missing file returns nil without error; callers decide whether absence
// is normal or a broken pairing.
func ReadChunks(path string) ([]chunk.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening chunks file: %w", err)
	}
	defer f.Close()

	var chunks []chunk.Chunk
	scanner := bufio.NewScanner(f)

	// Increase buffer size for long lines
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // Skip empty lines
		}

		var c chunk.Chunk
		if err := json.Unmarshal(line, &c); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		chunks = append(chunks, c)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading chunks file: %w", err)
	}

	return chunks, nil
}

// WriteChunks writes all chunks to a JSONL file, replacing existing content.
// Writes go through a temp file and rename so a reader never sees a
// half-written store.
func WriteChunks(path string, chunks []chunk.Chunk) error {
	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating chunks file: %w", err)
	}

	w := bufio.NewWriter(f)
	for i, c := range chunks {
		data, err := json.Marshal(c)
		if err != nil {
			f.Close()
			os.Remove(tempPath)
			return fmt.Errorf("encoding chunk %d: %w", i, err)
		}
		if _, err := w.Write(data); err != nil {
			f.Close()
			os.Remove(tempPath)
			return fmt.Errorf("writing chunk %d: %w", i, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			f.Close()
			os.Remove(tempPath)
			return fmt.Errorf("writing newline: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("flushing chunks file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing chunks file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming chunks file: %w", err)
	}

	return nil
}
