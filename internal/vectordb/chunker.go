package vectordb

// chunkText splits content into overlapping chunks of at most size runes.
// Consecutive chunks share overlap runes so sentence fragments at chunk
// boundaries stay queryable. Splitting happens on runes, never bytes, so
// multibyte characters are not cut in half.
func chunkText(content string, size, overlap int) []string {
	if content == "" {
		return nil
	}
	if size <= 0 {
		return []string{content}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(content)
	if len(runes) <= size {
		return []string{content}
	}

	step := size - overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}
