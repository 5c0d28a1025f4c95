package services

// DefaultChunkSize is the maximum chunk length in runes.
const DefaultChunkSize = 1000

// SplitText slices text into fixed-width chunks of at most size runes, in
// order and without overlap, so that concatenating the chunks reproduces
// the input exactly. Only the final chunk may be shorter than size.
// Boundaries ignore word and sentence structure on purpose. Empty input
// yields no chunks.
func SplitText(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}

	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
