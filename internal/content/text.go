package content

// extractText uses the first line as the title and the whole file as the
// body.
func extractText(data []byte) *ProcessedContent {
	raw := string(data)
	return &ProcessedContent{
		Title: firstLine(raw),
		Body:  raw,
	}
}
