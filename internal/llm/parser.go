package llm

import "strings"

// CleanMarkdownWrapper strips a markdown code fence from around a response.
// Models regularly wrap JSON in ```json ... ``` despite instructions not to.
func CleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```JSON")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	return strings.TrimSpace(content)
}
