package translation

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// PromptBuilder constructs system and user prompts for translation.
type PromptBuilder struct {
	Context string
}

// NewPromptBuilder creates a new prompt builder.
func NewPromptBuilder(context string) *PromptBuilder {
	return &PromptBuilder{Context: context}
}

// LanguageName returns the English name of a locale such as "pt_BR", or the
// locale itself when it cannot be parsed.
func LanguageName(locale string) string {
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return locale
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return locale
}

// SystemPrompt returns the instructions for translating from source to target.
func (pb *PromptBuilder) SystemPrompt(source, target string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a professional software localizer. Translate user interface strings from %s to %s.\n\n",
		LanguageName(source), LanguageName(target))

	if pb.Context != "" {
		fmt.Fprintf(&sb, "The strings belong to: %s.\n\n", pb.Context)
	}

	sb.WriteString(`Rules:
1. Preserve ALL placeholders like {{var_1}}, {{var_2}} exactly as-is.
2. Keep the tone concise and natural for application UI text.
3. Preserve leading and trailing whitespace and the | separators of plural forms.
4. Do NOT add explanations, notes, or extra text.

Return a JSON object with a single key "translations" holding an array of strings in the same order as the input.`)
	return sb.String()
}

// UserPrompt encodes the texts as a JSON array.
func (pb *PromptBuilder) UserPrompt(texts []string) string {
	data, _ := json.Marshal(texts)
	return string(data)
}

// ParseResponse extracts the translations array and checks its length.
func ParseResponse(content string, expected int) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimSuffix(strings.TrimPrefix(content, "```"), "```")

	var obj struct {
		Translations []string `json:"translations"`
	}
	if err := json.Unmarshal([]byte(content), &obj); err != nil || obj.Translations == nil {
		var arr []string
		if arrErr := json.Unmarshal([]byte(content), &arr); arrErr != nil {
			return nil, &APIError{Message: "invalid response format"}
		}
		obj.Translations = arr
	}

	if len(obj.Translations) != expected {
		return nil, &APIError{
			Message:   fmt.Sprintf("translation count mismatch: expected %d, got %d", expected, len(obj.Translations)),
			Retryable: true,
		}
	}
	return obj.Translations, nil
}
