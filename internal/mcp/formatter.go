package mcp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/engram/engram/internal/memory"
)

// Formatter renders tool results as the rich text block MCP clients show a
// human: an icon header, a tool-shaped body, a timing footer, and a raw JSON
// section clients that parse machine output can pull from instead.
type Formatter struct{}

// NewFormatter creates a new formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// FormatToolResponse formats a tool result for display.
func (f *Formatter) FormatToolResponse(toolName string, result interface{}, duration time.Duration) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("\n%s **%s**\n", f.getToolIcon(toolName), f.formatToolName(toolName)))
	sb.WriteString(f.getToolTagline(toolName))
	sb.WriteString("\n")
	sb.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	switch toolName {
	case "remember":
		sb.WriteString(f.formatRemember(result))
	case "recall", "context_hydrate":
		sb.WriteString(f.formatRecall(result))
	case "forget":
		sb.WriteString(f.formatForget(result))
	case "capabilities":
		sb.WriteString(f.formatCapabilities(result))
	default:
		sb.WriteString(f.fallbackJSON(result))
	}

	sb.WriteString("\n\n")
	sb.WriteString(f.formatPerformance(duration))

	if suggestions := f.getSuggestions(toolName); len(suggestions) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString("💡 **Next Steps**\n")
		for _, s := range suggestions {
			sb.WriteString(fmt.Sprintf("   → %s\n", s))
		}
	}

	sb.WriteString("\n\n")
	sb.WriteString("<details>\n<summary>📋 Raw JSON Response</summary>\n\n```json\n")
	sb.WriteString(f.fallbackJSON(result))
	sb.WriteString("\n```\n</details>")

	return sb.String()
}

func (f *Formatter) getToolIcon(toolName string) string {
	icons := map[string]string{
		"remember":        "💾",
		"recall":          "🔍",
		"forget":          "🗑️",
		"capabilities":    "⚙️",
		"context_hydrate": "📥",
	}
	if icon, ok := icons[toolName]; ok {
		return icon
	}
	return "⚡"
}

func (f *Formatter) formatToolName(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		parts[i] = strings.Title(p)
	}
	return strings.Join(parts, " ")
}

func (f *Formatter) getToolTagline(toolName string) string {
	taglines := map[string]string{
		"remember":        "Persisting knowledge for future recall",
		"recall":          "Finding relevant memories across your knowledge base",
		"forget":          "Removing outdated information",
		"capabilities":    "Reporting which features are enabled on this instance",
		"context_hydrate": "Pre-loading context for an upcoming task",
	}
	if tagline, ok := taglines[toolName]; ok {
		return fmt.Sprintf("*%s*", tagline)
	}
	return ""
}

func (f *Formatter) formatRemember(result interface{}) string {
	out, ok := result.(*memory.RememberOutput)
	if !ok {
		return f.fallbackJSON(result)
	}

	label := "Memory Stored"
	if out.Status == memory.StatusUpdated {
		label = "Memory Updated"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("✅ **%s**\n\n", label))
	sb.WriteString("┌─────────────────────────────────────┐\n")
	sb.WriteString(fmt.Sprintf("│ 🆔 ID: `%s`\n", f.truncateID(out.ID)))
	sb.WriteString(fmt.Sprintf("│ 📌 Status: %s\n", out.Status))
	sb.WriteString("└─────────────────────────────────────┘")
	return sb.String()
}

func (f *Formatter) formatRecall(result interface{}) string {
	out, ok := result.(*memory.RecallOutput)
	if !ok {
		return f.fallbackJSON(result)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 **Found %d result(s)**", len(out.Results)))
	if out.FallbackMode {
		sb.WriteString(" *(recency fallback — empty query)*")
	}
	sb.WriteString("\n")

	if len(out.Results) == 0 {
		sb.WriteString("\n```\nNo memories match this query.\n```\n")
		sb.WriteString("\n💡 Try a broader query or drop the category filter.")
		return sb.String()
	}

	sb.WriteString("\n")
	for i, r := range out.Results {
		sb.WriteString(f.formatRecallResult(i+1, r))
	}
	return sb.String()
}

func (f *Formatter) formatRecallResult(num int, r memory.RecallResult) string {
	var sb strings.Builder
	relevanceBar := f.makeProgressBar(r.Relevance, 10)
	relevancePercent := int(r.Relevance * 100)

	sb.WriteString(fmt.Sprintf("### %d. Memory `%s`\n", num, f.truncateID(r.ID)))
	sb.WriteString(fmt.Sprintf("**Relevance:** %s %d%%\n\n", relevanceBar, relevancePercent))
	sb.WriteString(fmt.Sprintf("> %s\n\n", f.truncateContent(r.Content, 200)))

	sb.WriteString("```yaml\n")
	sb.WriteString(fmt.Sprintf("strength: %.2f\n", r.Strength))
	if r.Category != "" {
		sb.WriteString(fmt.Sprintf("category: %s\n", r.Category))
	}
	sb.WriteString(fmt.Sprintf("access_count: %d\n", r.AccessCount))
	sb.WriteString(fmt.Sprintf("created: %s\n", r.CreatedAt.Format("Jan 02, 2006 15:04")))
	sb.WriteString("```\n\n")
	return sb.String()
}

func (f *Formatter) formatForget(result interface{}) string {
	out, ok := result.(*memory.ForgetOutput)
	if !ok {
		return f.fallbackJSON(result)
	}
	if !out.Deleted {
		return fmt.Sprintf("❌ **Nothing Deleted**\n\nNo matching memory for `%s` in scope.", f.truncateID(out.ID))
	}
	return fmt.Sprintf("✅ **Memory Deleted**\n\n🆔 ID: `%s`", f.truncateID(out.ID))
}

func (f *Formatter) formatCapabilities(result interface{}) string {
	caps, ok := result.(memory.Capabilities)
	if !ok {
		return f.fallbackJSON(result)
	}

	var sb strings.Builder
	sb.WriteString("⚙️ **Feature Flags**\n\n")
	sb.WriteString("```yaml\n")
	sb.WriteString(fmt.Sprintf("version: %s\n", caps.Version))
	sb.WriteString(fmt.Sprintf("scopes: %s\n", f.boolToEmoji(caps.Scopes)))
	sb.WriteString(fmt.Sprintf("idempotency: %s\n", f.boolToEmoji(caps.Idempotency)))
	sb.WriteString(fmt.Sprintf("context_hydration: %s\n", f.boolToEmoji(caps.ContextHydration)))
	sb.WriteString(fmt.Sprintf("work_items: %s\n", f.boolToEmoji(caps.WorkItems)))
	sb.WriteString(fmt.Sprintf("tools: [%s]\n", strings.Join(caps.Tools, ", ")))
	sb.WriteString("```")
	return sb.String()
}

func (f *Formatter) formatPerformance(duration time.Duration) string {
	ms := duration.Milliseconds()
	var speedIcon string
	switch {
	case ms < 100:
		speedIcon = "⚡"
	case ms < 500:
		speedIcon = "🚀"
	case ms < 1000:
		speedIcon = "✓"
	default:
		speedIcon = "🐢"
	}
	return fmt.Sprintf("%s *Completed in %dms*", speedIcon, ms)
}

func (f *Formatter) getSuggestions(toolName string) []string {
	suggestions := map[string][]string{
		"remember": {
			"Use `recall` to verify the memory was indexed",
			"Set `idempotency_key` to make repeated calls safe to retry",
		},
		"recall": {
			"Narrow `category` or raise `min_strength` to tighten results",
			"Use `context_hydrate` at the start of a task instead of a one-off recall",
		},
		"forget": {
			"Pass `scope_id` when scopes are enabled to avoid an unscoped no-op",
		},
	}
	if s, ok := suggestions[toolName]; ok {
		return s
	}
	return nil
}

func (f *Formatter) makeProgressBar(value float64, width int) string {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	filled := int(value * float64(width))
	empty := width - filled
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", empty) + "]"
}

func (f *Formatter) truncateID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:8] + "..."
}

func (f *Formatter) truncateContent(content string, maxLen int) string {
	content = strings.ReplaceAll(content, "\n", " ")
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen-3] + "..."
}

func (f *Formatter) boolToEmoji(b bool) string {
	if b {
		return "✅"
	}
	return "❌"
}

func (f *Formatter) fallbackJSON(result interface{}) string {
	jsonBytes, _ := json.MarshalIndent(result, "", "  ")
	return string(jsonBytes)
}
