// Package sessionlog reads the JSONL session logs that coding agents write to
// disk and turns every assistant turn carrying token usage into a Message.
//
// Two record layouts are understood:
//
//	{"type":"message","message":{"role":"assistant","usage":{"input":..,"cacheRead":..}}}
//	{"type":"assistant","message":{"usage":{"input_tokens":..,"cache_read_input_tokens":..}}}
//
// The first may carry its own usage.cost; the second is always priced from
// the catalog.
package sessionlog

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/pricing"
)

const (
	recordTypeAgent     = "message"
	recordTypeAssistant = "assistant"

	defaultModel             = "unknown"
	defaultAgentProvider     = "unknown"
	defaultAssistantProvider = "anthropic"

	maxLineBytes = 64 * 1024 * 1024
)

type Message struct {
	Timestamp        string            `json:"timestamp"`
	Model            string            `json:"model"`
	Provider         string            `json:"provider"`
	InputTokens      int64             `json:"input_tokens"`
	OutputTokens     int64             `json:"output_tokens"`
	CacheReadTokens  int64             `json:"cache_read_tokens"`
	CacheWriteTokens int64             `json:"cache_write_tokens"`
	CostTotal        float64           `json:"cost_total"`
	CostBreakdown    pricing.Breakdown `json:"cost_breakdown"`
	SessionID        string            `json:"session_id"`
	SessionFile      string            `json:"session_file"`
	Project          string            `json:"project"`
	Tools            []string          `json:"tools"`
}

func (m *Message) TotalTokens() int64 {
	return m.InputTokens + m.OutputTokens + m.CacheReadTokens + m.CacheWriteTokens
}

// Time is the parsed timestamp; ok is false when the record had none or it
// could not be parsed.
func (m *Message) Time() (time.Time, bool) {
	t, err := common.ParseTimestamp(m.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameSessionLog)
}

// NormalizeToolName groups MCP tools by server:
//
//	mcp__claude-in-chrome__computer           -> chrome-browser
//	mcp__plugin_playwright_browser__snapshot  -> playwright
//	mcp__github__create_issue                 -> github
//	Bash                                      -> Bash
func NormalizeToolName(name string) string {
	if !strings.HasPrefix(name, "mcp__") {
		return name
	}
	if strings.HasPrefix(name, "mcp__claude-in-chrome__") {
		return "chrome-browser"
	}
	if rest, ok := strings.CutPrefix(name, "mcp__plugin_"); ok {
		return strings.Split(rest, "_")[0]
	}
	if parts := strings.Split(name, "__"); len(parts) >= 2 {
		return parts[1]
	}
	return name
}

// ProjectFromPath derives the project name from where the log lives.
func ProjectFromPath(path string) string {
	p := filepath.ToSlash(path)

	if _, rest, ok := strings.Cut(p, "/.claude/projects/"); ok {
		dir, _, _ := strings.Cut(rest, "/")
		segments := strings.Split(dir, "-")
		if last := segments[len(segments)-1]; last != "" {
			return last
		}
		return dir
	}

	if _, rest, ok := strings.Cut(p, "/.openclaw/agents/"); ok {
		agent, _, _ := strings.Cut(rest, "/")
		return "openclaw-" + agent
	}

	return "unknown"
}

func stringOr(r gjson.Result, fallback string) string {
	if !r.Exists() {
		return fallback
	}
	return r.String()
}

func extractTools(message gjson.Result) []string {
	content := message.Get("content")
	if !content.IsArray() {
		return []string{}
	}

	seen := map[string]struct{}{}
	content.ForEach(func(_, item gjson.Result) bool {
		if item.Get("type").String() != "tool_use" {
			return true
		}
		if name := item.Get("name").String(); name != "" {
			seen[NormalizeToolName(name)] = struct{}{}
		}
		return true
	})

	tools := make([]string, 0, len(seen))
	for name := range seen {
		tools = append(tools, name)
	}
	sort.Strings(tools)
	return tools
}

// parseRecord returns false for records without assistant usage.
func parseRecord(record gjson.Result, catalog pricing.Catalog, msg *Message) bool {
	message := record.Get("message")
	if !message.IsObject() {
		return false
	}
	usage := message.Get("usage")
	if !usage.IsObject() || len(usage.Map()) == 0 {
		return false
	}

	msg.Timestamp = record.Get("timestamp").String()
	msg.Model = stringOr(message.Get("model"), defaultModel)

	switch record.Get("type").String() {
	case recordTypeAgent:
		if message.Get("role").String() != "assistant" {
			return false
		}
		msg.Provider = stringOr(message.Get("provider"), defaultAgentProvider)
		msg.InputTokens = usage.Get("input").Int()
		msg.OutputTokens = usage.Get("output").Int()
		msg.CacheReadTokens = usage.Get("cacheRead").Int()
		msg.CacheWriteTokens = usage.Get("cacheWrite").Int()

		if cost := usage.Get("cost"); cost.IsObject() && len(cost.Map()) > 0 {
			msg.CostTotal = cost.Get("total").Float()
			msg.CostBreakdown = pricing.Breakdown{
				Input:      cost.Get("input").Float(),
				Output:     cost.Get("output").Float(),
				CacheRead:  cost.Get("cacheRead").Float(),
				CacheWrite: cost.Get("cacheWrite").Float(),
			}
			return true
		}

	case recordTypeAssistant:
		msg.Provider = stringOr(record.Get("provider"), defaultAssistantProvider)
		msg.InputTokens = usage.Get("input_tokens").Int()
		msg.OutputTokens = usage.Get("output_tokens").Int()
		msg.CacheReadTokens = usage.Get("cache_read_input_tokens").Int()
		msg.CacheWriteTokens = usage.Get("cache_creation_input_tokens").Int()

	default:
		return false
	}

	msg.CostTotal, msg.CostBreakdown = catalog.ComputeCost(msg.Model, pricing.Tokens{
		Input:      msg.InputTokens,
		Output:     msg.OutputTokens,
		CacheRead:  msg.CacheReadTokens,
		CacheWrite: msg.CacheWriteTokens,
	}, nil)
	return true
}

// ParseFile extracts every assistant usage record of one session file.
// Malformed lines are logged and skipped.
func ParseFile(path string, catalog pricing.Catalog) ([]Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sessionID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	project := ProjectFromPath(path)

	messages := []Message{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !gjson.Valid(line) {
			logger().Warn("Malformed JSON line in session file", zap.String("path", path), zap.Int("line", lineNum))
			continue
		}

		record := gjson.Parse(line)
		msg := Message{
			SessionID:   sessionID,
			SessionFile: path,
			Project:     project,
		}
		if !parseRecord(record, catalog, &msg) {
			continue
		}
		msg.Tools = extractTools(record.Get("message"))
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return messages, err
	}
	return messages, nil
}

// FindSessionFiles returns every *.jsonl below the given roots, sorted.
// Missing roots are skipped.
func FindSessionFiles(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		root = common.ExpandHome(root)
		if _, err := os.Stat(root); err != nil {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), ".jsonl") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}
