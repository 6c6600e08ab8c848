package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"tripradarbackend/internal/llm"
	"tripradarbackend/internal/radar"
)

// defaultMaxSteps bounds the tool-calling loop of a single invocation.
const defaultMaxSteps = 12

const systemPrompt = "You are an AI Event Detection Agent. Use the tools to gather " +
	"fresh evidence. You MUST call web_search at least once and " +
	"web_scrape for every URL you reference in sources. " +
	"For hazards, use official_hazard_search and official_hazard_scrape " +
	"for authoritative sources. " +
	"Only suggest events that match the itinerary dates/locations " +
	"and the user's preferences. Ensure hazards are time-sensitive " +
	"and opportunities are temporally relevant. " +
	"Return JSON only following the provided schema."

const formatInstructions = `Respond with JSON using this schema:
{
  "events": [
    {
      "category": "hazard" | "opportunity",
      "title": "short headline",
      "location": "location tied to the event",
      "date": "YYYY-MM-DD",
      "time_window": "optional time window",
      "description": "what is happening",
      "rationale": "why this matters for the traveler",
      "recommendation": "suggested action or mitigation",
      "proposed_change": "concrete change suggested to the itinerary",
      "itinerary_day": "optional day number",
      "itinerary_row_id": "optional row id",
      "change_type": "move" | "cancel" | "swap" | "add" | "replace",
      "new_time": "optional new time window",
      "new_location": "optional new location",
      "sources": [{"title": "...", "url": "...", "snippet": "..."}],
      "confidence": 0.0
    }
  ]
}
Return at least one hazard and one opportunity if evidence is available.`

// Dispatcher executes named tool calls.
type Dispatcher interface {
	Call(ctx context.Context, name, input string) string
}

// Agent drives the chat model through a bounded tool-calling loop and
// implements radar.Invoker.
type Agent struct {
	Client      llm.ChatClient
	Model       string
	Temperature float64
	MaxTokens   int
	Tools       Dispatcher
	MaxSteps    int
}

// Run performs one full agent invocation and returns the final text output
// together with the ordered tool trace.
func (a *Agent) Run(ctx context.Context, req radar.AgentRequest) (radar.AgentResult, error) {
	if a.Client == nil || a.Model == "" {
		return radar.AgentResult{}, fmt.Errorf("agent: client and model are required")
	}

	userContent, err := buildUserPrompt(req)
	if err != nil {
		return radar.AgentResult{}, err
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userContent},
	}

	maxSteps := a.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}

	var trace []radar.ToolCall
	for step := 0; step < maxSteps; step++ {
		resp, err := a.Client.ChatCompletion(ctx, llm.ChatCompletionRequest{
			Model:       a.Model,
			Messages:    messages,
			Tools:       a.toolDefinitions(),
			Temperature: a.Temperature,
			MaxTokens:   a.MaxTokens,
		})
		if err != nil {
			return radar.AgentResult{}, fmt.Errorf("agent: chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return radar.AgentResult{}, fmt.Errorf("agent: response missing choices")
		}

		message := resp.Choices[0].Message
		if len(message.ToolCalls) == 0 {
			return radar.AgentResult{Output: message.Content, Trace: trace}, nil
		}

		messages = append(messages, message)
		for _, call := range message.ToolCalls {
			input := parseToolInput(call.Function.Arguments)
			trace = append(trace, radar.ToolCall{Tool: call.Function.Name, Input: input})

			observation := ""
			if a.Tools != nil {
				observation = a.Tools.Call(ctx, call.Function.Name, input)
			}
			log.Printf("agent: %s(%q) -> %d bytes", call.Function.Name, input, len(observation))
			messages = append(messages, llm.Message{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    observation,
			})
		}
	}

	return radar.AgentResult{Trace: trace}, fmt.Errorf("agent: tool loop exceeded %d steps", maxSteps)
}

func buildUserPrompt(req radar.AgentRequest) (string, error) {
	contextBlob, err := json.Marshal(req.Context)
	if err != nil {
		return "", fmt.Errorf("agent: marshal context: %w", err)
	}
	memoryBlob, err := json.Marshal(req.MemoryEvents)
	if err != nil {
		return "", fmt.Errorf("agent: marshal memory events: %w", err)
	}
	blockedBlob, err := json.Marshal(req.Blocked)
	if err != nil {
		return "", fmt.Errorf("agent: marshal blocked ids: %w", err)
	}

	queries := strings.Join(req.Queries, "\n")
	if len(req.Corrections) > 0 {
		queries += "\n" + strings.Join(req.Corrections, "\n")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "User preferences:\n%s\n\n", req.Preferences)
	fmt.Fprintf(&sb, "Itinerary rows:\n%s\n\n", req.Itinerary)
	fmt.Fprintf(&sb, "Itinerary context:\n%s\n\n", contextBlob)
	fmt.Fprintf(&sb, "Priority web queries (use as guidance):\n%s\n\n", queries)
	fmt.Fprintf(&sb, "Memory summary:\n%s\nRaw events: %s\n\n", req.MemorySummary, memoryBlob)
	fmt.Fprintf(&sb, "Blocked events (recently rejected):\n%s\n\n", blockedBlob)
	sb.WriteString("For each event, include itinerary_day, itinerary_row_id, change_type, " +
		"and any new_time/new_location if applicable.\n\n")
	sb.WriteString("Event dates MUST be ISO format YYYY-MM-DD.\n\n")
	sb.WriteString(formatInstructions)

	return sb.String(), nil
}

func (a *Agent) toolDefinitions() []llm.Tool {
	queryParams := json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`)
	urlParams := json.RawMessage(`{"type":"object","properties":{"url":{"type":"string"}},"required":["url"]}`)

	return []llm.Tool{
		{Type: "function", Function: llm.ToolFunction{
			Name:        "web_search",
			Description: "Search the web and return top results as 'title - url' lines.",
			Parameters:  queryParams,
		}},
		{Type: "function", Function: llm.ToolFunction{
			Name:        "web_scrape",
			Description: "Fetch a URL and return a cleaned text excerpt.",
			Parameters:  urlParams,
		}},
		{Type: "function", Function: llm.ToolFunction{
			Name:        "official_hazard_search",
			Description: "Search official/government sources for hazard advisories.",
			Parameters:  queryParams,
		}},
		{Type: "function", Function: llm.ToolFunction{
			Name:        "official_hazard_scrape",
			Description: "Scrape an official advisory page for hazard-relevant excerpts.",
			Parameters:  urlParams,
		}},
	}
}

// parseToolInput extracts the query or url argument from the model's raw
// arguments JSON; malformed payloads fall back to the raw string.
func parseToolInput(arguments string) string {
	var decoded struct {
		Query string `json:"query"`
		URL   string `json:"url"`
	}
	if err := json.Unmarshal([]byte(arguments), &decoded); err != nil {
		return strings.TrimSpace(arguments)
	}
	if decoded.Query != "" {
		return decoded.Query
	}
	if decoded.URL != "" {
		return decoded.URL
	}
	return strings.TrimSpace(arguments)
}
