package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/kaidi-io/kaidibot/internal/config"
	"github.com/kaidi-io/kaidibot/internal/provider"
	"github.com/kaidi-io/kaidibot/pkg/protocol"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "chat":
		cmdChat(os.Args[2:])
	case "health":
		cmdHealth()
	case "orders":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: kaidictl orders <list|show>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "list":
			cmdOrdersList(os.Args[3:])
		case "show":
			if len(os.Args) < 4 {
				fmt.Fprintln(os.Stderr, "usage: kaidictl orders show <chat_id>")
				os.Exit(1)
			}
			cmdOrdersShow(os.Args[3])
		default:
			fmt.Fprintf(os.Stderr, "unknown orders subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "conversations":
		cmdConversations(os.Args[2:])
	case "logs":
		cmdLogs(os.Args[2:])
	case "config":
		if len(os.Args) < 4 || os.Args[2] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: kaidictl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(os.Args[3])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// --- chat command ---

func cmdChat(args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	provType := fs.String("provider", envOr("KAIDI_PROVIDER", "openai"), "Provider type: openai or anthropic")
	model := fs.String("model", envOr("KAIDI_MODEL", ""), "LLM model name")
	apiKey := fs.String("api-key", "", "API key (or set KAIDI_OPENAI_API_KEY / KAIDI_ANTHROPIC_API_KEY)")
	baseURL := fs.String("base-url", envOr("KAIDI_BASE_URL", ""), "Override API base URL")
	prompt := fs.String("prompt", "", "Single prompt (omit for interactive)")
	fs.Parse(args)

	if *apiKey == "" {
		switch *provType {
		case "anthropic":
			*apiKey = os.Getenv("KAIDI_ANTHROPIC_API_KEY")
		default:
			*apiKey = os.Getenv("KAIDI_OPENAI_API_KEY")
		}
	}
	if *apiKey == "" {
		fmt.Fprintln(os.Stderr, "error: API key required (--api-key, KAIDI_OPENAI_API_KEY, or KAIDI_ANTHROPIC_API_KEY)")
		os.Exit(1)
	}

	var prov provider.Provider
	switch *provType {
	case "anthropic":
		var opts []provider.AnthropicOption
		if *model != "" {
			opts = append(opts, provider.WithAnthropicModel(*model))
		}
		if *baseURL != "" {
			opts = append(opts, provider.WithAnthropicBaseURL(*baseURL))
		}
		prov = provider.NewAnthropic(*apiKey, opts...)
	default:
		var opts []provider.OpenAIOption
		if *model != "" {
			opts = append(opts, provider.WithModel(*model))
		}
		if *baseURL != "" {
			opts = append(opts, provider.WithBaseURL(*baseURL))
		}
		prov = provider.NewOpenAI(*apiKey, opts...)
	}

	ctx := context.Background()
	if *prompt != "" {
		ask(ctx, prov, *prompt)
		return
	}

	fmt.Println("kaidictl chat (type 'quit' to exit)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		ask(ctx, prov, line)
		fmt.Println()
	}
}

// ask streams the answer to stdout.
func ask(ctx context.Context, prov provider.Provider, prompt string) {
	stream, err := prov.ChatStream(ctx, protocol.ChatRequest{
		Messages: []protocol.ChatMessage{
			{Role: "system", Content: "You are a helpful assistant."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	for chunk := range stream {
		if chunk.Err != nil {
			fmt.Fprintf(os.Stderr, "\nerror: %v\n", chunk.Err)
			return
		}
		fmt.Print(chunk.Content)
	}
	fmt.Println()
}

// --- API client commands ---

func cmdHealth() {
	body, err := apiGet("/api/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func cmdOrdersList(args []string) {
	fs := flag.NewFlagSet("orders list", flag.ExitOnError)
	status := fs.String("status", "", "Filter by status (open|done)")
	applicant := fs.String("applicant", "", "Filter by applicant")
	operator := fs.String("operator", "", "Filter by operator")
	limit := fs.Int("limit", 50, "Max results")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *status != "" {
		query += "&status=" + *status
	}
	if *applicant != "" {
		query += "&applicant=" + *applicant
	}
	if *operator != "" {
		query += "&operator=" + *operator
	}

	body, err := apiGet("/api/orders" + query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var orders []map[string]any
	json.Unmarshal(body, &orders)
	for _, o := range orders {
		fmt.Printf("%-6v %-6s %-22s %-12s %s\n",
			o["id"], o["status"], o["chat_id"], o["operator"], o["description"])
	}
}

func cmdOrdersShow(chatID string) {
	body, err := apiGet("/api/orders/" + chatID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdConversations(args []string) {
	fs := flag.NewFlagSet("conversations", flag.ExitOnError)
	limit := fs.Int("limit", 50, "Max results")
	fs.Parse(args)

	body, err := apiGet(fmt.Sprintf("/api/conversations?limit=%d", *limit))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var convs []map[string]any
	json.Unmarshal(body, &convs)
	for _, c := range convs {
		fmt.Printf("%-20s %-20s %v\n", c["user_id"], c["model"], c["updated_at"])
	}
}

func cmdLogs(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	level := fs.String("level", "", "Min level (info|warn|error)")
	limit := fs.Int("limit", 100, "Max entries")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *level != "" {
		query += "&level=" + *level
	}

	body, err := apiGet("/api/logs" + query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var entries []map[string]any
	json.Unmarshal(body, &entries)
	for _, e := range entries {
		fmt.Printf("%v %-5s %s\n", e["time"], e["level"], e["message"])
	}
}

func cmdConfigValidate(path string) {
	_, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("config is valid")
}

// --- Helpers ---

func apiGet(path string) ([]byte, error) {
	base := envOr("KAIDI_API_URL", "http://localhost:8080")
	url := base + path

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	if key := os.Getenv("KAIDI_API_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func prettyJSON(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	return string(out)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Println("kaidictl - kaidibot management CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  chat                    One-shot or interactive completion")
	fmt.Println("  health                  Check daemon health")
	fmt.Println("  orders list             List work orders (--status, --applicant, --operator, --limit)")
	fmt.Println("  orders show <chat_id>   Show one work order")
	fmt.Println("  conversations           List conversations (--limit)")
	fmt.Println("  logs                    Tail daemon logs (--level, --limit)")
	fmt.Println("  config validate <p>     Validate config file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  KAIDI_API_URL            Daemon admin URL (default: http://localhost:8080)")
	fmt.Println("  KAIDI_API_KEY            Admin API key")
	fmt.Println("  KAIDI_PROVIDER           Provider type: openai (default) or anthropic")
	fmt.Println("  KAIDI_OPENAI_API_KEY     API key for OpenAI provider")
	fmt.Println("  KAIDI_ANTHROPIC_API_KEY  API key for Anthropic provider")
	fmt.Println()
}
