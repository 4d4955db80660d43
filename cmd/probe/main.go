// Command probe sends a streaming chat completion to a running gateway
// and prints every SSE frame it receives. Useful for eyeballing the
// frame sequence against a live backend.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	url := flag.String("url", "http://localhost:5005/v1/chat/completions", "gateway endpoint")
	message := flag.String("message", "Hello, how are you?", "user message to send")
	providerName := flag.String("provider", "", "provider to route to (empty for gateway default)")
	flag.Parse()

	body := map[string]interface{}{
		"stream": true,
		"messages": []map[string]string{
			{"role": "user", "content": *message},
		},
	}
	if *providerName != "" {
		body["provider"] = *providerName
	}

	payload, err := json.Marshal(body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal request: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	resp, err := http.Post(*url, "application/json", bytes.NewReader(payload))
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	fmt.Printf("status: %s\n", resp.Status)

	chunks := 0
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fmt.Println(line)
		if strings.HasPrefix(line, "data: ") && line != "data: [DONE]" {
			chunks++
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "read stream: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n%d chunks in %s\n", chunks, time.Since(start).Round(time.Millisecond))
}
