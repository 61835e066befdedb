package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	fetchTimeout    = 30 * time.Second
	fetchMaxURLs    = 20
	fetchMaxContent = 100_000
	fetchUserAgent  = "Mozilla/5.0 (compatible; Skiff/1.0)"
)

var (
	htmlSectionRe = regexp.MustCompile(`(?is)<(script|style|nav|footer|header)\b[^>]*>.*?</\s*(?:script|style|nav|footer|header)\s*>`)
	htmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
)

func registerWebFetchTool(r *Registry, o Options) {
	r.Register(Tool{
		Name: "web_fetch",
		Description: "Fetches content from up to 20 http(s) URLs embedded in a prompt " +
			"along with processing instructions. HTML is reduced to text; GitHub blob " +
			"URLs are rewritten to their raw form.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{
					"type":        "string",
					"description": "Prompt containing the URL(s) to fetch and what to do with the content",
				},
			},
			"required": []string{"prompt"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			return webFetch(ctx, o, args)
		},
	})
}

func registerWebSearchTool(r *Registry, o Options) {
	r.Register(Tool{
		Name:        "web_search",
		Description: "Performs a web search and returns rendered results for a query.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query",
				},
			},
			"required": []string{"query"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			return webSearch(ctx, o, args)
		},
	})
}

func webFetch(ctx context.Context, o Options, args map[string]any) Result {
	prompt := strArg(args, "prompt")
	if strings.TrimSpace(prompt) == "" {
		return ErrorResult(ErrInvalidInput, "Prompt cannot be empty. Include URL(s) and instructions.")
	}

	urls, parseErrors := parsePromptURLs(prompt)
	if len(parseErrors) > 0 {
		return ErrorResult(ErrInvalidURL, "Error(s) in prompt URLs:\n- %s", strings.Join(parseErrors, "\n- "))
	}
	if len(urls) == 0 {
		return ErrorResult(ErrNoURLsFound,
			"No valid URLs found in prompt. URLs must start with http:// or https://")
	}
	if len(urls) > fetchMaxURLs {
		return ErrorResult(ErrTooManyURLs, "Too many URLs (%d). Maximum is %d.", len(urls), fetchMaxURLs)
	}

	var parts []string
	var failures []string
	for _, u := range urls {
		content, err := fetchOneURL(ctx, o.HTTPClient, u)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", u, err))
			continue
		}
		parts = append(parts, fmt.Sprintf("--- Content from %s ---\n%s", u, content))
	}
	if len(parts) == 0 {
		return ErrorResult(ErrFetchError, "Failed to fetch all URLs:\n- %s", strings.Join(failures, "\n- "))
	}

	var b strings.Builder
	b.WriteString(strings.Join(parts, "\n\n"))
	msg := fmt.Sprintf("Successfully fetched %d URL(s).", len(parts))
	if len(failures) > 0 {
		msg = fmt.Sprintf("Fetched %d URL(s), %d failed.", len(parts), len(failures))
		fmt.Fprintf(&b, "\n\nFailed URLs:\n- %s", strings.Join(failures, "\n- "))
	}
	res := DualResult(b.String(), msg)
	res.Data = map[string]any{"urls_fetched": len(parts), "urls_failed": len(failures)}
	return res
}

func webSearch(ctx context.Context, o Options, args map[string]any) Result {
	query := strings.TrimSpace(strArg(args, "query"))
	if query == "" {
		return ErrorResult(ErrInvalidInput, "The 'query' parameter cannot be empty.")
	}
	if o.Search == nil {
		return ErrorResult(ErrWebSearchNotConfigured,
			"Web search is not configured. No search provider is available.")
	}
	results, err := o.Search(ctx, query)
	if err != nil {
		return ErrorResult(ErrWebSearchFailed, "Web search failed: %v", err)
	}
	return DualResult(
		fmt.Sprintf("Web search results for %q:\n%s", query, results),
		fmt.Sprintf("Search results for %q", query))
}

// parsePromptURLs scans the prompt's whitespace tokens for http(s) URLs.
// Tokens with a scheme separator but an unsupported protocol are errors.
func parsePromptURLs(prompt string) (valid []string, errors []string) {
	for _, token := range strings.Fields(prompt) {
		if !strings.Contains(token, "://") {
			continue
		}
		parsed, err := url.Parse(token)
		if err != nil {
			errors = append(errors, "Malformed URL: "+token)
			continue
		}
		if parsed.Scheme == "http" || parsed.Scheme == "https" {
			valid = append(valid, token)
		} else {
			errors = append(errors, "Unsupported protocol: "+token)
		}
	}
	return valid, errors
}

// githubRawURL rewrites GitHub blob URLs to the raw-content host so that
// source files fetch as plain text.
func githubRawURL(u string) string {
	if strings.Contains(u, "github.com") && strings.Contains(u, "/blob/") {
		u = strings.Replace(u, "github.com", "raw.githubusercontent.com", 1)
		u = strings.Replace(u, "/blob/", "/", 1)
	}
	return u
}

func fetchOneURL(ctx context.Context, client *http.Client, rawURL string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, githubRawURL(rawURL), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*fetchMaxContent))
	if err != nil {
		return "", err
	}

	text := string(body)
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "text/html") {
		text = htmlToText(text)
	}
	if len(text) > fetchMaxContent {
		text = text[:fetchMaxContent] + "\n\n[Content truncated...]"
	}
	return text, nil
}

// htmlToText strips non-content sections and all remaining tags, then
// collapses whitespace line by line.
func htmlToText(html string) string {
	stripped := htmlSectionRe.ReplaceAllString(html, "")
	stripped = htmlTagRe.ReplaceAllString(stripped, "\n")

	var lines []string
	for _, line := range strings.Split(stripped, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return blankRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
}
