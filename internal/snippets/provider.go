// Package snippets fetches code for typing practice from a third-party
// repository listing. Fetch never fails: any provider error ends in a fixed
// built-in snippet for the language.
package snippets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	headerLines = 20
	windowLines = 10
	maxBody     = 1 << 20
)

var (
	ErrNoFiles    = errors.New("no matching files in listing")
	ErrUndersized = errors.New("no code left after skipping header")
)

// StatusError is returned for non-2xx provider responses.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
}

type entry struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

type Provider struct {
	sources  Sources
	client   *http.Client
	attempts int

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Provider)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// WithRand makes file and window selection deterministic.
func WithRand(r *rand.Rand) Option {
	return func(p *Provider) { p.rng = r }
}

// WithAttempts sets how many times a failed fetch is tried before falling back.
func WithAttempts(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.attempts = n
		}
	}
}

func NewProvider(sources Sources, opts ...Option) *Provider {
	if sources == nil {
		sources = DefaultSources()
	}
	p := &Provider{
		sources:  sources,
		client:   &http.Client{Timeout: 10 * time.Second},
		attempts: 2,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fetch returns a snippet of up to ten lines for language.
func (p *Provider) Fetch(ctx context.Context, language string) string {
	for attempt := 1; attempt <= p.attempts; attempt++ {
		snippet, err := p.fetchOnce(ctx, language)
		if err == nil {
			return snippet
		}
		log.Warn().
			Err(err).
			Str("language", language).
			Int("attempt", attempt).
			Msg("snippet fetch failed")
		if ctx.Err() != nil {
			break
		}
	}
	log.Info().Str("language", language).Msg("using fallback snippet")
	return Fallback(language)
}

func (p *Provider) fetchOnce(ctx context.Context, language string) (string, error) {
	src := p.sources.Lookup(language)

	body, err := p.get(ctx, src.ListingURL)
	if err != nil {
		return "", err
	}
	var listing []entry
	if err := json.Unmarshal(body, &listing); err != nil {
		return "", fmt.Errorf("decoding listing: %w", err)
	}

	var files []entry
	for _, e := range listing {
		if e.Type == "file" && strings.HasSuffix(e.Name, src.Extension) && e.DownloadURL != "" {
			files = append(files, e)
		}
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%s: %w", language, ErrNoFiles)
	}

	file := files[p.intN(len(files))]
	raw, err := p.get(ctx, file.DownloadURL)
	if err != nil {
		return "", err
	}
	return p.extract(string(raw))
}

// extract drops blank lines and the header, left-trims what remains and
// picks a random window of at most ten lines.
func (p *Provider) extract(raw string) (string, error) {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) <= headerLines {
		return "", ErrUndersized
	}
	lines = lines[headerLines:]
	for i, line := range lines {
		lines[i] = strings.TrimLeft(line, " \t\r\n")
	}

	if len(lines) > windowLines {
		start := p.intN(len(lines) - windowLines)
		lines = lines[start : start+windowLines]
	}
	return strings.Join(lines, "\n"), nil
}

func (p *Provider) intN(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}

func (p *Provider) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "codetyper")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
