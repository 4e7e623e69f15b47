package xray

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/RonitGandotra05/agent-xray/internal/api"
)

// DefaultTimeout bounds one send, including inline analysis on the server.
const DefaultTimeout = 300 * time.Second

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithSpoolDir enables disk spooling for runs that cannot be delivered.
func WithSpoolDir(dir string) ClientOption {
	return func(c *Client) {
		c.spoolDir = dir
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client ships recorded runs to the trace service.
type Client struct {
	baseURL    string
	spoolDir   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendResult reports where a run ended up: delivered to the service, or
// spooled to disk for a later flush.
type SendResult struct {
	RunID     string          `json:"run_id,omitempty"`
	Status    string          `json:"status,omitempty"`
	Analysis  json.RawMessage `json:"analysis,omitempty"`
	Spooled   bool            `json:"spooled"`
	SpoolPath string          `json:"spool_path,omitempty"`
}

// Send delivers one run. When the service is unreachable and a spool
// directory is configured, the run is written to disk instead and Send
// reports success with Spooled set.
func (c *Client) Send(ctx context.Context, run *Run, analyze bool) (*SendResult, error) {
	body, err := json.Marshal(run.request(analyze))
	if err != nil {
		return nil, fmt.Errorf("failed to encode run: %w", err)
	}

	result, err := c.post(ctx, body)
	if err == nil {
		return result, nil
	}
	if c.spoolDir == "" {
		return nil, err
	}

	path, spoolErr := c.spool(run.pipelineName, body)
	if spoolErr != nil {
		return nil, fmt.Errorf("send failed (%v) and spool failed: %w", err, spoolErr)
	}
	c.logger.Warn("run spooled for later delivery",
		slog.String("pipeline", run.pipelineName),
		slog.String("path", path),
		slog.String("error", err.Error()),
	)
	return &SendResult{Spooled: true, SpoolPath: path}, nil
}

// FlushSpool attempts to deliver the most recent spooled run. One network
// attempt per call: on success every spooled file is removed, on failure
// everything stays on disk for the next flush. A nil result with nil error
// means the spool was empty.
func (c *Client) FlushSpool(ctx context.Context) (*SendResult, error) {
	if c.spoolDir == "" {
		return nil, nil
	}

	files, err := c.spooledFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	// Newest first. Older runs are superseded; once the service is
	// reachable again they carry no additional diagnostic value.
	newest := files[0]
	body, err := os.ReadFile(newest)
	if err != nil {
		return nil, fmt.Errorf("failed to read spooled run: %w", err)
	}

	result, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	for _, path := range files {
		if err := os.Remove(path); err != nil {
			c.logger.Warn("failed to remove spooled run",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, body []byte) (*SendResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ingest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("ingest rejected with status %d: %s", resp.StatusCode, respBody)
	}

	var ack api.IngestResponse
	if err := json.Unmarshal(respBody, &ack); err != nil {
		return nil, fmt.Errorf("failed to decode ingest response: %w", err)
	}
	return &SendResult{
		RunID:    ack.RunID,
		Status:   ack.Status,
		Analysis: ack.Analysis,
	}, nil
}

func (c *Client) spool(pipelineName string, body []byte) (string, error) {
	if err := os.MkdirAll(c.spoolDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s.json", pipelineName, time.Now().UTC().Format("20060102T150405.000000000"))
	path := filepath.Join(c.spoolDir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// spooledFiles lists spooled runs newest first by modification time.
func (c *Client) spooledFiles() ([]string, error) {
	entries, err := os.ReadDir(c.spoolDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	type spooled struct {
		path  string
		mtime time.Time
	}
	var files []spooled
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, spooled{
			path:  filepath.Join(c.spoolDir, entry.Name()),
			mtime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].mtime.After(files[j].mtime)
	})

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}
