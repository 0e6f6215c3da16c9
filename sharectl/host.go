package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"go.uber.org/zap"
)

// outboxSurface is a headless share surface that delivers payloads into a
// directory, one subdirectory per invocation.
type outboxSurface struct {
	dir      string
	maxFiles int

	mu  sync.Mutex
	seq int
}

func newOutboxSurface(dir string, maxFiles int) (*outboxSurface, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create outbox: %w", err)
	}
	return &outboxSurface{dir: dir, maxFiles: maxFiles}, nil
}

func (s *outboxSurface) CanShare(_ context.Context, payload photoshare.SharePayload) bool {
	return s.maxFiles <= 0 || len(payload.Files) <= s.maxFiles
}

type outboxManifest struct {
	Title string   `json:"title"`
	Text  string   `json:"text"`
	URL   string   `json:"url,omitempty"`
	Files []string `json:"files"`
}

func (s *outboxSurface) Share(ctx context.Context, payload photoshare.SharePayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.seq++
	dir := filepath.Join(s.dir, fmt.Sprintf("share-%03d", s.seq))
	s.mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create share directory: %w", err)
	}
	m := outboxManifest{Title: payload.Title, Text: payload.Text, URL: payload.URL, Files: []string{}}
	for _, f := range payload.Files {
		if err := os.WriteFile(filepath.Join(dir, f.Name), f.Bytes, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.Name, err)
		}
		m.Files = append(m.Files, f.Name)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "share.json"), data, 0644)
}

// printOpener writes every opened URL as a line to out.
type printOpener struct {
	mu  sync.Mutex
	out io.Writer
}

func (o *printOpener) Open(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := fmt.Fprintln(o.out, rawURL)
	return err
}

// printSheet lists the files of a share sheet request on out.
type printSheet struct {
	mu  sync.Mutex
	out io.Writer
}

func (s *printSheet) Share(ctx context.Context, req photoshare.ShareSheetRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "%s\n", req.Title)
	for _, f := range req.Files {
		fmt.Fprintf(s.out, "  %s\n", f)
	}
	return nil
}

// lineConfirmer asks on out and reads a yes/no answer from in. End of input
// counts as a dismissal.
type lineConfirmer struct {
	in     *bufio.Reader
	out    io.Writer
	always bool
}

func newLineConfirmer(in io.Reader, out io.Writer, always bool) *lineConfirmer {
	return &lineConfirmer{in: bufio.NewReader(in), out: out, always: always}
}

func (c *lineConfirmer) Confirm(_ context.Context, p photoshare.Prompt) (bool, error) {
	if c.always {
		return true, nil
	}
	fmt.Fprintf(c.out, "%s: %s. Continue? [y/N] ", p.Title, p.Message)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// logNotifier writes notifications to the structured log.
func logNotifier(logger *zap.Logger) photoshare.Notifier {
	return photoshare.NotifierFunc(func(n photoshare.Notification) {
		fields := []zap.Field{
			zap.String("kind", string(n.Kind)),
			zap.String("detail", n.Detail),
		}
		if n.Reason != photoshare.ReasonNone {
			fields = append(fields, zap.String("reason", string(n.Reason)))
		}
		if n.Kind == photoshare.NotifyFailure {
			logger.Warn(n.Title, fields...)
			return
		}
		logger.Info(n.Title, fields...)
	})
}
