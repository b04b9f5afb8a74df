package display

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/danmuck/coldsign/internal/classify"
	"github.com/danmuck/coldsign/internal/networks"
	"github.com/danmuck/coldsign/internal/session"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("display: unknown format")

func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatText:
		return FormatText, nil
	case FormatYAML:
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
}

// Writer renders session events to out. It satisfies session.Display.
// Write failures are kept and reported by Err.
type Writer struct {
	mu     sync.Mutex
	out    io.Writer
	format Format
	err    error
}

var _ session.Display = (*Writer)(nil)

func New(out io.Writer, format Format) *Writer {
	if format != FormatYAML {
		format = FormatText
	}
	return &Writer{out: out, format: format}
}

func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *Writer) Progress(p classify.MultipartProgress) {
	doc := NewProgressDoc(p)
	w.emit("progress", doc, func(b *strings.Builder) { writeProgress(b, doc) })
}

func (w *Writer) Review(r session.Review) {
	doc := NewReviewDoc(r)
	w.emit("review", doc, func(b *strings.Builder) { writeReview(b, doc) })
}

func (w *Writer) Alert(a session.Alert) {
	doc := NewAlertDoc(a)
	w.emit("alert", doc, func(b *strings.Builder) { writeAlert(b, doc) })
}

func (w *Writer) Result(res session.SignedResult) {
	doc := NewResultDoc(res)
	w.emit("result", doc, func(b *strings.Builder) {
		fmt.Fprintf(b, "signed (%s) session %s\n%s\n", doc.Scheme, doc.Session, doc.Signature)
	})
}

func (w *Writer) Networks(entries []networks.Entry) {
	docs := NewNetworkDocs(entries)
	w.emit("networks", docs, func(b *strings.Builder) { writeNetworks(b, docs) })
}

// emit writes one event. YAML events are separate documents keyed by name.
func (w *Writer) emit(name string, doc any, text func(*strings.Builder)) {
	var b strings.Builder
	switch w.format {
	case FormatYAML:
		b.WriteString("---\n")
		enc := yaml.NewEncoder(&b)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any{name: doc}); err != nil {
			w.fail(fmt.Errorf("display: encode %s: %w", name, err))
			return
		}
		_ = enc.Close()
	default:
		text(&b)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	if _, err := io.WriteString(w.out, b.String()); err != nil {
		w.err = err
		log.Warn().Err(err).Str("event", name).Msg("display.Writer write failed")
	}
}

func (w *Writer) fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
	log.Warn().Err(err).Msg("display.Writer encode failed")
}
