// Package output formats command results for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/mdsearch/internal/highlight"
	"github.com/Aman-CERP/mdsearch/internal/service"
	"github.com/Aman-CERP/mdsearch/internal/store"
	"github.com/Aman-CERP/mdsearch/internal/ui"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out       io.Writer
	useColor  bool
	styles    ui.Styles
	markOpen  string
	markClose string
}

// Option configures a Writer.
type Option func(*Writer)

// WithColor forces colour on or off. By default colour is used when out is
// a terminal and NO_COLOR is unset.
func WithColor(on bool) Option {
	return func(w *Writer) {
		w.useColor = on
	}
}

// WithMarkers sets the highlight markers that appear in snippets.
func WithMarkers(open, closing string) Option {
	return func(w *Writer) {
		w.markOpen = open
		w.markClose = closing
	}
}

// New creates a new output Writer.
func New(out io.Writer, opts ...Option) *Writer {
	w := &Writer{
		out:       out,
		useColor:  ui.IsTTY(out) && !ui.DetectNoColor(),
		markOpen:  highlight.DefaultMarkOpen,
		markClose: highlight.DefaultMarkClose,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.styles = ui.GetStyles(!w.useColor)
	return w
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("⚠"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Code prints a block with indentation.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// JSON writes v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Results prints a page of search results.
func (w *Writer) Results(resp *service.Response) {
	if resp == nil || len(resp.Results) == 0 {
		_, _ = fmt.Fprintf(w.out, "No results for %q\n", queryOf(resp))
		return
	}

	first := resp.Offset + 1
	last := resp.Offset + len(resp.Results)
	_, _ = fmt.Fprintf(w.out, "%s\n\n",
		w.styles.Label.Render(fmt.Sprintf("%d-%d of %d results for %q", first, last, resp.Total, resp.Query)))

	for i, hit := range resp.Results {
		title := hit.Title
		if title == "" {
			title = hit.Path
		}
		_, _ = fmt.Fprintf(w.out, "%s %s  %s\n",
			w.styles.Dim.Render(fmt.Sprintf("%2d.", first+i)),
			w.styles.Header.Render(title),
			w.styles.Dim.Render(fmt.Sprintf("[%d] %.3f", hit.ID, hit.Score)))
		_, _ = fmt.Fprintf(w.out, "    %s\n", w.styles.Label.Render(hit.Path))
		if hit.Snippet != "" {
			_, _ = fmt.Fprintf(w.out, "    %s\n", w.Snippet(hit.Snippet))
		}
		_, _ = fmt.Fprintln(w.out)
	}
}

// Document prints a document's metadata followed by its content.
func (w *Writer) Document(doc *store.Document) {
	_, _ = fmt.Fprintf(w.out, "%s\n", w.styles.Header.Render(doc.Title))
	_, _ = fmt.Fprintf(w.out, "%s\n\n", w.styles.Dim.Render(
		fmt.Sprintf("%s • id %d • %d bytes • %s", doc.Path, doc.ID, doc.Size, doc.ModTime.Format("2006-01-02 15:04"))))
	_, _ = fmt.Fprint(w.out, doc.Content)
	if !strings.HasSuffix(doc.Content, "\n") {
		_, _ = fmt.Fprintln(w.out)
	}
}

// Snippet renders highlight markers. With colour the marked text is styled
// and the markers removed; without colour the snippet is returned as is.
func (w *Writer) Snippet(s string) string {
	if !w.useColor || w.markOpen == "" || w.markClose == "" {
		return s
	}

	var b strings.Builder
	for {
		i := strings.Index(s, w.markOpen)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		s = s[i+len(w.markOpen):]

		j := strings.Index(s, w.markClose)
		if j < 0 {
			b.WriteString(w.styles.Match.Render(s))
			return b.String()
		}
		b.WriteString(w.styles.Match.Render(s[:j]))
		s = s[j+len(w.markClose):]
	}
}

func queryOf(resp *service.Response) string {
	if resp == nil {
		return ""
	}
	return resp.Query
}
