package shared

import (
	"fmt"
	"io"
	"os"
)

const (
	lineTemplateConstant  = "%s\n"
	warningPrefixConstant = "warning: "
)

// Reporter writes user-facing lines that accompany a report: summaries and warnings about things
// reconciliation saw but left alone.
type Reporter interface {
	Line(format string, args ...any)
	Warning(format string, args ...any)
}

type writerReporter struct {
	writer io.Writer
}

// NewWriterReporter constructs a Reporter writing to writer, or to standard output when writer is nil.
func NewWriterReporter(writer io.Writer) Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return writerReporter{writer: writer}
}

// Line writes one formatted line.
func (reporter writerReporter) Line(format string, args ...any) {
	fmt.Fprintf(reporter.writer, lineTemplateConstant, fmt.Sprintf(format, args...))
}

// Warning writes one formatted line prefixed with "warning: ".
func (reporter writerReporter) Warning(format string, args ...any) {
	reporter.Line(warningPrefixConstant+format, args...)
}
