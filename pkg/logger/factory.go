package logger

import (
	"io"
	"log/slog"
	"os"
)

// Format selects the handler's output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Option configures logger creation.
type Option func(*settings)

type settings struct {
	level      slog.Level
	format     Format
	output     io.Writer
	attrs      []slog.Attr
	extractors []ContextExtractor
}

// WithLevel sets the minimum log level.
func WithLevel(l slog.Level) Option {
	return func(s *settings) { s.level = l }
}

// WithFormat sets the output encoding. Unknown formats fall back to JSON.
func WithFormat(f Format) Option {
	return func(s *settings) {
		if f == FormatText {
			s.format = FormatText
		} else {
			s.format = FormatJSON
		}
	}
}

// WithOutput sets the output destination; nil writers are ignored.
func WithOutput(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.output = w
		}
	}
}

// WithAttrs adds static attributes to every record.
func WithAttrs(attrs ...slog.Attr) Option {
	return func(s *settings) { s.attrs = append(s.attrs, attrs...) }
}

// WithContextExtractors registers extractors that inject request-scoped
// attributes from the context on every record.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(s *settings) {
		for _, ex := range extractors {
			if ex != nil {
				s.extractors = append(s.extractors, ex)
			}
		}
	}
}

// WithDevelopment switches to human-readable text output at debug level.
func WithDevelopment(service string) Option {
	return func(s *settings) {
		s.level = slog.LevelDebug
		s.format = FormatText
		if service != "" {
			s.attrs = append(s.attrs, slog.String("service", service))
		}
	}
}

// WithProduction keeps JSON output at info level and tags the service name.
func WithProduction(service string) Option {
	return func(s *settings) {
		s.level = slog.LevelInfo
		s.format = FormatJSON
		if service != "" {
			s.attrs = append(s.attrs, slog.String("service", service))
		}
	}
}

// New builds a slog.Logger. Defaults are production-safe: JSON to stdout at
// info level.
func New(opts ...Option) *slog.Logger {
	s := &settings{
		level:  slog.LevelInfo,
		format: FormatJSON,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}

	handlerOpts := &slog.HandlerOptions{Level: s.level}
	var handler slog.Handler
	if s.format == FormatText {
		handler = slog.NewTextHandler(s.output, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(s.output, handlerOpts)
	}
	if len(s.attrs) > 0 {
		handler = handler.WithAttrs(s.attrs)
	}

	return slog.New(newContextHandler(handler, s.extractors...))
}
