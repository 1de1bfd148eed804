package substrate

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Sentinel errors for the taxonomy in spec.md §7. The substrate never
// throws across its public boundary (spec.md §7: "Propagation policy");
// callers that need a typed reason can errors.Is/errors.Cause these, but
// every public method still returns its typed empty sentinel (Zero ID,
// nil slice) rather than requiring the caller to check an error.
var (
	// ErrInvalidInput covers malformed tags, unknown node kinds for an
	// operation, and invalid replay variable bindings.
	ErrInvalidInput = errors.New("doctree: invalid input")
	// ErrNotFound covers a missing target node (deleted or never existed).
	ErrNotFound = errors.New("doctree: not found")
)

// Logger is the structured-logging seam the substrate and the layers
// above it log through. It is satisfied by *zap.SugaredLogger; any
// logger with this shape works.
type Logger interface {
	Warnw(msg string, keysAndValues ...interface{})
}

type logger struct{ l Logger }

func newLoggerAdapter(l Logger) *logger {
	if l == nil {
		l = zap.NewNop().Sugar()
	}
	return &logger{l: l}
}

// invalidInput logs an InvalidInput occurrence and returns ErrInvalidInput
// wrapped with op/reason context, for the caller to discard per spec.md
// §7 ("the offending operation is a no-op; adjacent operations proceed").
func (l *logger) invalidInput(op string, reason string, kv ...interface{}) error {
	args := append([]interface{}{"op", op, "reason", reason}, kv...)
	l.l.Warnw("invalid input", args...)
	return errors.Wrap(ErrInvalidInput, reason)
}

func (l *logger) notFound(op string, target ID) error {
	l.l.Warnw("not found", "op", op, "target", target.String())
	return errors.Wrapf(ErrNotFound, "%s: %s", op, target.String())
}

// LogInvalidInput is the exported path package mutate and friends use to
// report a malformed-input no-op without reaching into Doc's private
// logger field.
func (d *Doc) LogInvalidInput(op, reason string, kv ...interface{}) error {
	return d.log.invalidInput(op, reason, kv...)
}

// LogNotFound is the exported path for reporting a missing-target no-op.
func (d *Doc) LogNotFound(op string, target ID) error {
	return d.log.notFound(op, target)
}

// NewSugaredZapLogger is a small convenience constructor for hosts that
// want real structured logging instead of the default no-op, mirroring
// how the pack's collaboration backends configure zap once at startup.
func NewSugaredZapLogger() (*zap.SugaredLogger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return z.Sugar(), nil
}
