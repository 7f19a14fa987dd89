// Package progrock records transaction progress as progrock vertices.
package progrock

import (
	"context"
	"io"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"github.com/vito/progrock/console"
	"go.trai.ch/keg/internal/core/ports"
)

// Recorder implements the ports.Telemetry interface using the progrock library.
type Recorder struct {
	w   progrock.Writer
	rec *progrock.Recorder
	txn string
}

// New creates a Recorder that discards every update.
func New() *Recorder {
	return NewRecorder(progrock.Discard{})
}

// NewConsole creates a Recorder that prints each step, its output and its
// outcome to out as plain line-oriented text.
func NewConsole(out io.Writer) *Recorder {
	return NewRecorder(console.NewWriter(out))
}

// NewRecorder creates a new Recorder with the given writer.
func NewRecorder(w progrock.Writer) *Recorder {
	return &Recorder{
		w:   w,
		rec: progrock.NewRecorder(w),
	}
}

// WithTransaction returns a recorder whose vertex digests are scoped to the
// transaction id, so re-running the same plan records fresh vertices.
func (r *Recorder) WithTransaction(id string) ports.Telemetry {
	return &Recorder{w: r.w, rec: r.rec, txn: id}
}

// Record starts recording a new vertex named after a plan step.
func (r *Recorder) Record(ctx context.Context, name string) (context.Context, ports.Vertex) {
	v := r.rec.Vertex(r.digest(name), name)
	vertex := &Vertex{vertex: v}
	return ports.ContextWithVertex(ctx, vertex), vertex
}

func (r *Recorder) digest(name string) digest.Digest {
	if r.txn == "" {
		return digest.FromString(name)
	}
	return digest.FromString(r.txn + "/" + name)
}

// Close flushes and closes the recording session.
func (r *Recorder) Close() error {
	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
