package progrock

import (
	"context"
	"io"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/keg/internal/adapters/config"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
)

// NodeID is the unique identifier for the telemetry adapter node.
const NodeID graft.ID = "adapter.telemetry"

func init() {
	graft.Register(graft.Node[ports.Telemetry]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID},
		Run: func(ctx context.Context) (ports.Telemetry, error) {
			settings, err := graft.Dep[domain.Settings](ctx)
			if err != nil {
				return nil, err
			}
			return ForSettings(settings, os.Stderr), nil
		},
	})
}

// ForSettings returns a console recorder writing to out when progress output
// is enabled, and a discarding recorder otherwise.
func ForSettings(settings domain.Settings, out io.Writer) *Recorder {
	if settings.Progress {
		return NewConsole(out)
	}
	return New()
}
