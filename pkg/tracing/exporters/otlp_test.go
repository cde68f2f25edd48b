package exporters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOTLPExporter_UnsupportedProtocol(t *testing.T) {
	cfg := DefaultOTLPConfig()
	cfg.Protocol = "carrier-pigeon"

	exporter, err := NewOTLPExporter(context.Background(), cfg)
	assert.Nil(t, exporter)
	assert.ErrorContains(t, err, "unsupported OTLP protocol")
}
