package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveStopCodeFromExplicitCode(t *testing.T) {
	assert.Equal(t, "MARQ_001", ResolveStopCode("marq_001", "Hospital Central"))
	assert.Equal(t, "CRTM-ARJ-001", ResolveStopCode(" crtm-arj-001 ", ""))
}

func TestResolveStopCodeFromEntityName(t *testing.T) {
	assert.Equal(t, "ESTACION_ATOCHA", ResolveStopCode("", "Estación Atocha"))
	assert.Equal(t, "AVDA_AMERICA_12", ResolveStopCode("", "  Avda. América (12) "))
}

func TestResolveStopCodeFallback(t *testing.T) {
	assert.Equal(t, FallbackStopCode, ResolveStopCode("", ""))
	assert.Equal(t, FallbackStopCode, ResolveStopCode("", " ·–· "))
}
