package logging_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bwagner5/vpcplan/pkg/logging"
)

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.ToContext(context.Background(), logging.DefaultFileLogger(true, &buf))
	logging.FromContext(ctx).Debug("planning", "zones", 2)
	if !strings.Contains(buf.String(), "planning") || !strings.Contains(buf.String(), "zones=2") {
		t.Errorf("expected debug line in output, got %q", buf.String())
	}
}

func TestFromContextWithoutLogger(t *testing.T) {
	// must not panic
	logging.FromContext(context.Background()).Info("dropped")
}

func TestInfoLevelDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.DefaultFileLogger(false, &buf)
	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("expected debug line to be dropped, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected info line, got %q", buf.String())
	}
}
