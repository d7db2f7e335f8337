package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf}).With(String("phy_id", "ap0"))

	log.Info(context.Background(), "noise applied",
		Float("noise_figure_db", 7.5),
		Uint32("num_interferers", 3),
		Any("attributes", struct{ ChannelWidthMHz float64 }{80}),
		Err(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec["msg"] != "noise applied" || rec["level"] != "INFO" {
		t.Fatalf("record = %v", rec)
	}
	if rec["phy_id"] != "ap0" {
		t.Fatalf("phy_id = %v, want ap0", rec["phy_id"])
	}
	if rec["noise_figure_db"] != 7.5 || rec["num_interferers"] != float64(3) {
		t.Fatalf("numeric fields = %v, %v", rec["noise_figure_db"], rec["num_interferers"])
	}
	attrs, ok := rec["attributes"].(map[string]any)
	if !ok || attrs["ChannelWidthMHz"] != float64(80) {
		t.Fatalf("attributes = %v", rec["attributes"])
	}
	if rec["error"] != "boom" {
		t.Fatalf("error = %v, want boom", rec["error"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("output = %q", out)
	}
}

func TestErrFieldNil(t *testing.T) {
	if f := Err(nil); f.Value != "" {
		t.Fatalf("Err(nil).Value = %v, want empty", f.Value)
	}
}

func TestWithRunLoggerReusesRunID(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})

	ctx, log := WithRunLogger(context.Background(), base)
	id := RunIDFromContext(ctx)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("run id %q is not a uuid: %v", id, err)
	}

	ctx2, again := EnsureRunID(ctx)
	if again != id || RunIDFromContext(ctx2) != id {
		t.Fatalf("EnsureRunID replaced %q with %q", id, again)
	}

	log.Info(ctx, "started")
	if !strings.Contains(buf.String(), id) {
		t.Fatalf("log line missing run id: %q", buf.String())
	}
}

func TestWithRunLoggerNilBase(t *testing.T) {
	_, log := WithRunLogger(context.Background(), nil)
	log.Info(context.Background(), "dropped")
}
