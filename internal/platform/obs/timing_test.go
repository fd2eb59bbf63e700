package obs

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
)

func TestTimeLogsRequestIDAndError(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	ctx := WithRequestID(context.Background(), "abc123")
	if got := RequestID(ctx); got != "abc123" {
		t.Fatalf("RequestID = %q, want abc123", got)
	}

	Time(ctx, "stops.create")(nil)
	line := buf.String()
	if !strings.Contains(line, "req_id=abc123") || !strings.Contains(line, "op=stops.create") {
		t.Fatalf("log line = %q", line)
	}
	if strings.Contains(line, "err=") {
		t.Fatalf("success line carries an error tag: %q", line)
	}

	buf.Reset()
	err := errors.New("boom")
	Time(ctx, "stops.create")(&err)
	if !strings.Contains(buf.String(), "err=boom") {
		t.Fatalf("error line = %q", buf.String())
	}
}
