package obs

import (
	"context"
	"log"
	"time"
)

type ctxKey int

const requestIDKey ctxKey = 0

// WithRequestID stamps ctx with the correlation id Time includes in
// its log lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the id stamped by WithRequestID, empty when absent.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Time reports how long an operation took once the returned func runs.
// Pass the address of the caller's named error to tag failed runs:
//
//	defer obs.Time(ctx, "stops.create")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	reqID := RequestID(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Printf("req_id=%s op=%s dur=%dms err=%v", reqID, name, dur.Milliseconds(), *errp)
			return
		}
		log.Printf("req_id=%s op=%s dur=%dms", reqID, name, dur.Milliseconds())
	}
}
