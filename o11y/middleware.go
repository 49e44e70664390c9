package o11y

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/0xsequence/otp-challenge/proto"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"
)

const SpanHeader = "X-Challenge-Span"

// Middleware traces every request. If exposeSpan is set, the finished span tree is
// returned to the caller in the X-Challenge-Span header, which requires buffering the
// response body until the handler returns.
func Middleware(exposeSpan bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tid := traceid.FromContext(r.Context())
			ctx, span := Trace(
				r.Context(),
				r.URL.Path,
				WithSpanKind(SpanKindServer),
				WithMetadata(map[string]any{
					"traceid":        tid,
					"net.host.name":  r.Host,
					"server.address": r.Host,
					"http.method":    r.Method,
					"http.url":       r.URL.String(),
					"url.path":       r.URL.Path,
					"url.query":      r.URL.RawQuery,
				}),
			)

			if !exposeSpan {
				ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
				next.ServeHTTP(ww, r.WithContext(ctx))
				span.SetStatus(ww.Status())
				span.End()
				return
			}

			var body bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)
			ww.Discard()

			next.ServeHTTP(ww, r.WithContext(ctx))

			span.SetStatus(ww.Status())
			span.End()
			spanJSON, err := json.Marshal(span)
			if err != nil {
				proto.RespondWithError(w, err)
				return
			}

			w.Header().Set(SpanHeader, string(spanJSON))

			w.WriteHeader(ww.Status())
			if _, err := body.WriteTo(w); err != nil {
				proto.RespondWithError(w, err)
			}
		})
	}
}
