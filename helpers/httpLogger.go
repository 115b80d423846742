package helpers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type transportWithLogger struct {
	Transport http.RoundTripper
}

// NewTransportWithLogger logs every outbound request and its response. Push endpoints carry
// capability tokens in the path, so only the host is logged.
func NewTransportWithLogger(transport http.RoundTripper) *transportWithLogger {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &transportWithLogger{Transport: transport}
}

func (t *transportWithLogger) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	log.Debug().
		Str("method", req.Method).
		Str("host", req.URL.Host).
		Int64("length", req.ContentLength).
		Msg("API request:")

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		log.Warn().Err(err).
			Str("method", req.Method).
			Str("host", req.URL.Host).
			Dur("latency", time.Since(start)).
			Msg("API request failed")
		return resp, err
	}

	var respBodyBytes []byte
	if resp.Body != nil {
		respBodyBytes, _ = io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewBuffer(respBodyBytes))
	}

	event := eventForStatus(resp.StatusCode).
		Str("method", req.Method).
		Str("host", req.URL.Host).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start))

	if len(respBodyBytes) > 0 {
		if json.Valid(respBodyBytes) {
			event = event.RawJSON("body", respBodyBytes)
		} else {
			event = event.Bytes("body", respBodyBytes)
		}
	}

	event.Msg("API response:")

	return resp, nil
}

// GinLogger is the access log middleware of the REST surface.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		event := eventForStatus(c.Writer.Status()).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP())

		if userID, ok := c.Get(CtxUserIDKey); ok {
			event = event.Interface("user", userID)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}

		event.Msg("HTTP request")
	}
}

func eventForStatus(status int) *zerolog.Event {
	switch {
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		return log.Warn()
	case status >= http.StatusInternalServerError:
		return log.Error()
	default:
		return log.Info()
	}
}
