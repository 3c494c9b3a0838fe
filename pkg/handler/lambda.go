package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// lambdaRequest is the part of a Lambda HTTP event the router needs
type lambdaRequest struct {
	method          string
	path            string
	query           url.Values
	header          http.Header
	body            string
	isBase64Encoded bool
	sourceIP        string
	requestID       string
}

// lambdaResponse buffers what the router writes so it can be returned as an event
type lambdaResponse struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func (r *lambdaResponse) Header() http.Header { return r.header }

func (r *lambdaResponse) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(p)
}

func (r *lambdaResponse) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

// singleHeaders flattens the response headers, keeping the first value of each.
func (r *lambdaResponse) singleHeaders() map[string]string {
	out := make(map[string]string, len(r.header))
	for k, v := range r.header {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// serveLambda runs an event through h as if it were an HTTP request.
func serveLambda(ctx context.Context, h http.Handler, ev lambdaRequest) (*lambdaResponse, error) {
	body := []byte(ev.body)
	if ev.isBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(ev.body)
		if err != nil {
			return nil, fmt.Errorf("decode base64 body: %w", err)
		}
		body = decoded
	}

	path := ev.path
	if path == "" {
		path = "/"
	}
	u := &url.URL{Path: path, RawQuery: ev.query.Encode()}

	req, err := http.NewRequestWithContext(ctx, ev.method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = ev.header
	req.RemoteAddr = ev.sourceIP
	req.RequestURI = u.RequestURI()
	if host := ev.header.Get("Host"); host != "" {
		req.Host = host
	}
	if ev.requestID != "" && req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, ev.requestID)
	}

	resp := &lambdaResponse{header: http.Header{}}
	h.ServeHTTP(resp, req)
	if resp.status == 0 {
		resp.status = http.StatusOK
	}
	return resp, nil
}

// queryFromMaps merges single and multi value query parameter maps.
func queryFromMaps(single map[string]string, multi map[string][]string) url.Values {
	q := url.Values{}
	for k, v := range single {
		q.Set(k, v)
	}
	for k, vs := range multi {
		q[k] = append([]string(nil), vs...)
	}
	return q
}

// queryFromRaw parses a raw query string, dropping malformed pairs.
func queryFromRaw(raw string) url.Values {
	q, _ := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	return q
}
