package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/vitalvas/dciauth/dcisig"
)

// listFlag collects repeated string flags.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ", ") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// requestFlags are the flags describing the request to sign or verify.
type requestFlags struct {
	method        string
	endpoint      string
	host          string
	data          string
	payload       string
	algorithm     string
	region        string
	service       string
	requestType   string
	timestamp     string
	params        listFlag
	headers       listFlag
	signedHeaders listFlag
}

func (f *requestFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.method, "method", "GET", "HTTP method")
	fs.StringVar(&f.endpoint, "endpoint", "/", "URL path")
	fs.StringVar(&f.host, "host", "", "host header (default "+dcisig.DefaultHost+")")
	fs.StringVar(&f.data, "data", "", "raw body, signed verbatim")
	fs.StringVar(&f.payload, "payload", "", "JSON object body, signed with sorted keys")
	fs.StringVar(&f.algorithm, "algorithm", "", "signing algorithm (default "+string(dcisig.AlgorithmDCI2)+")")
	fs.StringVar(&f.region, "region", "", "credential scope region")
	fs.StringVar(&f.service, "service", "", "credential scope service")
	fs.StringVar(&f.requestType, "request-type", "", "credential scope request type")
	fs.StringVar(&f.timestamp, "timestamp", "", "pinned signing time, "+dcisig.TimeFormat)
	fs.Var(&f.params, "param", "query parameter key=value (repeatable)")
	fs.Var(&f.headers, "header", "request header \"Name: value\" (repeatable)")
	fs.Var(&f.signedHeaders, "sign-header", "extra header name to sign (repeatable)")
}

func (f *requestFlags) request() (dcisig.Request, error) {
	req := dcisig.Request{
		Method:        dcisig.Method(f.method),
		Endpoint:      f.endpoint,
		Host:          f.host,
		Data:          f.data,
		Algorithm:     dcisig.Algorithm(f.algorithm),
		Region:        f.region,
		Service:       f.service,
		RequestType:   f.requestType,
		SignedHeaders: f.signedHeaders,
	}

	params, err := parseParams(f.params)
	if err != nil {
		return dcisig.Request{}, err
	}

	req.Params = params

	headers, err := parseHeaders(f.headers)
	if err != nil {
		return dcisig.Request{}, err
	}

	req.Headers = headers

	payload, err := parsePayload(f.payload)
	if err != nil {
		return dcisig.Request{}, err
	}

	req.Payload = payload

	if f.timestamp != "" {
		ts, err := time.Parse(dcisig.TimeFormat, f.timestamp)
		if err != nil {
			return dcisig.Request{}, fmt.Errorf("timestamp: %w", err)
		}

		req.Timestamp = ts
	}

	return req, nil
}

func parseParams(raw []string) (url.Values, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	params := url.Values{}

	for _, p := range raw {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("param %q: expected key=value", p)
		}

		params.Add(key, value)
	}

	return params, nil
}

func parseHeaders(raw []string) (http.Header, error) {
	headers := http.Header{}

	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("header %q: expected \"Name: value\"", h)
		}

		headers.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	return headers, nil
}

// parsePayload decodes a JSON object, keeping numbers as written.
func parsePayload(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}

	return payload, nil
}

// secretFromFlagOrEnv returns the flag value, falling back to DCI_SECRET.
func secretFromFlagOrEnv(flagValue string) []byte {
	if flagValue != "" {
		return []byte(flagValue)
	}

	return []byte(os.Getenv("DCI_SECRET"))
}

func printHeaders(w io.Writer, h http.Header) {
	for _, name := range sortedKeys(h) {
		for _, v := range h[name] {
			fmt.Fprintf(w, "%s: %s\n", name, v)
		}
	}
}
