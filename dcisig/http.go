package dcisig

import (
	"bytes"
	"io"
	"net/http"
)

// RequestFromHTTP builds a Request from r: method, URL path, query, host,
// headers and the raw body as Data. The body is read and replaced so it can
// be consumed again.
func RequestFromHTTP(r *http.Request) (Request, error) {
	body, err := readAndRestoreBody(r)
	if err != nil {
		return Request{}, err
	}

	host := r.Host
	if host == "" && r.URL != nil {
		host = r.URL.Host
	}

	req := Request{
		Method:  Method(r.Method),
		Host:    host,
		Headers: r.Header.Clone(),
		Data:    string(body),
	}

	if r.URL != nil {
		req.Endpoint = r.URL.Path
		req.Params = r.URL.Query()
	}

	return req, nil
}

// readAndRestoreBody reads the entire request body and replaces it with a
// new reader so the body can be consumed again by downstream handlers.
func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}
