package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/telhawk-systems/schoolhub/internal/capability"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

var (
	ErrMalformedBody = errors.New("malformed request body")
	ErrBodyTooLarge  = errors.New("request body too large")
)

const (
	msgMalformedBody = "Malformed request body"
	msgBodyTooLarge  = "Request body too large"
)

// readParams merges query parameters with body fields. Body fields win.
// JSON and form bodies are accepted on every verb.
func readParams(r *http.Request, maxBytes int64) (capability.Params, error) {
	params := make(capability.Params)
	mergeValues(params, r.URL.Query())

	if r.Body == nil || r.Body == http.NoBody {
		return params, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if int64(len(body)) > maxBytes {
		return nil, ErrBodyTooLarge
	}
	if len(body) == 0 {
		return params, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
		}
		mergeValues(params, values)
	case "application/json", "":
		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
		}
		for k, v := range fields {
			params[k] = v
		}
	default:
		// Other content types carry no parameters.
	}

	return params, nil
}

func mergeValues(params capability.Params, values url.Values) {
	for k, vs := range values {
		switch len(vs) {
		case 0:
		case 1:
			params[k] = vs[0]
		default:
			params[k] = append([]string(nil), vs...)
		}
	}
}
