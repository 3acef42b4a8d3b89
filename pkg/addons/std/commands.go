package std

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/txforge/txforge/pkg/types"
)

const defaultHTTPTimeout = 30 * time.Second

// sendHTTPRequestSpecification defines std::send_http_request: performs
// an HTTP request and exports the response body and status code.
func sendHTTPRequestSpecification() *types.CommandSpecification {
	return &types.CommandSpecification{
		Name:          "send_http_request",
		Documentation: "Makes an HTTP request to the given URL and exports the response.",
		Inputs: []types.CommandInput{
			{
				Name:          "url",
				Documentation: "The URL for the request. Supported schemes are http and https.",
				Typ:           types.StringType(),
			},
			{
				Name:          "method",
				Documentation: "The HTTP method: GET, HEAD, or POST. Defaults to GET.",
				Typ:           types.StringType(),
				Optional:      true,
			},
			{
				Name:          "body",
				Documentation: "The request body as a string.",
				Typ:           types.StringType(),
				Optional:      true,
			},
			{
				Name:          "headers",
				Documentation: "A map of request header field names and values.",
				Typ:           types.ObjectType(),
				Optional:      true,
			},
			{
				Name:          "timeout_ms",
				Documentation: "The request timeout in milliseconds.",
				Typ:           types.IntType(),
				Optional:      true,
			},
		},
		Outputs: []types.CommandOutput{
			{
				Name:          "response_body",
				Documentation: "The response body returned as a string.",
				Typ:           types.StringType(),
			},
			{
				Name:          "status_code",
				Documentation: "The HTTP response status code.",
				Typ:           types.IntType(),
			},
		},
		RunExecution: runSendHTTPRequest,
	}
}

func runSendHTTPRequest(ctx context.Context, _ types.ConstructDid, inputs *types.ValueStore) (*types.CommandExecutionResult, *types.Diagnostic) {
	url, ok := inputs.GetString("url")
	if !ok {
		return nil, types.ErrorDiag("send_http_request: url must be a string").
			WithCode(types.DiagCodeTypeMismatch)
	}

	method := "GET"
	if m, ok := inputs.GetString("method"); ok {
		method = strings.ToUpper(m)
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost:
	default:
		return nil, types.ErrorDiagf("send_http_request: unsupported method %q", method).
			WithCode(types.DiagCodeTypeMismatch)
	}

	timeout := defaultHTTPTimeout
	if ms, ok := inputs.GetInt("timeout_ms"); ok && ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if s, ok := inputs.GetString("body"); ok {
		body = strings.NewReader(s)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, types.ErrorDiagf("send_http_request: %s", err).
			WithCode(types.DiagCodeExecutionFailed)
	}

	if headers, ok := inputs.Get("headers"); ok && !headers.IsNull() {
		if !headers.IsObject() {
			return nil, types.ErrorDiag("send_http_request: headers must be an object").
				WithCode(types.DiagCodeTypeMismatch)
		}
		for _, key := range headers.ObjectKeys() {
			value, _ := headers.GetKey(key)
			s, ok := value.AsString()
			if !ok {
				return nil, types.ErrorDiagf("send_http_request: header %q must be a string, got %s", key, value.Kind()).
					WithCode(types.DiagCodeTypeMismatch)
			}
			req.Header.Set(key, s)
		}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, types.ErrorDiagf("send_http_request: %s", err).
			WithCode(types.DiagCodeExecutionFailed)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.ErrorDiagf("send_http_request: reading response: %s", err).
			WithCode(types.DiagCodeExecutionFailed)
	}

	outputs := types.NewValueStore("send_http_request")
	outputs.Insert("response_body", types.StringValue(string(raw)))
	outputs.Insert("status_code", types.IntValue(int64(resp.StatusCode)))
	return &types.CommandExecutionResult{Outputs: outputs}, nil
}
