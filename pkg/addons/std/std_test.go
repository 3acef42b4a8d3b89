package std

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/txforge/txforge/pkg/types"
)

func functionByName(t *testing.T, name string) *types.FunctionSpecification {
	t.Helper()
	for _, spec := range New().Functions() {
		if spec.Name == name {
			return spec
		}
	}
	t.Fatalf("expected addon to provide function %q", name)
	return nil
}

func runFunction(t *testing.T, name string, args ...types.Value) types.Value {
	t.Helper()
	spec := functionByName(t, name)
	if diag := spec.CheckArity(args); diag != nil {
		t.Fatalf("unexpected arity error for %s: %v", name, diag)
	}
	result, diag := spec.Run(args)
	if diag != nil {
		t.Fatalf("unexpected error from %s: %v", name, diag)
	}
	return result
}

func TestAddonSurface(t *testing.T) {
	addon := New()
	if addon.Namespace() != "std" {
		t.Errorf("expected namespace std, got %s", addon.Namespace())
	}
	if len(addon.Actions()) == 0 {
		t.Error("expected addon to provide actions")
	}
	if len(addon.Signers()) != 0 {
		t.Errorf("expected no signers, got %d", len(addon.Signers()))
	}

	names := make(map[string]bool)
	for _, spec := range addon.Functions() {
		if spec.Run == nil {
			t.Errorf("function %s has no runner", spec.Name)
		}
		if names[spec.Name] {
			t.Errorf("duplicate function name %s", spec.Name)
		}
		names[spec.Name] = true
	}
	for _, want := range []string{"sha256", "keccak256", "ripemd160", "encode_base64", "decode_base64", "assert_eq", "assert_lte"} {
		if !names[want] {
			t.Errorf("expected function %s to be registered", want)
		}
	}
}

func TestSha256(t *testing.T) {
	result := runFunction(t, "sha256", types.BufferValue([]byte("hello, world")))
	got, _ := result.AsString()
	want := "0x09ca7e4eaa6e8ae9c7d261167129184883644d07dfba7cbfbc4c8a2e08360d5b"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	// A hex string argument hashes the decoded bytes, not the text.
	fromHex := runFunction(t, "sha256", types.StringValue("0x68656c6c6f2c20776f726c64"))
	if hexGot, _ := fromHex.AsString(); hexGot != want {
		t.Errorf("expected hex string input to match buffer input, got %s", hexGot)
	}
}

func TestRipemd160(t *testing.T) {
	result := runFunction(t, "ripemd160", types.BufferValue([]byte("hello, world")))
	got, _ := result.AsString()
	want := "0xa3201f82fca034e46d10cd7b27e174976e241da2"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestKeccak256(t *testing.T) {
	result := runFunction(t, "keccak256", types.BufferValue(nil))
	got, _ := result.AsString()
	want := "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestHashRejectsNonHashable(t *testing.T) {
	spec := functionByName(t, "sha256")
	_, diag := spec.Run([]types.Value{types.IntValue(42)})
	if diag == nil {
		t.Fatal("expected error for int argument, got nil")
	}
	if diag.Code != types.DiagCodeTypeMismatch {
		t.Errorf("expected code %s, got %s", types.DiagCodeTypeMismatch, diag.Code)
	}
}

func TestEncodeBase64(t *testing.T) {
	fromBuffer := runFunction(t, "encode_base64", types.BufferValue([]byte("Hello world!")))
	if got, _ := fromBuffer.AsString(); got != "SGVsbG8gd29ybGQh" {
		t.Errorf("expected SGVsbG8gd29ybGQh, got %s", got)
	}

	fromHex := runFunction(t, "encode_base64", types.StringValue("0x48656c6c6f20776f726c6421"))
	if got, _ := fromHex.AsString(); got != "SGVsbG8gd29ybGQh" {
		t.Errorf("expected hex input to decode before encoding, got %s", got)
	}

	fromText := runFunction(t, "encode_base64", types.StringValue("Hello world!"))
	if got, _ := fromText.AsString(); got != "SGVsbG8gd29ybGQh" {
		t.Errorf("expected plain string to encode directly, got %s", got)
	}
}

func TestDecodeBase64(t *testing.T) {
	result := runFunction(t, "decode_base64", types.StringValue("SGVsbG8gd29ybGQh"))
	raw, ok := result.AsBuffer()
	if !ok {
		t.Fatalf("expected buffer result, got %s", result.Kind())
	}
	if string(raw) != "Hello world!" {
		t.Errorf("expected Hello world!, got %s", string(raw))
	}

	spec := functionByName(t, "decode_base64")
	if _, diag := spec.Run([]types.Value{types.StringValue("not base64!!")}); diag == nil {
		t.Error("expected error for invalid base64, got nil")
	}
}

func assertionOutcome(t *testing.T, result types.Value) (bool, string) {
	t.Helper()
	success, ok := result.GetKey("success")
	if !ok {
		t.Fatal("expected assertion result to carry success")
	}
	passed, _ := success.AsBool()
	message := ""
	if m, ok := result.GetKey("message"); ok {
		message, _ = m.AsString()
	}
	return passed, message
}

func TestAssertEq(t *testing.T) {
	passed, _ := assertionOutcome(t, runFunction(t, "assert_eq", types.IntValue(5), types.IntValue(5)))
	if !passed {
		t.Error("expected equal values to pass")
	}

	passed, message := assertionOutcome(t, runFunction(t, "assert_eq", types.IntValue(5), types.IntValue(6)))
	if passed {
		t.Error("expected unequal values to fail")
	}
	if !strings.Contains(message, "assertion failed") {
		t.Errorf("expected failure message, got %q", message)
	}
}

func TestAssertNe(t *testing.T) {
	passed, _ := assertionOutcome(t, runFunction(t, "assert_ne", types.StringValue("a"), types.StringValue("b")))
	if !passed {
		t.Error("expected unequal values to pass")
	}

	passed, _ = assertionOutcome(t, runFunction(t, "assert_ne", types.StringValue("a"), types.StringValue("a")))
	if passed {
		t.Error("expected equal values to fail")
	}
}

func TestOrderingAssertions(t *testing.T) {
	cases := []struct {
		name  string
		left  types.Value
		right types.Value
		want  bool
	}{
		{"assert_gt", types.IntValue(5), types.IntValue(4), true},
		{"assert_gt", types.IntValue(4), types.IntValue(4), false},
		{"assert_gte", types.IntValue(4), types.IntValue(4), true},
		{"assert_gte", types.FloatValue(3.5), types.IntValue(4), false},
		{"assert_lt", types.FloatValue(3.5), types.IntValue(4), true},
		{"assert_lt", types.IntValue(4), types.IntValue(4), false},
		{"assert_lte", types.IntValue(4), types.IntValue(4), true},
		{"assert_lte", types.IntValue(5), types.IntValue(4), false},
	}
	for _, tc := range cases {
		passed, _ := assertionOutcome(t, runFunction(t, tc.name, tc.left, tc.right))
		if passed != tc.want {
			t.Errorf("%s(%s, %s): expected %v, got %v", tc.name, tc.left, tc.right, tc.want, passed)
		}
	}
}

func TestOrderingAssertionRejectsString(t *testing.T) {
	spec := functionByName(t, "assert_gt")
	_, diag := spec.Run([]types.Value{types.StringValue("5"), types.IntValue(4)})
	if diag == nil {
		t.Fatal("expected error for string argument, got nil")
	}
	if diag.Code != types.DiagCodeTypeMismatch {
		t.Errorf("expected code %s, got %s", types.DiagCodeTypeMismatch, diag.Code)
	}
}

func httpActionSpecification(t *testing.T) *types.CommandSpecification {
	t.Helper()
	for _, spec := range New().Actions() {
		if spec.Name == "send_http_request" {
			return spec
		}
	}
	t.Fatal("expected addon to provide send_http_request")
	return nil
}

func TestSendHTTPRequestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.Header.Get("X-Api-Key"); got != "secret" {
			t.Errorf("expected X-Api-Key header, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"ok":true}`)
	}))
	defer server.Close()

	headers := types.ObjectValue()
	headers.SetKey("X-Api-Key", types.StringValue("secret"))

	inputs := types.NewValueStore("request")
	inputs.Insert("url", types.StringValue(server.URL))
	inputs.Insert("headers", headers)

	spec := httpActionSpecification(t)
	result, diag := spec.RunExecution(context.Background(), types.ConstructDid{}, inputs)
	if diag != nil {
		t.Fatalf("unexpected error: %v", diag)
	}

	body, _ := result.Outputs.GetString("response_body")
	if body != `{"ok":true}` {
		t.Errorf("expected response body, got %s", body)
	}
	status, _ := result.Outputs.GetInt("status_code")
	if status != int64(http.StatusOK) {
		t.Errorf("expected status 200, got %d", status)
	}
}

func TestSendHTTPRequestPostBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if string(raw) != `{"amount":250}` {
			t.Errorf("expected request body, got %s", string(raw))
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	inputs := types.NewValueStore("request")
	inputs.Insert("url", types.StringValue(server.URL))
	inputs.Insert("method", types.StringValue("post"))
	inputs.Insert("body", types.StringValue(`{"amount":250}`))

	spec := httpActionSpecification(t)
	result, diag := spec.RunExecution(context.Background(), types.ConstructDid{}, inputs)
	if diag != nil {
		t.Fatalf("unexpected error: %v", diag)
	}
	status, _ := result.Outputs.GetInt("status_code")
	if status != int64(http.StatusCreated) {
		t.Errorf("expected status 201, got %d", status)
	}
}

func TestSendHTTPRequestUnsupportedMethod(t *testing.T) {
	inputs := types.NewValueStore("request")
	inputs.Insert("url", types.StringValue("http://localhost"))
	inputs.Insert("method", types.StringValue("DELETE"))

	spec := httpActionSpecification(t)
	_, diag := spec.RunExecution(context.Background(), types.ConstructDid{}, inputs)
	if diag == nil {
		t.Fatal("expected error for unsupported method, got nil")
	}
	if diag.Code != types.DiagCodeTypeMismatch {
		t.Errorf("expected code %s, got %s", types.DiagCodeTypeMismatch, diag.Code)
	}
}

func TestSendHTTPRequestBadHeaderValue(t *testing.T) {
	headers := types.ObjectValue()
	headers.SetKey("X-Count", types.IntValue(3))

	inputs := types.NewValueStore("request")
	inputs.Insert("url", types.StringValue("http://localhost"))
	inputs.Insert("headers", headers)

	spec := httpActionSpecification(t)
	_, diag := spec.RunExecution(context.Background(), types.ConstructDid{}, inputs)
	if diag == nil {
		t.Fatal("expected error for non-string header value, got nil")
	}
}
