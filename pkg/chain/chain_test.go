package chain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

const defaultBody = "default route"

var defaultHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("X-Default-Body-Length", fmt.Sprint(len(body)))
	_, _ = w.Write([]byte(defaultBody))
})

// testLink builds a link which claims POST requests with the given path,
// and records how many times its handler was invoked.
func testLink(path string, verifyErr, decodeErr, handleErr error, calls *atomic.Int32) *Link[string] {
	return &Link[string]{
		Kind: CommandEvent,
		Classify: func(r *Request) bool {
			return r.Method == http.MethodPost && r.URL.Path == path
		},
		Verify: func(context.Context, *Request, *Env) error {
			return verifyErr
		},
		Decode: func(r *Request) (string, error) {
			return string(r.Body), decodeErr
		},
		Handle: func(_ context.Context, event string, _ *Env) (*Response, error) {
			calls.Add(1)
			if handleErr != nil {
				return nil, handleErr
			}
			return Text("echo: " + event), nil
		},
	}
}

func serve(t *testing.T, c *Chain, method, path, body string) *http.Response {
	t.Helper()

	w := httptest.NewRecorder()
	r := httptest.NewRequestWithContext(t.Context(), method, path, strings.NewReader(body))
	c.ServeHTTP(w, r)
	return w.Result()
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestChainServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		verifyErr  error
		decodeErr  error
		handleErr  error
		wantStatus int
		wantBody   string
		wantCalls  int32
	}{
		{
			name:       "unmatched_path",
			method:     http.MethodPost,
			path:       "/other",
			wantStatus: http.StatusOK,
			wantBody:   defaultBody,
		},
		{
			name:       "unmatched_method",
			method:     http.MethodGet,
			path:       "/command",
			wantStatus: http.StatusOK,
			wantBody:   defaultBody,
		},
		{
			name:       "happy_path",
			method:     http.MethodPost,
			path:       "/command",
			wantStatus: http.StatusOK,
			wantBody:   "echo: payload",
			wantCalls:  1,
		},
		{
			name:       "verification_failure",
			method:     http.MethodPost,
			path:       "/command",
			verifyErr:  errors.New("bad signature"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "deserialization_failure",
			method:     http.MethodPost,
			path:       "/command",
			decodeErr:  errors.New("bad payload"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "handler_failure",
			method:     http.MethodPost,
			path:       "/command",
			handleErr:  errors.New("boom"),
			wantStatus: http.StatusBadRequest,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := new(atomic.Int32)
			link := testLink("/command", tt.verifyErr, tt.decodeErr, tt.handleErr, calls)
			c := New(&Env{}, []Route{link}, defaultHandler, WithLogger(zerolog.Nop()))

			resp := serve(t, c, tt.method, tt.path, "payload")
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status code = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if got := readBody(t, resp); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("handler calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestChainDefaultHandlerGetsFullBody(t *testing.T) {
	c := New(&Env{}, nil, defaultHandler, WithLogger(zerolog.Nop()))

	resp := serve(t, c, http.MethodPost, "/anything", "12345")
	if got := resp.Header.Get("X-Default-Body-Length"); got != "5" {
		t.Errorf("default handler body length = %s, want 5", got)
	}
}

func TestChainFirstMatchWins(t *testing.T) {
	first, second := new(atomic.Int32), new(atomic.Int32)
	c := New(&Env{}, []Route{
		testLink("/command", nil, nil, nil, first),
		testLink("/command", nil, nil, nil, second),
	}, defaultHandler, WithLogger(zerolog.Nop()))

	for range 3 {
		serve(t, c, http.MethodPost, "/command", "x")
	}

	if first.Load() != 3 || second.Load() != 0 {
		t.Errorf("handler calls = (%d, %d), want (3, 0)", first.Load(), second.Load())
	}
}

func TestChainClassifyIsIdempotent(t *testing.T) {
	calls := new(atomic.Int32)
	c := New(&Env{}, []Route{testLink("/command", nil, nil, nil, calls)}, defaultHandler)

	r := httptest.NewRequestWithContext(t.Context(), http.MethodPost, "/command", strings.NewReader("body"))
	req, err := NewRequest(httptest.NewRecorder(), r, DefaultMaxBodySize)
	if err != nil {
		t.Fatal(err)
	}

	_, cat1 := c.Classify(req)
	_, cat2 := c.Classify(req)
	if cat1 != CommandEvent || cat2 != CommandEvent {
		t.Errorf("Classify() = %v, then %v, want %v twice", cat1, cat2, CommandEvent)
	}
	if string(req.Body) != "body" {
		t.Errorf("request body after classification = %q", req.Body)
	}
}

func TestChainHandlerPanic(t *testing.T) {
	link := &Link[string]{
		Kind:     InteractionEvent,
		Classify: func(*Request) bool { return true },
		Decode:   func(*Request) (string, error) { return "", nil },
		Handle: func(context.Context, string, *Env) (*Response, error) {
			panic("handler bug")
		},
	}

	var gotErr error
	policy := ErrorPolicyFunc(func(_ context.Context, err error, _ *Env) int {
		gotErr = err
		return http.StatusServiceUnavailable
	})

	c := New(&Env{}, []Route{link}, defaultHandler, WithErrorPolicy(policy), WithLogger(zerolog.Nop()))
	resp := serve(t, c, http.MethodPost, "/", "")

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
	var he *HandlerError
	if !errors.As(gotErr, &he) || he.Category != InteractionEvent {
		t.Errorf("policy error = %v, want HandlerError for %v", gotErr, InteractionEvent)
	}
}

func TestChainErrorPolicy(t *testing.T) {
	tests := []struct {
		name       string
		verifyErr  error
		handleErr  error
		policy     ErrorPolicyFunc
		wantStatus int
	}{
		{
			name:      "custom_status_for_handler_error",
			handleErr: errors.New("upstream down"),
			policy: func(context.Context, error, *Env) int {
				return http.StatusBadGateway
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:      "policy_panics",
			handleErr: errors.New("boom"),
			policy: func(context.Context, error, *Env) int {
				panic("policy bug")
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:      "policy_returns_invalid_status",
			handleErr: errors.New("boom"),
			policy: func(context.Context, error, *Env) int {
				return 42
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:      "verification_failure_is_always_4xx",
			verifyErr: errors.New("forged"),
			policy: func(context.Context, error, *Env) int {
				return http.StatusOK
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:      "verification_failure_custom_4xx",
			verifyErr: errors.New("forged"),
			policy: func(_ context.Context, err error, _ *Env) int {
				if ve := new(VerificationError); errors.As(err, &ve) {
					return http.StatusUnauthorized
				}
				return http.StatusBadRequest
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := new(atomic.Int32)
			link := testLink("/command", tt.verifyErr, nil, tt.handleErr, calls)
			c := New(&Env{}, []Route{link}, defaultHandler, WithErrorPolicy(tt.policy), WithLogger(zerolog.Nop()))

			resp := serve(t, c, http.MethodPost, "/command", "")
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status code = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestChainBodyTooLarge(t *testing.T) {
	calls := new(atomic.Int32)
	c := New(&Env{}, []Route{testLink("/command", nil, nil, nil, calls)}, defaultHandler,
		WithMaxBodySize(4), WithLogger(zerolog.Nop()))

	resp := serve(t, c, http.MethodPost, "/command", "too large")
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusRequestEntityTooLarge)
	}
	if calls.Load() != 0 {
		t.Error("handler was invoked")
	}
}

func TestChainConcurrentRequests(t *testing.T) {
	calls := new(atomic.Int32)
	c := New(&Env{}, []Route{testLink("/command", nil, nil, nil, calls)}, defaultHandler, WithLogger(zerolog.Nop()))
	s := httptest.NewServer(c)
	defer s.Close()

	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()

			payload := fmt.Sprintf("request-%d", i)
			resp, err := s.Client().Post(s.URL+"/command", "text/plain", strings.NewReader(payload))
			if err != nil {
				t.Error(err)
				return
			}
			defer resp.Body.Close()

			b, _ := io.ReadAll(resp.Body)
			if got, want := string(b), "echo: "+payload; got != want {
				t.Errorf("response = %q, want %q", got, want)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != n {
		t.Errorf("handler calls = %d, want %d", calls.Load(), n)
	}
}

func TestCategoryString(t *testing.T) {
	tests := []struct {
		c    Category
		want string
	}{
		{Unmatched, "unmatched"},
		{OAuthCallback, "oauth_callback"},
		{CommandEvent, "command_event"},
		{Category(99), "category_99"},
	}

	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("Category(%d).String() = %q, want %q", tt.c, got, tt.want)
		}
	}
}

// funcRoute is a minimal custom [Route], which isn't a [Link].
type funcRoute struct {
	serve func() Outcome
}

func (funcRoute) Category() Category   { return CommandEvent }
func (funcRoute) Match(r *Request) bool { return r.URL.Path == "/command" }

func (f funcRoute) Serve(context.Context, *Request, *Env) Outcome {
	return f.serve()
}

func TestChainPanicsOutsideHandlers(t *testing.T) {
	nilMapWrite := func() {
		var m map[string]int
		m["boom"]++
	}
	nilDeref := func() int {
		var p *int
		return *p
	}

	tests := []struct {
		name  string
		route Route
	}{
		{
			name: "verifier",
			route: &Link[string]{
				Kind:     CommandEvent,
				Classify: func(*Request) bool { return true },
				Verify: func(context.Context, *Request, *Env) error {
					_ = nilDeref()
					return nil
				},
				Decode: func(*Request) (string, error) { return "", nil },
				Handle: func(context.Context, string, *Env) (*Response, error) { return OK(), nil },
			},
		},
		{
			name: "decoder",
			route: &Link[string]{
				Kind:     CommandEvent,
				Classify: func(*Request) bool { return true },
				Decode: func(*Request) (string, error) {
					nilMapWrite()
					return "", nil
				},
				Handle: func(context.Context, string, *Env) (*Response, error) { return OK(), nil },
			},
		},
		{
			name: "classifier",
			route: &Link[string]{
				Kind: CommandEvent,
				Classify: func(*Request) bool {
					nilMapWrite()
					return true
				},
				Decode: func(*Request) (string, error) { return "", nil },
				Handle: func(context.Context, string, *Env) (*Response, error) { return OK(), nil },
			},
		},
		{
			name: "custom_route",
			route: funcRoute{serve: func() Outcome {
				panic("route bug")
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotErr error
			policy := ErrorPolicyFunc(func(_ context.Context, err error, _ *Env) int {
				gotErr = err
				return http.StatusServiceUnavailable
			})

			c := New(&Env{}, []Route{tt.route}, defaultHandler, WithErrorPolicy(policy), WithLogger(zerolog.Nop()))
			resp := serve(t, c, http.MethodPost, "/command", "")

			if resp.StatusCode != http.StatusServiceUnavailable {
				t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
			}
			var he *HandlerError
			if !errors.As(gotErr, &he) {
				t.Errorf("policy error = %v, want HandlerError", gotErr)
			}
		})
	}
}

func TestChainDefaultHandlerPanic(t *testing.T) {
	fallback := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("default route bug")
	})
	c := New(&Env{}, nil, fallback, WithLogger(zerolog.Nop()))

	resp := serve(t, c, http.MethodGet, "/anything", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestChainEmptyOutcome(t *testing.T) {
	route := funcRoute{serve: func() Outcome { return Outcome{} }}
	c := New(&Env{}, []Route{route}, defaultHandler, WithLogger(zerolog.Nop()))

	resp := serve(t, c, http.MethodPost, "/command", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if got := readBody(t, resp); got != "" {
		t.Errorf("body = %q, want empty", got)
	}
}
