package slack

import (
	"net/http"
	"net/url"
	"testing"
)

const (
	formType = "application/x-www-form-urlencoded"
	jsonType = "application/json"
)

func TestClassifiers(t *testing.T) {
	shared := Paths{Install: "/i", Callback: "/cb", Interaction: "/slack", Command: "/slack"}
	interactionForm := url.Values{"payload": {`{"type":"block_actions"}`}}.Encode()

	tests := []struct {
		name            string
		paths           Paths
		method          string
		path            string
		contentType     string
		body            string
		wantInstall     bool
		wantCallback    bool
		wantInteraction bool
		wantCommand     bool
	}{
		{
			name:        "install",
			paths:       DefaultPaths,
			method:      http.MethodGet,
			path:        "/auth/install",
			wantInstall: true,
		},
		{
			name:         "callback",
			paths:        DefaultPaths,
			method:       http.MethodGet,
			path:         "/auth/callback?code=123",
			wantCallback: true,
		},
		{
			name:   "callback_wrong_method",
			paths:  DefaultPaths,
			method: http.MethodPost,
			path:   "/auth/callback",
		},
		{
			name:            "interaction_by_path",
			paths:           DefaultPaths,
			method:          http.MethodPost,
			path:            "/interaction",
			contentType:     formType,
			body:            "anything",
			wantInteraction: true,
		},
		{
			name:        "command_by_path",
			paths:       DefaultPaths,
			method:      http.MethodPost,
			path:        "/command",
			contentType: jsonType,
			body:        `{"text":"missing command name"}`,
			wantCommand: true,
		},
		{
			name:   "unknown_path",
			paths:  DefaultPaths,
			method: http.MethodPost,
			path:   "/events",
		},
		{
			name:            "shared_path_interaction_form",
			paths:           shared,
			method:          http.MethodPost,
			path:            "/slack",
			contentType:     formType,
			body:            interactionForm,
			wantInteraction: true,
		},
		{
			name:            "shared_path_interaction_json",
			paths:           shared,
			method:          http.MethodPost,
			path:            "/slack",
			contentType:     jsonType,
			body:            `{"type":"view_submission","view":{}}`,
			wantInteraction: true,
		},
		{
			name:        "shared_path_command_form",
			paths:       shared,
			method:      http.MethodPost,
			path:        "/slack",
			contentType: formType,
			body:        "command=%2Fqueue&text=",
			wantCommand: true,
		},
		{
			name:        "shared_path_command_json",
			paths:       shared,
			method:      http.MethodPost,
			path:        "/slack",
			contentType: jsonType,
			body:        `{"command":"/queue","text":""}`,
			wantCommand: true,
		},
		{
			name:        "shared_path_unknown_shape",
			paths:       shared,
			method:      http.MethodPost,
			path:        "/slack",
			contentType: jsonType,
			body:        `{"type":"event_callback"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRequest(t, tt.method, tt.path, tt.contentType, tt.body, nil)

			// Classifying twice must yield the same results.
			for range 2 {
				if got := tt.paths.ClassifyOAuthInstall(r); got != tt.wantInstall {
					t.Errorf("ClassifyOAuthInstall() = %v, want %v", got, tt.wantInstall)
				}
				if got := tt.paths.ClassifyOAuthCallback(r); got != tt.wantCallback {
					t.Errorf("ClassifyOAuthCallback() = %v, want %v", got, tt.wantCallback)
				}
				if got := tt.paths.ClassifyInteraction(r); got != tt.wantInteraction {
					t.Errorf("ClassifyInteraction() = %v, want %v", got, tt.wantInteraction)
				}
				if got := tt.paths.ClassifyCommand(r); got != tt.wantCommand {
					t.Errorf("ClassifyCommand() = %v, want %v", got, tt.wantCommand)
				}
			}
		})
	}
}
