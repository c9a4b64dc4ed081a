// Package testutil provides an in-process stand-in for the remote prompt
// service.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

const (
	Token    = "test-token"
	AppID    = "test-app"
	UsageKey = "test-usage"
)

// FakeAPI answers input_data, apply_prompt, return_data and object deletes.
// Retrieved values are chosen by the object name prefix.
type FakeAPI struct {
	Server *httptest.Server

	mu             sync.Mutex
	classification string
	music          string
	transcript     string
	failures       map[string]int
	objects        map[string]bool
	requests       []string
}

// NewFakeAPI starts a server that is closed when the test ends. The default
// classification is a valid astral record.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		classification: `{"primary_state":"astral","intensity":7,"secondary_states":["mental"],"chaos_detected":false,"opposite_action":"Write it down","music_prompt":"Soft rain and piano"}`,
		music:          "Ambient pads in E major, slow tempo",
		transcript:     "I keep worrying about tomorrow",
		failures:       map[string]int{},
		objects:        map[string]bool{},
	}

	r := chi.NewRouter()
	r.Use(f.authorize)
	r.Post("/api_tools/input_data", f.inputData)
	r.Post("/api_tools/apply_prompt", f.applyPrompt)
	r.Post("/api_tools/return_data", f.returnData)
	r.Delete("/api_tools/objects/{name}", f.deleteObject)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL including the /api_tools prefix.
func (f *FakeAPI) URL() string {
	return f.Server.URL + "/api_tools"
}

func (f *FakeAPI) SetClassification(v string) {
	f.mu.Lock()
	f.classification = v
	f.mu.Unlock()
}

func (f *FakeAPI) SetTranscript(v string) {
	f.mu.Lock()
	f.transcript = v
	f.mu.Unlock()
}

// Fail makes every request to endpoint (e.g. "apply_prompt") answer status.
// A zero status clears the failure.
func (f *FakeAPI) Fail(endpoint string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.failures, endpoint)
		return
	}
	f.failures[endpoint] = status
}

// Objects returns the names currently stored on the server.
func (f *FakeAPI) Objects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.objects))
	for name := range f.objects {
		out = append(out, name)
	}
	return out
}

// Requests returns "METHOD path" for every authorised request, in order.
func (f *FakeAPI) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.requests...)
}

func (f *FakeAPI) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token ||
			r.Header.Get("X-Generated-App-ID") != AppID ||
			r.Header.Get("X-Usage-Key") != UsageKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		endpoint := strings.TrimPrefix(r.URL.Path, "/api_tools/")
		if strings.HasPrefix(endpoint, "objects/") {
			endpoint = "objects"
		}

		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		status := f.failures[endpoint]
		f.mu.Unlock()

		if status != 0 {
			http.Error(w, "injected failure", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) inputData(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CreatedObjectName string `json:"created_object_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.CreatedObjectName == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.objects[body.CreatedObjectName] = true
	f.mu.Unlock()
	writeJSON(w, "Data stored")
}

func (f *FakeAPI) applyPrompt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CreatedObjectNames []string `json:"created_object_names"`
		PromptString       string   `json:"prompt_string"`
		Inputs             []any    `json:"inputs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.CreatedObjectNames) == 0 || body.Inputs == nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	for _, name := range body.CreatedObjectNames {
		f.objects[name] = true
	}
	f.mu.Unlock()
	writeJSON(w, "Prompt applied")
}

func (f *FakeAPI) returnData(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ObjectName string `json:"object_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	known := f.objects[body.ObjectName]
	var value string
	switch {
	case strings.HasPrefix(body.ObjectName, "emotional_analysis_"):
		value = f.classification
	case strings.HasPrefix(body.ObjectName, "music_generation_"):
		value = f.music
	case strings.HasPrefix(body.ObjectName, "transcribed_text_"):
		value = f.transcript
	}
	f.mu.Unlock()

	if !known {
		http.Error(w, "object not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"value": value})
}

func (f *FakeAPI) deleteObject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	f.mu.Lock()
	known := f.objects[name]
	delete(f.objects, name)
	f.mu.Unlock()
	if !known {
		http.Error(w, "object not found", http.StatusNotFound)
		return
	}
	writeJSON(w, "Deleted")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
