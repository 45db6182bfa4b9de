package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/acs/internal/live"
	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/repositories"
	"github.com/desertthunder/acs/internal/services"
	"github.com/desertthunder/acs/internal/shared"
	tu "github.com/desertthunder/acs/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// backend is a fake content API that records the requests it receives.
type backend struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
}

func (b *backend) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	body, _ := io.ReadAll(r.Body)
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
	if b.bodies == nil {
		b.bodies = map[string]string{}
	}
	b.bodies[r.Method+" "+r.URL.Path] = string(body)
}

func (b *backend) saw(call string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.requests {
		if r == call {
			return true
		}
	}
	return false
}

func (b *backend) body(call string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[call]
}

const (
	threadJSON = `{"_id":"t1","title":"Launch post","type":"blog_post","status":"active",` +
		`"lastContent":{"_id":"c1","status":"completed"}}`
	detailsJSON = `{"_id":"t1","title":"Launch post","type":"blog_post","status":"active","contents":[` +
		`{"_id":"c0","threadId":"t1","prompt":"first","status":"failed","error":"quota"},` +
		`{"_id":"c1","threadId":"t1","prompt":"Write a launch post","generatedContent":"We are live.","status":"completed"}]}`
)

func newBackend(t *testing.T) (*httptest.Server, *backend) {
	t.Helper()
	b := &backend{}
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			b.record(r)
			if r.Header.Get("Authorization") != "Bearer good" {
				write(w, http.StatusUnauthorized, `{"message":"jwt expired"}`)
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		write(w, http.StatusOK, `{"user":{"_id":"u1","name":"Ada","email":"ada@example.com"},"tokens":{"access":"good","refresh":"r1"}}`)
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		write(w, http.StatusUnauthorized, `{"message":"refresh token expired"}`)
	})
	mux.HandleFunc("GET /threads", authed(func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, `{"data":[`+threadJSON+`,{"_id":"t2","title":"Pricing page","type":"product_description"}],"total":2,"currentPage":1,"pageSize":5}`)
	}))
	mux.HandleFunc("GET /threads/summary", authed(func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, `{"totalThreads":2,"threadsByType":{"blog_post":1,"product_description":1},"statusCounts":{"completed":1}}`)
	}))
	mux.HandleFunc("GET /threads/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "t1" {
			write(w, http.StatusNotFound, `{"message":"Thread not found"}`)
			return
		}
		write(w, http.StatusOK, detailsJSON)
	}))
	mux.HandleFunc("POST /content/generate", authed(func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, `{"_id":"t9","title":"Fresh","type":"blog_post","lastContent":{"_id":"c9","status":"completed","generatedContent":"Hello there"}}`)
	}))
	mux.HandleFunc("PATCH /content/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, `{"_id":"`+r.PathValue("id")+`","status":"completed","sentiment":"positive"}`)
	}))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, b
}

func newTestRunner(t *testing.T, baseURL string) (*Runner, *bytes.Buffer) {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	config := shared.DefaultConfig()
	config.API.BaseURL = baseURL

	output := &bytes.Buffer{}
	runner, err := NewRunner(RunnerOpts{
		Config: config,
		DB:     db,
		Logger: shared.NewLogger(io.Discard),
		Output: output,
	})
	if err != nil {
		t.Fatalf("failed to create runner: %v", err)
	}
	t.Cleanup(func() { runner.Close() })
	return runner, output
}

func signIn(t *testing.T, r *Runner) {
	t.Helper()
	if err := r.store.SaveToken(&oauth2.Token{AccessToken: "good", RefreshToken: "r1"}); err != nil {
		t.Fatalf("failed to save token: %v", err)
	}
	if err := r.users.Save(models.NewUser("u1", "Ada", "ada@example.com")); err != nil {
		t.Fatalf("failed to save user: %v", err)
	}
}

func run(r *Runner, args ...string) error {
	app := &cli.Command{Name: "acs", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"acs"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner, err := NewRunner(RunnerOpts{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if _, ok := runner.store.(*services.MemoryTokenStore); !ok {
				t.Errorf("expected in-memory token store without a database, got %T", runner.store)
			}
			if runner.users != nil || runner.cache != nil {
				t.Error("expected no repositories without a database")
			}
		})

		t.Run("with database persists credentials", func(t *testing.T) {
			runner, _ := newTestRunner(t, "http://localhost:8000")

			if _, ok := runner.store.(*repositories.CredentialRepository); !ok {
				t.Errorf("expected credential repository, got %T", runner.store)
			}
			if runner.users == nil || runner.cache == nil {
				t.Error("expected repositories to be set")
			}
			if runner.generation == nil || runner.feedback == nil || runner.export == nil {
				t.Error("expected engines to be set")
			}
		})

		t.Run("with invalid base url fails", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.API.BaseURL = "::not a url"

			if _, err := NewRunner(RunnerOpts{Config: config, Logger: shared.NewLogger(io.Discard)}); err == nil {
				t.Error("expected error for invalid base url")
			}
		})
	})

	t.Run("SetLogger rewires clients", func(t *testing.T) {
		runner, _ := newTestRunner(t, "http://localhost:8000")
		before := runner.client

		logger := shared.NewLogger(io.Discard)
		if err := runner.SetLogger(logger); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if runner.logger != logger {
			t.Error("expected logger to be replaced")
		}
		if runner.client == before {
			t.Error("expected client to be rebuilt with the new logger")
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			runner, output := newTestRunner(t, "http://localhost:8000")

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("returns error for unmarshalable data", func(t *testing.T) {
			runner, _ := newTestRunner(t, "http://localhost:8000")

			if err := runner.writeJSON(make(chan int), false); err == nil {
				t.Error("expected error for unmarshalable data")
			}
		})

		t.Run("returns error when write fails", func(t *testing.T) {
			runner, _ := newTestRunner(t, "http://localhost:8000")
			runner.output = &tu.FWriter{}

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err == nil {
				t.Error("expected error when write fails")
			}
		})

		t.Run("returns error when newline write fails", func(t *testing.T) {
			runner, _ := newTestRunner(t, "http://localhost:8000")
			w := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner.output = &w

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("formats text", func(t *testing.T) {
			runner, output := newTestRunner(t, "http://localhost:8000")

			if err := runner.writePlain("%d threads\n", 3); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "3 threads\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("returns error when write fails", func(t *testing.T) {
			runner, _ := newTestRunner(t, "http://localhost:8000")
			runner.output = &tu.FWriter{}

			if err := runner.writePlain("x"); err == nil {
				t.Error("expected error when write fails")
			}
			if err := runner.writePlainln("x"); err == nil {
				t.Error("expected error when write fails")
			}
		})
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("login stores credentials and profile", func(t *testing.T) {
		server, b := newBackend(t)
		runner, output := newTestRunner(t, server.URL)

		if err := run(runner, "auth", "login", "--email", "ada@example.com", "--password", "secret"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !b.saw("POST /auth/login") {
			t.Error("expected login request")
		}
		if !strings.Contains(output.String(), "Signed in as Ada <ada@example.com>") {
			t.Errorf("unexpected output %q", output.String())
		}

		token, err := runner.store.Token()
		if err != nil || token == nil || token.AccessToken != "good" {
			t.Errorf("expected stored token, got %v (%v)", token, err)
		}
		user, err := runner.users.Current()
		if err != nil || user.ID() != "u1" {
			t.Errorf("expected cached user u1, got %v (%v)", user, err)
		}
	})

	t.Run("login rejects an invalid email before calling the API", func(t *testing.T) {
		server, b := newBackend(t)
		runner, _ := newTestRunner(t, server.URL)

		err := run(runner, "auth", "login", "--email", "nope", "--password", "secret")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if b.saw("POST /auth/login") {
			t.Error("expected no request")
		}
	})

	t.Run("status reports the signed-in user", func(t *testing.T) {
		runner, output := newTestRunner(t, "http://localhost:8000")
		signIn(t, runner)

		if err := run(runner, "auth", "status", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var status authStatus
		if err := json.Unmarshal(output.Bytes(), &status); err != nil {
			t.Fatalf("failed to decode status: %v", err)
		}
		if !status.Authenticated || status.Email != "ada@example.com" {
			t.Errorf("unexpected status %+v", status)
		}
	})

	t.Run("status without credentials", func(t *testing.T) {
		runner, output := newTestRunner(t, "http://localhost:8000")

		if err := run(runner, "auth", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Not signed in") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("logout clears credentials, profile and cache", func(t *testing.T) {
		runner, _ := newTestRunner(t, "http://localhost:8000")
		signIn(t, runner)
		if _, err := runner.cache.SaveAll([]models.Thread{{ID: "t1", Title: "Launch post"}}); err != nil {
			t.Fatalf("failed to seed cache: %v", err)
		}

		if err := run(runner, "auth", "logout"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if token, _ := runner.store.Token(); token != nil {
			t.Error("expected token to be cleared")
		}
		if _, err := runner.users.Current(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected no cached user, got %v", err)
		}
		if _, total, _ := runner.cache.List(repositories.ThreadFilter{}); total != 0 {
			t.Errorf("expected empty cache, got %d", total)
		}
	})
}

func TestThreadsCommands(t *testing.T) {
	t.Run("list caches results for offline use", func(t *testing.T) {
		server, _ := newBackend(t)
		runner, output := newTestRunner(t, server.URL)
		signIn(t, runner)

		if err := run(runner, "threads", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Launch post") || !strings.Contains(output.String(), "Page 1 of 1") {
			t.Errorf("unexpected output %q", output.String())
		}

		server.Close()
		output.Reset()

		if err := run(runner, "threads", "list", "--cached", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var page models.ThreadsPage
		if err := json.Unmarshal(output.Bytes(), &page); err != nil {
			t.Fatalf("failed to decode page: %v", err)
		}
		if page.Total != 2 || len(page.Data) != 2 {
			t.Errorf("expected 2 cached threads, got %+v", page)
		}
	})

	t.Run("list without credentials reports the expired session", func(t *testing.T) {
		server, _ := newBackend(t)
		runner, _ := newTestRunner(t, server.URL)

		err := run(runner, "threads", "list")
		if err == nil {
			t.Fatal("expected error")
		}
		if _, ok := services.AsAPIError(err); !ok {
			t.Errorf("expected APIError, got %T: %v", err, err)
		}
	})

	t.Run("summary", func(t *testing.T) {
		server, _ := newBackend(t)
		runner, output := newTestRunner(t, server.URL)
		signIn(t, runner)

		if err := run(runner, "threads", "summary"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Total threads: 2") || !strings.Contains(output.String(), "Blog Post") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("show renders markdown", func(t *testing.T) {
		server, _ := newBackend(t)
		runner, output := newTestRunner(t, server.URL)
		signIn(t, runner)

		if err := run(runner, "threads", "show", "--format", "md", "t1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.HasPrefix(output.String(), "# Launch post") || !strings.Contains(output.String(), "We are live.") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("show requires an id", func(t *testing.T) {
		runner, _ := newTestRunner(t, "http://localhost:8000")

		if err := run(runner, "threads", "show"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("export writes a single thread into a directory", func(t *testing.T) {
		server, _ := newBackend(t)
		runner, _ := newTestRunner(t, server.URL)
		signIn(t, runner)
		dir := t.TempDir()

		if err := run(runner, "threads", "export", "--format", "csv", "--output", dir, "t1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		path := filepath.Join(dir, "t1.csv")
		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "We are live.") {
			t.Errorf("unexpected export %q", content)
		}
	})

	t.Run("bulk export writes a manifest and reports failures", func(t *testing.T) {
		server, _ := newBackend(t)
		runner, output := newTestRunner(t, server.URL)
		signIn(t, runner)
		dir := t.TempDir()

		err := run(runner, "threads", "export", "--output", dir, "--rate", "100", "t1", "missing")
		if err == nil || !strings.Contains(err.Error(), "1 of 2") {
			t.Errorf("expected one failure, got %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "t1.md"))
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
		if !strings.Contains(output.String(), "Exported: 1/2") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("open prints the thread page", func(t *testing.T) {
		runner, output := newTestRunner(t, "http://localhost:8000")

		if err := run(runner, "threads", "open", "--print", "t1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := strings.TrimSpace(output.String()); got != "http://localhost:3000/content?id=t1" {
			t.Errorf("unexpected url %q", got)
		}
	})
}

func TestContentCommands(t *testing.T) {
	t.Run("generate without following prints the settled content", func(t *testing.T) {
		server, b := newBackend(t)
		runner, output := newTestRunner(t, server.URL)
		signIn(t, runner)

		if err := run(runner, "content", "generate", "--no-follow", "--type", "blog_post", "Write a haiku"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Hello there") || !strings.Contains(output.String(), "t9") {
			t.Errorf("unexpected output %q", output.String())
		}
		if body := b.body("POST /content/generate"); !strings.Contains(body, `"prompt":"Write a haiku"`) {
			t.Errorf("unexpected request body %q", body)
		}
	})

	t.Run("generate rejects an unknown type", func(t *testing.T) {
		server, b := newBackend(t)
		runner, _ := newTestRunner(t, server.URL)
		signIn(t, runner)

		err := run(runner, "content", "generate", "--no-follow", "--type", "poem", "--prompt", "x")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if b.saw("POST /content/generate") {
			t.Error("expected no request")
		}
	})

	t.Run("sentiment rejects unknown words", func(t *testing.T) {
		runner, _ := newTestRunner(t, "http://localhost:8000")

		if err := run(runner, "content", "sentiment", "c1", "meh"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("sentiment stores the word", func(t *testing.T) {
		server, b := newBackend(t)
		runner, output := newTestRunner(t, server.URL)
		signIn(t, runner)

		if err := run(runner, "content", "sentiment", "c1", "Positive"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if body := b.body("PATCH /content/c1"); !strings.Contains(body, `"sentiment":"positive"`) {
			t.Errorf("unexpected request body %q", body)
		}
		if !strings.Contains(output.String(), "Marked c1 as Positive") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("feedback targets the latest generation", func(t *testing.T) {
		server, b := newBackend(t)
		runner, output := newTestRunner(t, server.URL)
		signIn(t, runner)

		if err := run(runner, "content", "feedback", "--text", "positive", "t1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !b.saw("PATCH /content/c1") {
			t.Error("expected sentiment update on c1")
		}
		if !strings.Contains(output.String(), "Sentiment: Positive") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("feedback refuses failed content", func(t *testing.T) {
		server, b := newBackend(t)
		runner, _ := newTestRunner(t, server.URL)
		signIn(t, runner)

		err := run(runner, "content", "feedback", "--text", "positive", "--content", "c0", "t1")
		if !errors.Is(err, shared.ErrContentNotReady) {
			t.Errorf("expected ErrContentNotReady, got %v", err)
		}
		if b.saw("PATCH /content/c0") {
			t.Error("expected no sentiment update")
		}
	})
}

func TestPickContent(t *testing.T) {
	details := &models.ThreadDetails{
		Thread:   models.Thread{ID: "t1"},
		Contents: []models.Content{{ID: "c0"}, {ID: "c1"}},
	}

	t.Run("defaults to latest", func(t *testing.T) {
		c, err := pickContent(details, "")
		if err != nil || c.ID != "c1" {
			t.Errorf("expected c1, got %v (%v)", c.ID, err)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if _, err := pickContent(details, "zz"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("empty thread", func(t *testing.T) {
		if _, err := pickContent(&models.ThreadDetails{}, ""); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestConfigShow(t *testing.T) {
	runner, output := newTestRunner(t, "http://api.test")

	if err := run(runner, "config", "show", "--config", filepath.Join(t.TempDir(), "missing.toml")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(output.String(), "[api]") || !strings.Contains(output.String(), `base_url = "http://api.test"`) {
		t.Errorf("unexpected output %q", output.String())
	}
}

func TestDescribeEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   live.Event
		want string
	}{
		{"status", live.StatusEvent{ID: "c1", Status: models.ContentProcessing}, "[c1] status → processing"},
		{"chunk", live.ContentEvent{ID: "c1", Text: "abc", Chunk: true}, "[c1] +3 chars"},
		{"error", live.ErrorEvent{ID: "c1", Message: "quota"}, "[c1] failed: quota"},
		{"complete", live.CompleteEvent{ID: "c1", Text: "done"}, "[c1] completed (4 chars)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeEvent(tt.ev); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	t.Run("uses the API's user message", func(t *testing.T) {
		err := &services.APIError{Category: services.CategoryNotFound, Status: 404, Message: "x", UserMessage: "Not found."}
		if got := errorMessage(err); got != "Not found." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("falls back to the error text", func(t *testing.T) {
		if got := errorMessage(shared.ErrMissingArgument); !strings.HasPrefix(got, "error: ") {
			t.Errorf("got %q", got)
		}
	})
}

func TestStreamCommand(t *testing.T) {
	t.Run("exits when the server rejects the token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		t.Cleanup(server.Close)
		runner, _ := newTestRunner(t, server.URL)
		signIn(t, runner)

		done := make(chan error, 1)
		go func() { done <- run(runner, "stream") }()

		select {
		case err := <-done:
			if !errors.Is(err, shared.ErrStreamClosed) {
				t.Errorf("expected ErrStreamClosed, got %v", err)
			}
			if !strings.Contains(err.Error(), "401") {
				t.Errorf("expected status in error, got %q", err.Error())
			}
		case <-time.After(3 * time.Second):
			t.Fatal("stream did not exit after a 401")
		}
	})

	t.Run("reopening replaces the previous channel and Close releases it", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.(http.Flusher).Flush()
			<-r.Context().Done()
		}))
		t.Cleanup(server.Close)
		runner, _ := newTestRunner(t, server.URL)
		signIn(t, runner)

		first, err := runner.openStream(context.Background())
		if err != nil {
			t.Fatalf("open failed: %v", err)
		}
		second, err := runner.openStream(context.Background())
		if err != nil {
			t.Fatalf("reopen failed: %v", err)
		}

		if first.State() != live.StateIdle {
			t.Errorf("expected first channel closed, got %s", first.State())
		}
		if _, ok := <-first.Events(); ok {
			t.Error("expected first channel events to be closed")
		}
		if current, key := runner.sub.Current(); current != second || key != "u1" {
			t.Errorf("expected second channel scoped to u1, got %v %q", current, key)
		}

		if err := runner.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if _, ok := <-second.Events(); ok {
			t.Error("expected second channel events to be closed")
		}
		if current, _ := runner.sub.Current(); current != nil {
			t.Error("expected no channel after close")
		}
	})

	t.Run("requires a signed-in user", func(t *testing.T) {
		server, _ := newBackend(t)
		runner, _ := newTestRunner(t, server.URL)

		if err := run(runner, "stream"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}
