package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/stereo/internal/formatter"
	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/server"
	"github.com/desertthunder/stereo/internal/services"
	"github.com/desertthunder/stereo/internal/shared"
	tu "github.com/desertthunder/stereo/internal/testing"
)

// runApp runs the CLI with args against r.
func runApp(r *Runner, args ...string) error {
	app := &cli.Command{Name: "stereo", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"stereo"}, args...))
}

func testRunner(output *bytes.Buffer) *Runner {
	config := shared.DefaultConfig()
	config.Client.RequestTimeout = 5 * time.Second
	return NewRunner(RunnerOpts{Config: config, Output: output, Logger: shared.NewLogger(&bytes.Buffer{})})
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			fs := afero.NewMemMapFs()
			youtube := services.NewYouTubeService("", nil)

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				Fs:         fs,
				YouTube:    youtube,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.fs != fs {
				t.Error("expected fs to be set")
			}
			if runner.youtube != youtube {
				t.Error("expected youtube to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.fs == nil {
				t.Error("expected the OS filesystem by default")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

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

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "serve", "tui", "search", "collection", "playlist", "remote"} {
			if !names[want] {
				t.Errorf("expected command %q to be registered", want)
			}
		}
	})

	t.Run("collectionPath", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.App.Home = "/data/stereo"
		runner := NewRunner(RunnerOpts{Config: config})

		var got string
		app := &cli.Command{
			Name:  "test",
			Flags: []cli.Flag{collectionFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				got = runner.collectionPath(cmd)
				return nil
			},
		}

		if err := app.Run(context.Background(), []string{"test"}); err != nil {
			t.Fatal(err)
		}
		if got != "/data/stereo/stereo.db" {
			t.Errorf("expected the home collection, got %s", got)
		}

		if err := app.Run(context.Background(), []string{"test", "--collection", "/tmp/other.db"}); err != nil {
			t.Fatal(err)
		}
		if got != "/tmp/other.db" {
			t.Errorf("expected the flag value, got %s", got)
		}
	})
}

func TestSetup(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STEREO_HOME", filepath.Join(dir, "home"))
	configPath := filepath.Join(dir, "conf", "config.toml")

	output := &bytes.Buffer{}
	runner := testRunner(output)

	if err := runApp(runner, "setup", "--config", configPath); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tu.AssertFileExists(t, configPath)
	tu.AssertFileExists(t, filepath.Join(dir, "home", "stereo.db"))
	if !strings.Contains(output.String(), "Setup complete") {
		t.Errorf("expected a completion message, got %q", output.String())
	}

	t.Run("keeps an existing config", func(t *testing.T) {
		tu.MustWriteFile(t, configPath, "[app]\nhome = \"\"\n")
		if err := runApp(testRunner(&bytes.Buffer{}), "setup", "--config", configPath); err != nil {
			t.Fatalf("second setup failed: %v", err)
		}
		if got := tu.MustReadFile(t, configPath); got != "[app]\nhome = \"\"\n" {
			t.Error("expected the config file to be left alone")
		}
	})
}

func TestCollectionCommands(t *testing.T) {
	dir := t.TempDir()
	col := filepath.Join(dir, "a.db")

	tracks := []models.Track{
		{YTID: "glue-id", Title: "Glue", Artists: models.Artists{"Bicep"}},
		{YTID: "houdini-id", Title: "Houdini", Artists: models.Artists{"Dua Lipa"}},
	}
	input := filepath.Join(dir, "in.yaml")
	if err := formatter.WriteExport(afero.NewOsFs(), input, "in", tracks); err != nil {
		t.Fatal(err)
	}

	t.Run("init", func(t *testing.T) {
		if err := runApp(testRunner(&bytes.Buffer{}), "collection", "init", "-c", col); err != nil {
			t.Fatalf("init failed: %v", err)
		}
		tu.AssertFileExists(t, col)

		err := runApp(testRunner(&bytes.Buffer{}), "collection", "init", "-c", col)
		if !errors.Is(err, shared.ErrCollectionExists) {
			t.Errorf("expected ErrCollectionExists, got %v", err)
		}
	})

	t.Run("load", func(t *testing.T) {
		output := &bytes.Buffer{}
		if err := runApp(testRunner(output), "collection", "load", "-c", col, input); err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if !strings.Contains(output.String(), "Added 2 of 2") {
			t.Errorf("expected 2 tracks added, got %q", output.String())
		}
	})

	t.Run("info", func(t *testing.T) {
		output := &bytes.Buffer{}
		if err := runApp(testRunner(output), "collection", "info", "-c", col, "--json"); err != nil {
			t.Fatalf("info failed: %v", err)
		}
		if !strings.Contains(output.String(), `"size": 2`) {
			t.Errorf("expected size 2, got %q", output.String())
		}
	})

	t.Run("export", func(t *testing.T) {
		target := filepath.Join(dir, "out", "a.md")
		if err := runApp(testRunner(&bytes.Buffer{}), "collection", "export", "-c", col, target); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		data := tu.MustReadFile(t, target)
		if !strings.Contains(data, "# a") || !strings.Contains(data, "Bicep - Glue") {
			t.Errorf("unexpected export:\n%s", data)
		}

		err = runApp(testRunner(&bytes.Buffer{}), "collection", "export", "-c", col, filepath.Join(dir, "a.json"))
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for an unknown format, got %v", err)
		}
	})

	t.Run("import", func(t *testing.T) {
		other := filepath.Join(dir, "b.db")
		output := &bytes.Buffer{}
		if err := runApp(testRunner(output), "collection", "import", "-c", other, col); err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if !strings.Contains(output.String(), "Imported 2 tracks") {
			t.Errorf("expected 2 tracks imported, got %q", output.String())
		}
	})

	t.Run("validate", func(t *testing.T) {
		output := &bytes.Buffer{}
		if err := runApp(testRunner(output), "collection", "validate", col); err != nil {
			t.Fatalf("expected a valid collection, got %v", err)
		}
		if err := runApp(testRunner(output), "collection", "validate", input); err == nil {
			t.Error("expected a YAML file to be rejected")
		}
		if err := runApp(testRunner(output), "collection", "validate"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestSearchCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{name: "missing query", args: []string{"search"}, want: shared.ErrMissingArgument},
		{name: "unknown kind", args: []string{"search", "--kind", "by-mood", "bicep"}, want: shared.ErrInvalidArgument},
		{name: "no engine", args: []string{"search", "bicep"}, want: shared.ErrServiceUnavailable},
		{name: "no video service", args: []string{"search", "track", "--title", "Glue", "--artist", "Bicep", "--video"}, want: shared.ErrServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runApp(testRunner(&bytes.Buffer{}), tt.args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPlaylistCommands(t *testing.T) {
	t.Run("link", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/watch_videos":
				http.Redirect(w, r, "/watch?v=a&list=TLGGabc123", http.StatusSeeOther)
			default:
				w.Write([]byte("<html></html>"))
			}
		}))
		defer ts.Close()

		output := &bytes.Buffer{}
		runner := testRunner(output)
		runner.youtube = services.NewYouTubeService(ts.URL, services.NewHTTPClient(services.WithRate(0)))

		if err := runApp(runner, "playlist", "link", "a", "b"); err != nil {
			t.Fatalf("link failed: %v", err)
		}
		if got := strings.TrimSpace(output.String()); got != "https://music.youtube.com/watch?list=TLGGabc123" {
			t.Errorf("unexpected playlist url %q", got)
		}
	})

	t.Run("link without ids", func(t *testing.T) {
		runner := testRunner(&bytes.Buffer{})
		runner.youtube = services.NewYouTubeService("", nil)

		if err := runApp(runner, "playlist", "link"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("import without engine", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "playlist.csv")
		tu.MustWriteFile(t, path, "#,Title,Artist\n1,Glue,Bicep\n")

		err := runApp(testRunner(&bytes.Buffer{}), "playlist", "import", "--dry-run", path)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("import without path", func(t *testing.T) {
		if err := runApp(testRunner(&bytes.Buffer{}), "playlist", "import"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestRemoteCommands(t *testing.T) {
	dir := t.TempDir()
	hub := server.NewHub(server.HubConfig{
		Version:           "9.9.9",
		DefaultCollection: filepath.Join(dir, "stereo.db"),
		BatchDelay:        5 * time.Millisecond,
	})
	ts := httptest.NewServer(server.New("", hub, nil, nil).Handler())
	t.Cleanup(func() {
		hub.Close()
		ts.CloseClientConnections()
		ts.Close()
	})
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	t.Run("info", func(t *testing.T) {
		output := &bytes.Buffer{}
		if err := runApp(testRunner(output), "remote", "info", "--url", wsURL); err != nil {
			t.Fatalf("info failed: %v", err)
		}
		for _, want := range []string{"Version:            9.9.9", "stereo.db (0 tracks)"} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("expected %q in %q", want, output.String())
			}
		}
	})

	t.Run("contains", func(t *testing.T) {
		output := &bytes.Buffer{}
		if err := runApp(testRunner(output), "remote", "contains", "--url", wsURL, "glue-id"); err != nil {
			t.Fatalf("contains failed: %v", err)
		}
		if !strings.Contains(output.String(), "✗ glue-id is not in") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("random on empty collection", func(t *testing.T) {
		output := &bytes.Buffer{}
		if err := runApp(testRunner(output), "remote", "random", "--url", wsURL); err != nil {
			t.Fatalf("random failed: %v", err)
		}
		if !strings.Contains(output.String(), "is empty") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("invalid collection", func(t *testing.T) {
		err := runApp(testRunner(&bytes.Buffer{}), "remote", "random", "--url", wsURL, "--collection", filepath.Join(dir, "missing.db"))
		if !errors.Is(err, shared.ErrInvalidCollection) {
			t.Errorf("expected ErrInvalidCollection, got %v", err)
		}
	})

	t.Run("unreachable backend", func(t *testing.T) {
		runner := testRunner(&bytes.Buffer{})
		runner.config.Client.RequestTimeout = 200 * time.Millisecond

		err := runApp(runner, "remote", "info", "--url", "ws://127.0.0.1:1/ws")
		if !errors.Is(err, shared.ErrRequestTimeout) {
			t.Errorf("expected ErrRequestTimeout, got %v", err)
		}
	})
}
