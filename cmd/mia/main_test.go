package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/atinylittleshell/mia/internal/batch"
	"github.com/atinylittleshell/mia/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInterpreter serves the interpreter HTTP API with canned disks and a
// script endpoint that asks to confirm any unflagged rmdisk line.
type fakeInterpreter struct {
	mu        sync.Mutex
	submitted []string
	failWith  int
}

func (f *fakeInterpreter) Submitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.submitted...)
}

func (f *fakeInterpreter) handler() http.Handler {
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": "1.2.0", "host": "test-host"})
	})
	mux.HandleFunc("/api/executeScript", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Script string `json:"script"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		f.submitted = append(f.submitted, req.Script)
		failWith := f.failWith
		f.mu.Unlock()

		if failWith != 0 {
			writeJSON(w, failWith, map[string]string{"error": "interpreter crashed"})
			return
		}
		for _, line := range strings.Split(req.Script, "\n") {
			if strings.HasPrefix(line, "rmdisk") && !strings.Contains(line, "-confirm=true") {
				writeJSON(w, http.StatusOK, map[string]any{
					"confirm": true,
					"message": "CONFIRM_RMDISK: Delete disk A?",
					"results": []string{},
					"console": "",
					"paused":  false,
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"results": []string{},
			"console": "executed " + strings.TrimSpace(req.Script),
			"paused":  false,
		})
	})
	mux.HandleFunc("/api/disks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"disks": []map[string]any{
			{"name": "Disco1.mia", "path": "/disks/Disco1.mia", "mounted_partitions": []string{"A101"}},
		}})
	})
	mux.HandleFunc("/api/all-disks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"disks": []string{"Disco1.mia", "Disco2.mia"}})
	})
	mux.HandleFunc("/api/partitions/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"name": "Part1", "id": "A101", "type": "P", "status": "mounted", "start": 128, "size": 5242880, "loggedIn": true},
		})
	})
	mux.HandleFunc("/api/partition-content/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"name": "/", "type": "folder",
			"children": []map[string]any{
				{"name": "users.txt", "type": "file"},
				{"name": "docs", "type": "folder", "children": []map[string]any{{"name": "notes.txt", "type": "file"}}},
			},
		})
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username    string `json:"username"`
			Password    string `json:"password"`
			PartitionID string `json:"partition_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "root" || req.Password != "123" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "logged in"})
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
	})
	return mux
}

// setupEnv points the data directory at a temp dir and the client at a fake interpreter.
func setupEnv(t *testing.T) (*fakeInterpreter, string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("MIA_HOME", home)
	core.ResetPaths()
	t.Cleanup(core.ResetPaths)

	fake := &fakeInterpreter{}
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)
	t.Setenv("MIA_SERVER_URL", server.URL)

	return fake, home
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	app := &cli{}
	defer app.Close()

	root := newRootCmd(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestResolvePolicy(t *testing.T) {
	tests := []struct {
		name        string
		flag        string
		interactive bool
		want        batch.ConfirmPolicy
		wantErr     bool
	}{
		{name: "default on terminal", interactive: true, want: batch.PolicyAsk},
		{name: "default when piped", interactive: false, want: batch.PolicyDeny},
		{name: "explicit approve", flag: "approve", want: batch.PolicyApprove},
		{name: "case insensitive", flag: "DENY", want: batch.PolicyDeny},
		{name: "ask without terminal", flag: "ask", wantErr: true},
		{name: "unknown", flag: "maybe", interactive: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolvePolicy(tt.flag, tt.interactive)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setup.mia")
	require.NoError(t, os.WriteFile(path, []byte("mkdisk -size=10\n"), 0644))

	script, err := readScript(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "mkdisk -size=10\n", script)

	script, err = readScript(strings.NewReader("fdisk -size=5\n"), "-")
	require.NoError(t, err)
	assert.Equal(t, "fdisk -size=5\n", script)

	_, err = readScript(nil, filepath.Join(t.TempDir(), "missing.mia"))
	assert.Error(t, err)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd(&cli{})
	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"run", "disks", "partitions", "tree", "login", "logout", "health", "history", "config", "version", "update"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestVersionCommand(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mia dev")
}

func TestConfigInitAndShow(t *testing.T) {
	_, home := setupEnv(t)

	out, err := execute(t, "", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(home, "config.yaml"))
	assert.FileExists(t, filepath.Join(home, "config.yaml"))

	_, err = execute(t, "", "config", "init")
	assert.Error(t, err)

	_, err = execute(t, "", "config", "init", "--force")
	require.NoError(t, err)

	out, err = execute(t, "", "config", "show", "--server", "http://override:9000")
	require.NoError(t, err)
	assert.Contains(t, out, "server_url: http://override:9000")
	assert.Contains(t, out, "command: rmdisk")
}

func TestInvalidServerFlag(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "", "health", "--server", "not a url")
	assert.Error(t, err)
}

func TestRunApprovesConfirmation(t *testing.T) {
	fake, _ := setupEnv(t)
	path := filepath.Join(t.TempDir(), "cleanup.mia")
	require.NoError(t, os.WriteFile(path, []byte("mkdisk -size=10\nrmdisk -driveletter=A\n"), 0644))

	out, err := execute(t, "", "run", path, "--policy", "approve")
	require.NoError(t, err)

	assert.Contains(t, out, "Delete disk A? (approved)")
	assert.NotContains(t, out, "CONFIRM_RMDISK:")
	assert.Contains(t, out, "script finished")
	assert.Equal(t, []string{
		"mkdisk -size=10\nrmdisk -driveletter=A\n",
		"mkdisk -size=10\nrmdisk -driveletter=A -confirm=true\n",
	}, fake.Submitted())

	out, err = execute(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "submit")
	assert.Contains(t, out, "approve")
	assert.Contains(t, out, "confirmation")
}

func TestRunFromStdinDeniesByDefault(t *testing.T) {
	fake, _ := setupEnv(t)

	out, err := execute(t, "rmdisk -driveletter=A\n", "run", "-")
	require.NoError(t, err)

	assert.Contains(t, out, "Delete disk A? (denied)")
	assert.Contains(t, out, "script finished")
	// denying the only line leaves nothing to resubmit
	assert.Len(t, fake.Submitted(), 1)
}

func TestRunReportsInterpreterErrors(t *testing.T) {
	fake, _ := setupEnv(t)
	fake.failWith = http.StatusInternalServerError

	out, err := execute(t, "mkdisk -size=10\n", "run", "-")
	require.Error(t, err)
	assert.True(t, errors.Is(err, batch.ErrRunFailed))
	assert.Contains(t, out, "interpreter crashed")
}

func TestRunRejectsStepWithoutTerminal(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "mkdisk -size=10\n", "run", "-", "--step")
	assert.Error(t, err)
}

func TestBrowseCommands(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "disks")
	require.NoError(t, err)
	assert.Contains(t, out, "Disco1.mia")
	assert.Contains(t, out, "A101")

	out, err = execute(t, "", "disks", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Disco2.mia")

	out, err = execute(t, "", "partitions", "Disco1.mia")
	require.NoError(t, err)
	assert.Contains(t, out, "Part1")
	assert.Contains(t, out, "5.2 MB")

	out, err = execute(t, "", "tree", "A101")
	require.NoError(t, err)
	assert.Contains(t, out, "users.txt")
	assert.Contains(t, out, "docs/")
	assert.Contains(t, out, "notes.txt")
}

func TestLoginAndLogout(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "login", "root", "A101", "--password", "123")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as root on A101")

	out, err = execute(t, "123\n", "login", "root", "A101")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as root")

	_, err = execute(t, "wrong\n", "login", "root", "A101")
	assert.Error(t, err)

	_, err = execute(t, "", "login", "root", "A101")
	assert.Error(t, err)

	out, err = execute(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "logged out")
}

func TestHealthCommand(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "health")
	require.NoError(t, err)
	assert.Contains(t, out, "connected to")
	assert.Contains(t, out, "v1.2.0")
	assert.Contains(t, out, "test-host")

	t.Setenv("MIA_MIN_SERVER_VERSION", "2.0.0")
	out, err = execute(t, "", "health")
	require.NoError(t, err)
	assert.Contains(t, out, "older than the required 2.0.0")
}

func TestHealthCommandUnreachable(t *testing.T) {
	setupEnv(t)
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	t.Setenv("MIA_SERVER_URL", url)

	out, err := execute(t, "", "health")
	assert.Error(t, err)
	assert.Contains(t, out, "is unreachable")
}

func TestHistoryCommands(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "mkdisk -size=10\n", "run", "-")
	require.NoError(t, err)

	out, err := execute(t, "", "history", "--search", "mkdisk")
	require.NoError(t, err)
	assert.Contains(t, out, "mkdisk -size=10")

	_, err = execute(t, "", "history", "delete", "abc")
	assert.Error(t, err)

	_, err = execute(t, "", "history", "clear")
	require.NoError(t, err)

	out, err = execute(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "no script runs recorded")
}

func TestHistoryDisabled(t *testing.T) {
	setupEnv(t)
	t.Setenv("MIA_HISTORY_ENABLED", "false")

	_, err := execute(t, "", "history")
	assert.ErrorIs(t, err, errHistoryDisabled)
}
