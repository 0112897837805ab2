package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCMD()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoginListAndLogout(t *testing.T) {
	var lastAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		lastAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/api/admin/login":
			_, _ = io.WriteString(w, `{"success":true,"data":{"token":"tok-9","user":{"id":"u1","username":"admin","role":"admin"}}}`)
		case "/api/admin/projects":
			_, _ = io.WriteString(w, `{"success":true,"data":[{"id":"p1","title":"Hall","status":"draft"}],"pagination":{"page":1,"limit":20,"total":1,"totalPages":1}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"success":false,"error":"endpoint not found"}`)
		}
	}))
	defer srv.Close()

	tokenFile := filepath.Join(t.TempDir(), "token")
	common := []string{"--api", srv.URL, "--token-file", tokenFile}

	out, err := run(t, "admin123\n", append(common, "login", "admin")...)
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as admin")
	raw, err := os.ReadFile(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "tok-9", strings.TrimSpace(string(raw)))

	out, err = run(t, "", append(common, "projects", "list", "--admin", "--status", "draft")...)
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Hall"`)
	assert.Equal(t, "Bearer tok-9", lastAuth)

	_, err = run(t, "", append(common, "logout")...)
	require.NoError(t, err)
	_, err = os.Stat(tokenFile)
	assert.True(t, os.IsNotExist(err))
}

func TestCommandFailsOnAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false,"error":"project not found"}`)
	}))
	defer srv.Close()

	_, err := run(t, "", "--api", srv.URL, "--token-file", filepath.Join(t.TempDir(), "token"),
		"projects", "get", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project not found")
}

func TestCreateRejectsUnknownFields(t *testing.T) {
	_, err := run(t, `{"title":"x","colour":"red"}`, "--api", "http://127.0.0.1:1", "--token-file",
		filepath.Join(t.TempDir(), "token"), "projects", "create")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}
