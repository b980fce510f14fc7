package main

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/toyz/kwargs/internal/testconn"
	"github.com/toyz/kwargs/pkg/kwargs"
	"github.com/toyz/kwargs/pkg/kwargs/app"
)

func demo(t *testing.T) *app.App {
	t.Helper()
	a, err := newDemoApp(app.DefaultConfig())
	require.NoError(t, err)
	return a
}

func TestRenderTable(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	require.NoError(t, render(&out, demo(t), "table"))

	text := out.String()
	assert.Contains(t, text, "GET     /books/{id:uuid}  getBook")
	assert.Contains(t, text, "X-Request-ID")
	assert.Contains(t, text, "default=20")
	assert.Contains(t, text, "resolves library")
}

func TestPrintTypes(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	printTypes(&out)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, len(kwargs.GetAllBuiltinTypes()))
	assert.Contains(t, out.String(), "uuid         uuid.UUID")
	assert.Contains(t, out.String(), "datetime     time.Time")
}

func TestRenderDocument(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, render(&out, demo(t), "json"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	paths := doc["paths"].(map[string]any)
	assert.Contains(t, paths, "/books")
	assert.Contains(t, paths, "/books/{id}")

	out.Reset()
	require.NoError(t, render(&out, demo(t), "yaml"))
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &fromYAML))
	assert.Equal(t, "3.0.3", fromYAML["openapi"])

	assert.Error(t, render(&out, demo(t), "xml"))
}

func TestDemoApp(t *testing.T) {
	a := demo(t)
	ctx := context.Background()

	create, ok := a.Route(http.MethodPost, "/books")
	require.True(t, ok)
	conn := testconn.New(http.MethodPost, "/books").
		WithBody("application/json", []byte(`{"title":"Dune","author":"Herbert","price":"9.99","published":"1965-08-01"}`))
	resp := a.Serve(ctx, create, conn)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := resp.Body.(Book)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "9.99", created.Price.String())
	require.NotNil(t, created.Published)
	assert.Equal(t, 1965, created.Published.Year)

	get, ok := a.Route(http.MethodGet, "/books/{id:uuid}")
	require.True(t, ok)
	resp = a.Serve(ctx, get, testconn.New(http.MethodGet, "/books/x").WithPathParam("id", created.ID.String()))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Dune", resp.Body.(*Book).Title)

	resp = a.Serve(ctx, get, testconn.New(http.MethodGet, "/books/x").WithPathParam("id", uuid.NewString()))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	list, ok := a.Route(http.MethodGet, "/books")
	require.True(t, ok)
	resp = a.Serve(ctx, list, testconn.New(http.MethodGet, "/books?author=Herbert&limit=5"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, resp.Body.([]Book), 1)

	resp = a.Serve(ctx, list, testconn.New(http.MethodGet, "/books?limit=500"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	remove, ok := a.Route(http.MethodDelete, "/books/{id:uuid}")
	require.True(t, ok)
	resp = a.Serve(ctx, remove, testconn.New(http.MethodDelete, "/books/x").WithPathParam("id", created.ID.String()))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Nil(t, resp.Body)

	resp = a.Serve(ctx, list, testconn.New(http.MethodGet, "/books"))
	assert.Empty(t, resp.Body.([]Book))

	resp = a.Serve(ctx, get, testconn.New(http.MethodGet, "/books/x").
		WithPathParam("id", "not-a-uuid").
		WithHeader("X-Request-ID", "also-not-a-uuid"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	failures := resp.Body.(*kwargs.HttpError).Details.([]kwargs.ErrorMessage)
	assert.Len(t, failures, 2)
}
