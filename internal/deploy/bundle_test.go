package deploy

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const buttonSource = `import React from 'react';

export default function SaveButton({ onSave }) {
  return <button onClick={onSave}>Save</button>;
}`

func testBundle(t *testing.T) *types.ProjectBundle {
	t.Helper()
	code := &types.GeneratedCode{ComponentName: "SaveButton", ComponentType: "react", Source: buttonSource, Styles: ".save { color: red; }"}
	tests := &types.TestSuiteReport{
		TestCount: 2,
		Files:     []types.TestFile{{Filename: "SaveButton.unit.test.jsx", Content: "it('renders', () => {});", TestType: types.TestTypeUnit, TestCount: 2}},
	}
	b, err := BuildBundle(code, tests, "")
	require.NoError(t, err)
	return b
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "save-button", Slug("SaveButton"))
	assert.Equal(t, "pricing-table-v2", Slug("Pricing Table v2"))
	assert.Equal(t, "generated-ui", Slug("!!!"))
}

func TestBuildBundle(t *testing.T) {
	b := testBundle(t)
	assert.Equal(t, "save-button", b.Name)

	var paths []string
	for _, f := range b.Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{
		".gitignore", "Dockerfile", "README.md", "netlify.toml", "package.json",
		"public/index.html", "src/App.js", "src/SaveButton.jsx", "src/SaveButton.unit.test.jsx",
		"src/index.css", "src/index.js", "vercel.json",
	}, paths)

	app, ok := b.File("src/App.js")
	require.True(t, ok)
	assert.Contains(t, app.Content, "import SaveButton from './SaveButton';")
	assert.Contains(t, app.Content, "<SaveButton />")

	css, _ := b.File("src/index.css")
	assert.Contains(t, css.Content, ".save { color: red; }")

	readme, _ := b.File("README.md")
	assert.Contains(t, readme.Content, "(2 tests)")

	pkg, _ := b.File("package.json")
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(pkg.Content), &decoded))
	assert.Equal(t, "save-button", decoded["name"])

	component, _ := b.File("src/SaveButton.jsx")
	assert.Equal(t, buttonSource+"\n", component.Content)
}

func TestBuildBundle_WithoutTests(t *testing.T) {
	b, err := BuildBundle(&types.GeneratedCode{ComponentName: "Hero", Source: "<section />"}, nil, "Landing Page")
	require.NoError(t, err)
	assert.Equal(t, "landing-page", b.Name)
	readme, _ := b.File("README.md")
	assert.NotContains(t, readme.Content, "tests)")
}

func TestBuildBundle_EmptySource(t *testing.T) {
	_, err := BuildBundle(&types.GeneratedCode{ComponentName: "Hero", Source: "  "}, nil, "")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
	_, err = BuildBundle(nil, nil, "")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestZip(t *testing.T) {
	b := testBundle(t)
	data, err := Zip(b)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, len(b.Files))
	assert.Equal(t, "save-button/.gitignore", zr.File[0].Name)
}

func TestTar(t *testing.T) {
	b := testBundle(t)
	data, err := Tar(b)
	require.NoError(t, err)

	tr := tar.NewReader(bytes.NewReader(data))
	seen := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		seen[hdr.Name] = string(content)
	}
	assert.Len(t, seen, len(b.Files))
	assert.Contains(t, seen["Dockerfile"], "nginx")
}
