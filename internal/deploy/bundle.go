package deploy

import (
	"archive/zip"
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var projectTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// templated project files, keyed by path within the bundle.
var templatedFiles = []struct {
	path string
	tmpl string
}{
	{"public/index.html", "index.html.tmpl"},
	{"src/index.js", "index.js.tmpl"},
	{"src/index.css", "index.css.tmpl"},
	{"src/App.js", "App.js.tmpl"},
	{"README.md", "README.md.tmpl"},
	{".gitignore", "gitignore.tmpl"},
	{"netlify.toml", "netlify.toml.tmpl"},
	{"Dockerfile", "Dockerfile.tmpl"},
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a component or project name into a lowercase, dash separated identifier.
func Slug(name string) string {
	s := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(camelToWords(name)), "-"), "-")
	if s == "" {
		return "generated-ui"
	}
	return s
}

func camelToWords(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := s[i-1]
			if prev >= 'a' && prev <= 'z' || prev >= '0' && prev <= '9' {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

type packageJSON struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Private         bool              `json:"private"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Scripts         map[string]string `json:"scripts"`
	Browserslist    []string          `json:"browserslist"`
}

type vercelBuild struct {
	Src    string            `json:"src"`
	Use    string            `json:"use"`
	Config map[string]string `json:"config"`
}

type vercelJSON struct {
	Version int                 `json:"version"`
	Builds  []vercelBuild       `json:"builds"`
	Routes  []map[string]string `json:"routes"`
}

func packageFile(slug string) (string, error) {
	pkg := packageJSON{
		Name:    slug,
		Version: "0.1.0",
		Private: true,
		Dependencies: map[string]string{
			"react":         "^18.2.0",
			"react-dom":     "^18.2.0",
			"react-scripts": "5.0.1",
		},
		DevDependencies: map[string]string{
			"@testing-library/jest-dom":   "^5.16.4",
			"@testing-library/react":      "^13.3.0",
			"@testing-library/user-event": "^13.5.0",
			"jest-axe":                    "^8.0.0",
		},
		Scripts: map[string]string{
			"start": "react-scripts start",
			"build": "react-scripts build",
			"test":  "react-scripts test",
		},
		Browserslist: []string{">0.2%", "not dead", "not op_mini all"},
	}
	b, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

func vercelFile() (string, error) {
	cfg := vercelJSON{
		Version: 2,
		Builds:  []vercelBuild{{Src: "package.json", Use: "@vercel/static-build", Config: map[string]string{"distDir": "build"}}},
		Routes:  []map[string]string{{"src": "/(.*)", "dest": "/index.html"}},
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

// BuildBundle assembles a runnable React project from the generated
// component and its test suite. tests may be nil. name defaults to the
// component name.
func BuildBundle(code *types.GeneratedCode, tests *types.TestSuiteReport, name string) (*types.ProjectBundle, error) {
	if code == nil || strings.TrimSpace(code.Source) == "" {
		return nil, apperr.InvalidInput("cannot bundle empty component source")
	}
	component := code.ComponentName
	if component == "" {
		component = "GeneratedComponent"
	}
	if name == "" {
		name = component
	}
	slug := Slug(name)

	data := struct {
		Component string
		Styles    string
		TestCount int
	}{Component: component, Styles: strings.TrimSpace(code.Styles)}
	if tests != nil {
		data.TestCount = tests.TestCount
	}

	files := map[string]string{
		"src/" + component + ".jsx": ensureNewline(code.Source),
	}
	for _, f := range templatedFiles {
		var buf bytes.Buffer
		if err := projectTemplates.ExecuteTemplate(&buf, f.tmpl, data); err != nil {
			return nil, apperr.Internal(err, "failed to render %s", f.path)
		}
		files[f.path] = buf.String()
	}
	pkg, err := packageFile(slug)
	if err != nil {
		return nil, apperr.Internal(err, "failed to render package.json")
	}
	files["package.json"] = pkg
	vercel, err := vercelFile()
	if err != nil {
		return nil, apperr.Internal(err, "failed to render vercel.json")
	}
	files["vercel.json"] = vercel
	if tests != nil {
		for _, tf := range tests.Files {
			files["src/"+tf.Filename] = ensureNewline(tf.Content)
		}
	}

	bundle := &types.ProjectBundle{Name: slug, Files: make([]types.ProjectFile, 0, len(files))}
	for path, content := range files {
		bundle.Files = append(bundle.Files, types.ProjectFile{Path: path, Content: content})
	}
	sort.Slice(bundle.Files, func(i, j int) bool { return bundle.Files[i].Path < bundle.Files[j].Path })
	return bundle, nil
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// Zip archives the bundle files, rooted at the bundle name.
func Zip(bundle *types.ProjectBundle) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range bundle.Files {
		w, err := zw.Create(bundle.Name + "/" + f.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", f.Path, err)
		}
		if _, err := w.Write([]byte(f.Content)); err != nil {
			return nil, fmt.Errorf("failed to write %s to archive: %w", f.Path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
