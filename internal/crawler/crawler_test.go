package crawler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"depgraph/internal/extractor"
	"depgraph/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestCrawler_ParseProject(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkg/__init__.py":        "",
		"pkg/ticket.py":          "class Ticket:\n    pass\n",
		"main.py":                "from pkg.ticket import Ticket\n\ndef main():\n    Ticket()\n",
		"broken.py":              "class (:\n",
		"README.md":              "# not python",
		".venv/lib/site.py":      "x = 1\n",
		"tests/test_ticket.py":   "def test():\n    pass\n",
		"pkg/__pycache__/a.py":   "x = 1\n",
	})

	ext, err := extractor.NewExtractor("python")
	require.NoError(t, err)
	c := NewCrawler(ext, logging.Discard(), "tests")

	res, err := c.ParseProject(context.Background(), root, 2)
	require.NoError(t, err)

	var paths []string
	for _, m := range res.Modules {
		paths = append(paths, m.Path)
	}
	assert.Equal(t, []string{"main.py", "pkg/__init__.py", "pkg/ticket.py"}, paths)
	assert.Contains(t, res.Contents["pkg/ticket.py"], "class Ticket")

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "broken.py", res.Diagnostics[0].File)
	assert.Contains(t, res.Diagnostics[0].Err, "syntax error")
}

func TestCrawler_Cancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "x = 1\n"})
	ext, err := extractor.NewExtractor("python")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewCrawler(ext, logging.Discard()).ParseProject(ctx, root, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCrawler_ParseFilesKeepsOrder(t *testing.T) {
	var files []SourceFile
	for i := 0; i < 16; i++ {
		rel := fmt.Sprintf("m%02d.py", i)
		files = append(files, SourceFile{Rel: rel, Content: []byte(fmt.Sprintf("def f%d():\n    pass\n", i))})
	}
	ext, err := extractor.NewExtractor("python")
	require.NoError(t, err)
	logger, hook := test.NewNullLogger()

	res, err := NewCrawler(ext, logger).ParseFiles(context.Background(), files, 4)
	require.NoError(t, err)
	require.Len(t, res.Modules, len(files))
	for i, m := range res.Modules {
		assert.Equal(t, files[i].Rel, m.Path)
		require.Len(t, m.Functions, 1)
		assert.Equal(t, fmt.Sprintf("f%d", i), m.Functions[0].Name)
	}

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "python", entry.Data["language"])
	assert.Equal(t, len(files), entry.Data["parsed"])
}
