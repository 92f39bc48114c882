package submission

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/RishiKendai/labscan/internal/apperr"
	"github.com/RishiKendai/labscan/internal/models"
	"github.com/RishiKendai/labscan/internal/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func python(t *testing.T) tokenizer.Tokenizer {
	t.Helper()
	tk, err := tokenizer.For(models.LanguagePython3)
	require.NoError(t, err)
	return tk
}

func TestBuildSortsAndFiltersFiles(t *testing.T) {
	raw := models.RawSubmission{
		ID: "7",
		Files: []models.RawFile{
			{Path: "z.py", Content: []byte("x = 1\n")},
			{Path: "notes.txt", Content: []byte("not code")},
			{Path: "a.py", Content: []byte("print(x)\n")},
		},
	}

	sub, warnings, err := Build(raw, python(t))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	require.Len(t, sub.Files, 2)
	assert.Equal(t, "a.py", sub.Files[0].Path)
	assert.Equal(t, "z.py", sub.Files[1].Path)
	assert.Equal(t, []int{0, 4}, sub.FileStarts)
	assert.Equal(t, 7, sub.TokenCount())
	assert.Equal(t, []int{0, 0, 0, 0, 1, 1, 1}, sub.FileOf)

	file, tok, ok := Locate(sub, 4)
	require.True(t, ok)
	assert.Equal(t, "z.py", file)
	assert.Equal(t, "x", tok.Text)

	_, _, ok = Locate(sub, 7)
	assert.False(t, ok)
}

func TestBuildSkipsMalformedFiles(t *testing.T) {
	raw := models.RawSubmission{
		ID: "3",
		Files: []models.RawFile{
			{Path: "bad.py", Content: []byte("s = 'open\n")},
			{Path: "good.py", Content: []byte("y = 2\n")},
		},
	}

	sub, warnings, err := Build(raw, python(t))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "3", warnings[0].SubmissionID)
	assert.Equal(t, "bad.py", warnings[0].File)
	assert.Equal(t, 1, warnings[0].Line)
	assert.Equal(t, 5, warnings[0].Column)

	require.Len(t, sub.Files, 1)
	assert.Equal(t, 3, sub.TokenCount())
}

func TestBuildEmptySubmission(t *testing.T) {
	sub, warnings, err := Build(models.RawSubmission{ID: "9"}, python(t))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 0, sub.TokenCount())
}

func TestDecodeText(t *testing.T) {
	assert.Equal(t, "x = 1", string(DecodeText([]byte("\xEF\xBB\xBFx = 1"))))
	assert.Equal(t, "plain", string(DecodeText([]byte("plain"))))

	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("s = '你好'"))
	require.NoError(t, err)
	assert.Equal(t, "s = '你好'", string(DecodeText(gbk)))

	utf16 := []byte{0xFF, 0xFE, 'o', 0, 'k', 0}
	assert.Equal(t, "ok", string(DecodeText(utf16)))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDirSource(t *testing.T) {
	root := t.TempDir()
	lab := filepath.Join(root, "workspace-42")
	writeFile(t, filepath.Join(lab, "1", "main.py"), "a = 1\n")
	writeFile(t, filepath.Join(lab, "1", "pkg", "util.py"), "b = 2\n")
	writeFile(t, filepath.Join(lab, "2", "main.py"), "c = 3\n")
	writeFile(t, filepath.Join(lab, "stray.txt"), "ignored")
	require.NoError(t, os.MkdirAll(filepath.Join(lab, "3"), 0o755))

	subs, err := NewDirSource(root).ListSubmissions(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, subs, 3)

	assert.Equal(t, "1", subs[0].ID)
	require.Len(t, subs[0].Files, 2)
	assert.Equal(t, "main.py", subs[0].Files[0].Path)
	assert.Equal(t, "pkg/util.py", subs[0].Files[1].Path)
	assert.Equal(t, "3", subs[2].ID)
	assert.Empty(t, subs[2].Files)
}

func TestDirSourceMissingLab(t *testing.T) {
	_, err := NewDirSource(t.TempDir()).ListSubmissions(context.Background(), "404")
	assert.ErrorIs(t, err, apperr.ErrSubmissionsNotFound)
}

func TestDirSourceEmptyLab(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "workspace-5"), 0o755))

	_, err := NewDirSource(root).ListSubmissions(context.Background(), "5")
	assert.ErrorIs(t, err, apperr.ErrSubmissionsNotFound)
}
