package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/meteragg/internal/testutil"
	"github.com/ginjaninja78/meteragg/internal/types"
)

func TestDiscover_LexicalRegularFilesOnly(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "b.xml", "<a/>")
	testutil.WriteFile(t, dir, "a.txt", "<a/>")
	testutil.WriteFile(t, dir, "c", "<a/>")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	testutil.WriteFile(t, filepath.Join(dir, "nested"), "d.xml", "<a/>")

	files, err := Discover(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.xml"),
		filepath.Join(dir, "c"),
	}, files)
}

func TestDiscover_FollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := testutil.WriteFile(t, t.TempDir(), "real.xml", "<a/>")
	if err := os.Symlink(target, filepath.Join(dir, "link.xml")); err != nil {
		t.Skip("symlinks not supported")
	}

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "link.xml")}, files)
}

func TestDiscover_ListsBrokenSymlink(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.xml", "<a/>")
	if err := os.Symlink(filepath.Join(dir, "gone.xml"), filepath.Join(dir, "b.xml")); err != nil {
		t.Skip("symlinks not supported")
	}

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.xml"), filepath.Join(dir, "b.xml")}, files)

	_, err = Parse(files[1])
	assert.ErrorIs(t, err, types.ErrUnreadableFile)
	var fe *types.FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, files[1], fe.Path)
}

func TestDiscover_DirectoryNotFound(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, types.ErrDirectoryNotFound)

	file := testutil.WriteFile(t, t.TempDir(), "file.xml", "<a/>")
	_, err = Discover(file)
	assert.ErrorIs(t, err, types.ErrDirectoryNotFound)
}

func TestParse_Dialects(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    types.Dialect
	}{
		{
			name:    "periodic",
			content: testutil.ESL(testutil.Period{End: "2024-03-31T00:00:00"}),
			want:    types.Periodic,
		},
		{
			name:    "interval",
			content: testutil.SDAT("X_ID742", "2024-03-01T00:00:00Z", "2024-03-02T00:00:00Z", nil),
			want:    types.Interval,
		},
		{
			name:    "default namespace interval",
			content: `<Root xmlns="http://www.strom.ch"><DocumentID>x</DocumentID></Root>`,
			want:    types.Interval,
		},
		{
			name:    "unrecognized",
			content: `<Invoice><Line amount="3"/></Invoice>`,
			want:    types.Unrecognized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, dir, tt.name+".xml", tt.content)
			doc, err := Parse(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.Dialect)
			assert.Equal(t, path, doc.Path)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"broken.xml": "<ESLBillingData><TimePeriod end=></ESLBillingData>",
		"empty.xml":  "",
		"text.xml":   "just text",
	} {
		t.Run(name, func(t *testing.T) {
			path := testutil.WriteFile(t, dir, name, content)
			_, err := Parse(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrMalformedDocument)

			var fe *types.FileError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, path, fe.Path)
		})
	}
}

func TestParse_NonUTF8Declaration(t *testing.T) {
	content := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<ESLBillingData><Meter name=\"Z\xe4hler\"><TimePeriod end=\"2024-01-31T00:00:00\"/></Meter></ESLBillingData>"
	path := testutil.WriteFile(t, t.TempDir(), "latin1.xml", content)

	doc, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, types.Periodic, doc.Dialect)
	assert.Equal(t, "Zähler", FindByTag(doc.Root(), "Meter")[0].SelectAttrValue("name", ""))
}

func TestFindHelpers(t *testing.T) {
	doc, err := ParseBytes("mem", []byte(testutil.SDAT("X_ID735", "2024-03-01T00:00:00Z", "2024-03-02T00:00:00Z", []string{"1", "2"})))
	require.NoError(t, err)

	assert.Len(t, FindAll(doc.Root(), IntervalNamespace, "Observation"), 2)
	assert.Empty(t, FindAll(doc.Root(), "", "Observation"), "namespace must match")
	assert.Equal(t, "X_ID735", FindFirst(doc.Root(), IntervalNamespace, "DocumentID").Text())
	assert.Nil(t, FindFirst(doc.Root(), IntervalNamespace, "Missing"))
}
