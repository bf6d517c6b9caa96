package gamelist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "gamelist.xml"))
	require.NoError(t, err)
	return s
}

func TestOpenCreatesEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamelist.xml")

	s, err := Open(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<GameList>")

	assert.Empty(t, s.Names())
}

func TestOpenLeavesExistingFileAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamelist.xml")
	content := `<GameList><game><path>./Foo.lnk</path><name>Foo</name></game></GameList>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Foo.lnk"}, s.Names())
}

func TestNamesStripsLeadingDotSlash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamelist.xml")
	content := `<GameList>
		<game><path>./Foo.lnk</path></game>
		<game><path>Bar.desktop</path></game>
	</GameList>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Open(path)
	require.NoError(t, err)

	// Extension is not stripped here, only the leading "./".
	assert.Equal(t, []string{"Foo.lnk", "Bar.desktop"}, s.Names())
}

func TestNamesCollapsesParseFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamelist.xml")
	require.NoError(t, os.WriteFile(path, []byte("<GameList><game>"), 0o644))

	s, err := Open(path)
	require.NoError(t, err)

	assert.Empty(t, s.Names())
	// The underlying failure stays inspectable.
	assert.Error(t, s.Load())
}

func TestInsertWritesPathFirstAndSkipsEmptyFields(t *testing.T) {
	s := tempStore(t)

	rec := Record{
		Path:    "Foo.lnk",
		Name:    "Foo",
		Genre:   "Action",
		Players: 1,
	}
	require.NoError(t, s.Insert(rec, false))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	content := string(data)

	assert.Less(t, strings.Index(content, "<path>"), strings.Index(content, "<name>"))
	assert.Contains(t, content, "<name>Foo</name>")
	assert.Contains(t, content, "<genre>Action</genre>")
	assert.Contains(t, content, "<players>1</players>")
	assert.NotContains(t, content, "<description>")
	assert.NotContains(t, content, "<rating>")
	assert.NotContains(t, content, "<date>")
}

func TestInsertBarePathDoesNotPersist(t *testing.T) {
	s := tempStore(t)

	require.NoError(t, s.Insert(Record{Path: "Foo.lnk"}, false))

	// An append of only a bare path element never hits the disk.
	assert.Empty(t, s.Names())
}

func TestInsertIsNotIdempotent(t *testing.T) {
	s := tempStore(t)

	rec := Record{Path: "Foo.lnk", Name: "Foo"}
	require.NoError(t, s.Insert(rec, false))
	require.NoError(t, s.Insert(rec, false))

	// Duplicate detection is the caller's job.
	assert.Equal(t, []string{"Foo.lnk", "Foo.lnk"}, s.Names())
}

func TestInsertFormatsRatingAndDate(t *testing.T) {
	s := tempStore(t)

	rec := Record{
		Path:        "Foo.lnk",
		Name:        "Foo",
		Rating:      0.86,
		ReleaseDate: time.Date(2023, 9, 4, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Insert(rec, false))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "<rating>0.86</rating>")
	assert.Contains(t, string(data), "<date>20230904T000000</date>")
}

func TestInsertZeroesTimeOfDayInDate(t *testing.T) {
	s := tempStore(t)

	rec := Record{
		Path:        "Foo.lnk",
		Name:        "Foo",
		ReleaseDate: time.Date(2023, 9, 4, 13, 45, 12, 0, time.UTC),
	}
	require.NoError(t, s.Insert(rec, false))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "<date>20230904T000000</date>")
}

func TestUpdateAppendsOnlyMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamelist.xml")
	content := `<GameList><game><path>./Foo.lnk</path><name>Foo</name><description></description></game></GameList>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Open(path)
	require.NoError(t, err)

	rec := Record{Path: "Foo.lnk", Name: "Different Name", Description: "New desc", Genre: "RPG"}
	require.NoError(t, s.Update(rec, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got := string(data)

	// name untouched even though the incoming record differs
	assert.Contains(t, got, "<name>Foo</name>")
	assert.NotContains(t, got, "Different Name")
	// a present-but-empty element counts as present and is skipped
	assert.NotContains(t, got, "New desc")
	// the genuinely missing field was appended
	assert.Contains(t, got, "<genre>RPG</genre>")
}

func TestUpdateOverwriteReplacesWithoutDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamelist.xml")
	content := `<GameList><game><path>./Foo.lnk</path><name>Old</name><genre>Action</genre></game></GameList>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Update(Record{Path: "Foo.lnk", Name: "New", Genre: "RPG"}, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got := string(data)

	assert.Contains(t, got, "<name>New</name>")
	assert.Contains(t, got, "<genre>RPG</genre>")
	assert.NotContains(t, got, "Old")
	assert.Equal(t, 1, strings.Count(got, "<name>"))
	assert.Equal(t, 1, strings.Count(got, "<genre>"))
}

func TestUpdateUnknownPathIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamelist.xml")
	content := `<GameList><game><path>./Foo.lnk</path><name>Foo</name></game></GameList>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Update(Record{Path: "Missing.lnk", Name: "Nope"}, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestUpdateMatchesFirstEntryOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamelist.xml")
	content := `<GameList>
	<game><path>./Foo.lnk</path><name>First</name></game>
	<game><path>./Foo.lnk</path><name>Second</name></game>
</GameList>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Update(Record{Path: "Foo.lnk", Genre: "RPG"}, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got := string(data)

	assert.Equal(t, 1, strings.Count(got, "<genre>"))
	assert.Less(t, strings.Index(got, "<genre>"), strings.Index(got, "Second"))
}
