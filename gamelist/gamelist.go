// Package gamelist reads and writes the gamelist.xml file consumed by
// EmulationStation.
package gamelist

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"esscraper/logging"
)

// esDateFormat is EmulationStation's timestamp format for release dates.
const esDateFormat = "20060102T150405"

// Record holds the metadata written for one game entry.
type Record struct {
	Path        string
	Name        string
	Description string
	Rating      float64 // normalized 0.0-1.0
	ReleaseDate time.Time
	Developer   string
	Publisher   string
	Genre       string
	Players     int
}

// fieldOrder is the fixed order in which metadata elements are written.
var fieldOrder = []string{
	"name", "description", "rating", "date",
	"developer", "publisher", "genre", "players",
}

// fieldValue returns the serialized text for a field and whether the field
// carries a value worth writing.
func (r Record) fieldValue(name string) (string, bool) {
	switch name {
	case "name":
		return r.Name, r.Name != ""
	case "description":
		return r.Description, r.Description != ""
	case "rating":
		return strconv.FormatFloat(r.Rating, 'f', 2, 64), r.Rating > 0
	case "date":
		// Dates carry no time of day regardless of what the provider parsed.
		day := time.Date(r.ReleaseDate.Year(), r.ReleaseDate.Month(), r.ReleaseDate.Day(),
			0, 0, 0, 0, r.ReleaseDate.Location())
		return day.Format(esDateFormat), !r.ReleaseDate.IsZero()
	case "developer":
		return r.Developer, r.Developer != ""
	case "publisher":
		return r.Publisher, r.Publisher != ""
	case "genre":
		return r.Genre, r.Genre != ""
	case "players":
		return strconv.Itoa(r.Players), r.Players > 0
	}
	return "", false
}

// document models the gamelist.xml root. Game children are kept as ordered
// element lists so that presence, order and duplicates survive a round trip;
// the update policy keys off element presence, not value.
type document struct {
	XMLName xml.Name      `xml:"GameList"`
	Games   []gameElement `xml:"game"`
}

type gameElement struct {
	XMLName xml.Name       `xml:"game"`
	Fields  []fieldElement `xml:",any"`
}

type fieldElement struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

func (g *gameElement) path() string {
	for _, f := range g.Fields {
		if f.XMLName.Local == "path" {
			return f.Value
		}
	}
	return ""
}

func (g *gameElement) has(name string) bool {
	for _, f := range g.Fields {
		if f.XMLName.Local == name {
			return true
		}
	}
	return false
}

// Store owns a single gamelist.xml document on disk.
type Store struct {
	path string
}

// Open opens the gamelist at path, creating an empty document if the file
// does not exist. Parsing of an existing file is deferred until first use.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logging.Info("creating new gamelist.xml", "path", path)
		if err := s.write(&document{}); err != nil {
			return nil, fmt.Errorf("failed to create gamelist: %w", err)
		}
	}

	return s, nil
}

// Path returns the location of the underlying file.
func (s *Store) Path() string {
	return s.path
}

// load parses the document from disk. A malformed or unreadable file yields
// an empty document together with the parse error so callers can decide
// whether to collapse the failure.
func (s *Store) load() (*document, error) {
	doc := &document{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return doc, err
	}
	if err := xml.Unmarshal(data, doc); err != nil {
		return &document{}, err
	}
	return doc, nil
}

// Load reparses the document and reports any parse failure. External
// operations collapse this to "no entries"; tests can inspect it directly.
func (s *Store) Load() error {
	_, err := s.load()
	return err
}

// Names returns the path text of every game element in document order, with
// any leading "./" stripped. A parse failure is logged and reported as an
// empty list.
func (s *Store) Names() []string {
	doc, err := s.load()
	if err != nil {
		logging.Warn("no entries found, gamelist.xml is possibly blank", "path", s.path, "error", err)
		return nil
	}

	var names []string
	for i := range doc.Games {
		if p := doc.Games[i].path(); p != "" {
			names = append(names, strings.TrimPrefix(p, "./"))
		}
	}
	return names
}

// Insert appends a new game element for the record. The path element is
// always written first; metadata elements follow in the fixed field order,
// skipping empty values. No duplicate check is made on path; callers decide
// whether an entry already exists. The document is only rewritten when at
// least one metadata element was produced.
func (s *Store) Insert(rec Record, overwrite bool) error {
	doc, err := s.load()
	if err != nil {
		logging.Warn("gamelist parse failed, starting from empty document", "error", err)
	}

	game := gameElement{
		Fields: []fieldElement{{XMLName: xml.Name{Local: "path"}, Value: rec.Path}},
	}

	written := 0
	for _, name := range fieldOrder {
		if value, ok := rec.fieldValue(name); ok {
			game.Fields = append(game.Fields, fieldElement{XMLName: xml.Name{Local: name}, Value: value})
			written++
		}
	}

	doc.Games = append(doc.Games, game)

	if written == 0 {
		logging.Debug("no metadata fields to write, skipping insert", "path", rec.Path)
		return nil
	}
	return s.write(doc)
}

// Update amends the first game element whose path matches the record's path
// (leading "./" ignored on both sides). With overwrite false, only fields the
// element does not already contain are appended; an existing element counts
// as present even when empty. With overwrite true, existing metadata elements
// are replaced in place rather than duplicated. A missing entry is a no-op.
func (s *Store) Update(rec Record, overwrite bool) error {
	doc, err := s.load()
	if err != nil {
		logging.Warn("no entries found, gamelist.xml is possibly blank", "error", err)
		return nil
	}

	want := strings.TrimPrefix(rec.Path, "./")
	var game *gameElement
	for i := range doc.Games {
		if strings.TrimPrefix(doc.Games[i].path(), "./") == want {
			game = &doc.Games[i]
			break
		}
	}
	if game == nil {
		logging.Debug("no matching gamelist entry", "path", rec.Path)
		return nil
	}

	changed := 0
	for _, name := range fieldOrder {
		value, ok := rec.fieldValue(name)
		if !ok {
			continue
		}
		if game.has(name) {
			if !overwrite {
				continue
			}
			game.replace(name, value)
			changed++
			continue
		}
		game.Fields = append(game.Fields, fieldElement{XMLName: xml.Name{Local: name}, Value: value})
		changed++
	}

	if changed == 0 {
		return nil
	}
	return s.write(doc)
}

// replace rewrites every element of the given name with a single occurrence
// carrying the new value, preserving the position of the first occurrence.
func (g *gameElement) replace(name, value string) {
	replaced := false
	fields := g.Fields[:0]
	for _, f := range g.Fields {
		if f.XMLName.Local != name {
			fields = append(fields, f)
			continue
		}
		if !replaced {
			fields = append(fields, fieldElement{XMLName: xml.Name{Local: name}, Value: value})
			replaced = true
		}
	}
	g.Fields = fields
}

func (s *Store) write(doc *document) error {
	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data := append([]byte(xml.Header), output...)
	data = append(data, '\n')
	return os.WriteFile(s.path, data, 0o644)
}
