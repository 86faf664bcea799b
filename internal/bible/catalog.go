// Package bible supplies chapter and verse counts for the books a plan reads.
package bible

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/faizmokh/nibab/internal/schedule"
)

// ErrInvalidCatalog is returned when a catalog file cannot be used.
var ErrInvalidCatalog = errors.New("invalid book catalog")

//go:embed kjv.json
var builtinData []byte

// Book is one catalog entry. Verses[i] is the verse count of chapter i+1.
type Book struct {
	Name   string `json:"name"`
	OSIS   string `json:"osis,omitempty"`
	Verses []int  `json:"verses"`
}

// Catalog looks books up by name. It implements schedule.BookMetadataProvider.
type Catalog struct {
	Name  string
	books []Book
	index map[string]int
}

type catalogFile struct {
	Name  string `json:"name"`
	Books []Book `json:"books"`
}

// Builtin returns the embedded KJV catalog.
func Builtin() *Catalog {
	c, err := Parse(builtinData)
	if err != nil {
		panic(fmt.Sprintf("bible: embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a JSONC catalog file of the form
// {"name": "...", "books": [{"name": "...", "verses": [..]}]}.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a JSONC catalog.
func Parse(data []byte) (*Catalog, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JSONC: %w", ErrInvalidCatalog, err)
	}

	var file catalogFile
	if err := json.Unmarshal(standardized, &file); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %w", ErrInvalidCatalog, err)
	}
	return New(file.Name, file.Books)
}

// New builds a catalog from books, keeping their order.
func New(name string, books []Book) (*Catalog, error) {
	if len(books) == 0 {
		return nil, fmt.Errorf("%w: no books", ErrInvalidCatalog)
	}

	c := &Catalog{Name: name, books: make([]Book, 0, len(books)), index: make(map[string]int, len(books)*2)}
	for _, b := range books {
		if strings.TrimSpace(b.Name) == "" {
			return nil, fmt.Errorf("%w: book without a name", ErrInvalidCatalog)
		}
		if len(b.Verses) == 0 {
			return nil, fmt.Errorf("%w: %s has no chapters", ErrInvalidCatalog, b.Name)
		}
		for i, n := range b.Verses {
			if n < 1 {
				return nil, fmt.Errorf("%w: %s chapter %d has %d verses", ErrInvalidCatalog, b.Name, i+1, n)
			}
		}
		if _, dup := c.index[fold(b.Name)]; dup {
			return nil, fmt.Errorf("%w: duplicate book %s", ErrInvalidCatalog, b.Name)
		}

		pos := len(c.books)
		c.books = append(c.books, Book{Name: b.Name, OSIS: b.OSIS, Verses: append([]int(nil), b.Verses...)})
		c.index[fold(b.Name)] = pos
		if b.OSIS != "" {
			if _, taken := c.index[fold(b.OSIS)]; !taken {
				c.index[fold(b.OSIS)] = pos
			}
		}
	}
	return c, nil
}

// Extent returns the chapter layout of the named book. Names match exactly
// first, then case-insensitively, then by OSIS abbreviation.
func (c *Catalog) Extent(name string) (schedule.BookExtent, error) {
	b, ok := c.Lookup(name)
	if !ok {
		return schedule.BookExtent{}, fmt.Errorf("%w: %q", schedule.ErrBookNotFound, name)
	}
	return schedule.BookExtent{Name: b.Name, Verses: append([]int(nil), b.Verses...)}, nil
}

// Lookup finds a book by name or abbreviation.
func (c *Catalog) Lookup(name string) (Book, bool) {
	for _, b := range c.books {
		if b.Name == name {
			return b, true
		}
	}
	pos, ok := c.index[fold(name)]
	if !ok {
		return Book{}, false
	}
	return c.books[pos], true
}

// Canonical maps user input to catalog names, failing on the first unknown book.
func (c *Catalog) Canonical(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, name := range names {
		b, ok := c.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", schedule.ErrBookNotFound, name)
		}
		out = append(out, b.Name)
	}
	return out, nil
}

// Names lists book names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.books))
	for i, b := range c.books {
		out[i] = b.Name
	}
	return out
}

// Books returns a copy of every entry in catalog order.
func (c *Catalog) Books() []Book {
	out := make([]Book, len(c.books))
	copy(out, c.books)
	return out
}

func fold(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
