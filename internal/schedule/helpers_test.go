package schedule

import (
	"fmt"
	"testing"
	"time"
)

type fakeProvider map[string][]int

func (f fakeProvider) Extent(name string) (BookExtent, error) {
	verses, ok := f[name]
	if !ok {
		return BookExtent{}, fmt.Errorf("%w: %s", ErrBookNotFound, name)
	}
	return BookExtent{Name: name, Verses: verses}, nil
}

var testBooks = fakeProvider{
	"Ruth":  {22, 23, 18, 22},
	"Jonah": {17, 10, 10, 11},
	"Jude":  {25},
	"Tiny":  {3, 2},
	"Empty": {},
}

func intPtr(n int) *int { return &n }

func date(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return d
}

func at(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02 15:04", value, time.UTC)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return d
}

func unit(book string, chapter, start, end, index int) ReadingUnit {
	return ReadingUnit{Book: book, Chapter: chapter, VerseStart: start, VerseEnd: end, Index: index}
}

// flatten expands units into their verse positions in order.
func flatten(units []ReadingUnit) []Position {
	var out []Position
	for _, u := range units {
		for v := u.VerseStart; v <= u.VerseEnd; v++ {
			out = append(out, Position{Book: u.Book, Chapter: u.Chapter, Verse: v})
		}
	}
	return out
}

func collect(ranges []BookRange) []Position {
	var out []Position
	for pos := range Verses(ranges) {
		out = append(out, pos)
	}
	return out
}
