package schedule

import (
	"fmt"
)

// BookRange is the resolved chapter/verse span selected from one book.
type BookRange struct {
	Extent       BookExtent
	StartChapter int
	StartVerse   int
	EndChapter   int
	EndVerse     int
}

// Book returns the book name of the range.
func (r BookRange) Book() string {
	return r.Extent.Name
}

// Empty reports whether the range selects no verses at all.
func (r BookRange) Empty() bool {
	if r.Extent.Chapters() == 0 || r.StartChapter > r.EndChapter {
		return true
	}
	return r.StartChapter == r.EndChapter && r.StartVerse > r.EndVerse
}

// Count returns the number of verses in the range.
func (r BookRange) Count() int {
	if r.Empty() {
		return 0
	}
	total := 0
	for ch := r.StartChapter; ch <= r.EndChapter; ch++ {
		low, high := r.chapterSpan(ch)
		if high >= low {
			total += high - low + 1
		}
	}
	return total
}

// chapterSpan returns the first and last selected verse of a chapter inside the range.
func (r BookRange) chapterSpan(chapter int) (int, int) {
	count := r.Extent.VersesIn(chapter)
	low, high := 1, count
	if chapter == r.StartChapter {
		low = r.StartVerse
	}
	if chapter == r.EndChapter {
		high = min(r.EndVerse, count)
	}
	return low, high
}

// ResolveRanges turns the selected books and optional boundary into one
// contiguous logical range. A single book takes the boundary directly; with
// several books the first starts at the boundary start, the last ends at the
// boundary end and the books in between are taken whole.
//
// Boundary indices outside a book are clamped to its extent instead of rejected.
func ResolveRanges(provider BookMetadataProvider, books []string, boundary *Boundary) ([]BookRange, error) {
	if len(books) == 0 {
		return nil, fmt.Errorf("%w: at least one book is required", ErrInvalidPlan)
	}

	extents := make([]BookExtent, 0, len(books))
	for _, name := range books {
		extent, err := provider.Extent(name)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", name, err)
		}
		extents = append(extents, extent)
	}

	startCh, startV := boundary.start()
	ranges := make([]BookRange, 0, len(extents))
	for i, extent := range extents {
		first := i == 0
		last := i == len(extents)-1

		r := BookRange{Extent: extent, StartChapter: 1, StartVerse: 1}
		if first {
			r.StartChapter, r.StartVerse = startCh, startV
		}
		r.EndChapter = extent.Chapters()
		if last && boundary != nil && boundary.ChapterEnd != nil {
			r.EndChapter = *boundary.ChapterEnd
		}
		r.EndChapter = clamp(r.EndChapter, 1, extent.Chapters())
		r.EndVerse = extent.VersesIn(r.EndChapter)
		if last && boundary != nil && boundary.VerseEnd != nil {
			r.EndVerse = *boundary.VerseEnd
		}

		r.StartChapter = clamp(r.StartChapter, 1, extent.Chapters())
		r.StartVerse = clamp(r.StartVerse, 1, extent.VersesIn(r.StartChapter))
		r.EndVerse = clamp(r.EndVerse, 1, extent.VersesIn(r.EndChapter))
		ranges = append(ranges, r)
	}
	return ranges, nil
}

// CountVerses sums the verses of every range.
func CountVerses(ranges []BookRange) int {
	total := 0
	for _, r := range ranges {
		total += r.Count()
	}
	return total
}

func clamp(v, low, high int) int {
	if high < low {
		return low
	}
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
