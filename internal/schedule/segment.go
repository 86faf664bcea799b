package schedule

import (
	"iter"
)

// Position addresses a single verse.
type Position struct {
	Book    string
	Chapter int
	Verse   int
}

// Verses lazily flattens ranges into their verse stream in document order.
func Verses(ranges []BookRange) iter.Seq[Position] {
	return func(yield func(Position) bool) {
		for _, r := range ranges {
			if r.Empty() {
				continue
			}
			for ch := r.StartChapter; ch <= r.EndChapter; ch++ {
				low, high := r.chapterSpan(ch)
				for v := low; v <= high; v++ {
					if !yield(Position{Book: r.Book(), Chapter: ch, Verse: v}) {
						return
					}
				}
			}
		}
	}
}

// Pack folds a verse stream into pending units of at most versesPerUnit verses.
// A unit only grows with the immediate successor verse of the same chapter,
// so units never cross a chapter or book boundary. Indexes start at startIndex.
func Pack(verses iter.Seq[Position], versesPerUnit, startIndex int) []ReadingUnit {
	versesPerUnit = max(1, versesPerUnit)

	var (
		units []ReadingUnit
		acc   *ReadingUnit
	)
	flush := func() {
		if acc == nil {
			return
		}
		acc.Index = startIndex + len(units)
		units = append(units, *acc)
		acc = nil
	}

	for pos := range verses {
		if acc != nil && extends(*acc, pos) && acc.Len() < versesPerUnit {
			acc.VerseEnd = pos.Verse
		} else {
			flush()
			acc = &ReadingUnit{
				Book:       pos.Book,
				Chapter:    pos.Chapter,
				VerseStart: pos.Verse,
				VerseEnd:   pos.Verse,
				State:      UnitPending,
			}
		}
		if acc.Len() == versesPerUnit {
			flush()
		}
	}
	flush()

	return units
}

func extends(u ReadingUnit, pos Position) bool {
	return u.Book == pos.Book && u.Chapter == pos.Chapter && u.VerseEnd+1 == pos.Verse
}

// Segment resolves the books and boundary and packs the selection into units.
func Segment(provider BookMetadataProvider, books []string, boundary *Boundary, versesPerUnit, startIndex int) ([]ReadingUnit, error) {
	ranges, err := ResolveRanges(provider, books, boundary)
	if err != nil {
		return nil, err
	}
	return Pack(Verses(ranges), versesPerUnit, startIndex), nil
}

// VersesPerUnit sizes units so totalVerses spread over remainingDays worth of
// sessions, never exceeding maxVersesPerUnit and never below one verse.
func VersesPerUnit(totalVerses, remainingDays int, freq Frequency, maxVersesPerUnit int) int {
	targetUnits := max(1, remainingDays*freq.unitsPerDay())
	base := max(1, totalVerses/targetUnits)
	return min(base, max(1, maxVersesPerUnit))
}

// take stops a stream after n verses. It reports through placed how many were yielded.
func take(verses iter.Seq[Position], n int, placed *int) iter.Seq[Position] {
	return func(yield func(Position) bool) {
		if n <= 0 {
			return
		}
		for pos := range verses {
			*placed++
			if !yield(pos) || *placed >= n {
				return
			}
		}
	}
}

// from skips the stream until start is reached; found reports whether it was.
func from(verses iter.Seq[Position], start Position, found *bool) iter.Seq[Position] {
	return func(yield func(Position) bool) {
		for pos := range verses {
			if !*found {
				if pos != start {
					continue
				}
				*found = true
			}
			if !yield(pos) {
				return
			}
		}
	}
}
