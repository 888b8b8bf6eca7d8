// Package location builds the ordered page-location sequence a PDF
// combine unit needs to render a table of contents and retarget
// annotation links.
package location

import "github.com/akbstat/fusion/internal/model"

// Table is an ordered builder of model.Location entries with a running
// page total. Order is significant and preserved.
type Table struct {
	entries    []model.Location
	totalPages uint32
}

// New returns an empty Table.
func New() *Table {
	return &Table{}
}

// Push appends an entry at the current total-pages offset, then advances
// the total by pages.
func (t *Table) Push(id *uint32, title string, pages uint32, path string) {
	t.entries = append(t.entries, model.Location{
		ID:    id,
		Title: title,
		Page:  t.totalPages,
		Path:  path,
	})
	t.totalPages += pages
}

// InsertHead shifts every existing entry's page forward by pages, then
// prepends a new entry at page 0, and advances the total by pages.
func (t *Table) InsertHead(id *uint32, title string, pages uint32, path string) {
	for i := range t.entries {
		t.entries[i].Page += pages
	}
	entry := model.Location{ID: id, Title: title, Page: 0, Path: path}
	t.entries = append([]model.Location{entry}, t.entries...)
	t.totalPages += pages
}

// Snapshot returns an owned copy of the ordered entry sequence.
func (t *Table) Snapshot() []model.Location {
	out := make([]model.Location, len(t.entries))
	copy(out, t.entries)
	return out
}

// TotalPages returns the accumulated page total across all Push/InsertHead
// calls.
func (t *Table) TotalPages() uint32 {
	return t.totalPages
}
