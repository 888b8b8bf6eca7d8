// Package model holds the plain data types shared across the fusion
// pipeline stages: the manifest-derived task shapes, the PDF location
// records, and the combine parameters the worker pools consume.
package model

// Language selects the locale used for generated TOC copy.
type Language string

const (
	LanguageCN Language = "CN"
	LanguageEN Language = "EN"
)

// Mode selects whether a task's deliverable is a combined PDF or a
// concatenated RTF.
type Mode string

const (
	ModePDF Mode = "PDF"
	ModeRTF Mode = "RTF"
)

// FileEntry describes one manifest-listed source file. Immutable once a
// task is frozen.
type FileEntry struct {
	Filename string
	Title    string
	Path     string
	Size     uint64
}

// ConvertTask is one unit of Stage A work: convert Source (RTF) to
// Destination (PDF). ScriptDir is scratch space handed to the external
// converter.
type ConvertTask struct {
	Source      string
	Destination string
	SourceSize  uint64
	ScriptDir   string
}

// PdfFileRef is one entry of a PdfCombineParam's file list. ID equals the
// zero-based manifest index. PageDisplay is the reader-facing page number
// (starts at 1); PageActual is the absolute page index in the merged PDF.
// Both are populated by the pdf package's Unit.updatePages.
type PdfFileRef struct {
	ID          uint32
	Title       string
	Filepath    string
	PageDisplay uint32
	PageActual  uint32
}

// TocHeaders is the 4-string header tuple substituted into the TOC
// template.
type TocHeaders [4]string

// PdfCombineParam is the input to one PdfCombineUnit run.
type PdfCombineParam struct {
	ID          int
	Workspace   string
	Language    Language
	Cover       string // optional; empty means absent
	Toc         string
	Files       []PdfFileRef
	Destination string
	TocHeaders  TocHeaders
}

// RtfCombineParam is the input to one RtfCombiner run.
type RtfCombineParam struct {
	Destination string
	Files       []string
}

// Location is one entry of a LocationTable: an id-optional, titled,
// zero-based-page pointer into the assembled PDF.
type Location struct {
	ID    *uint32
	Title string
	Page  uint32
	Path  string
}
