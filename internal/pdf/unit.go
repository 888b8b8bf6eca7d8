package pdf

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/akbstat/fusion/internal/location"
	"github.com/akbstat/fusion/internal/model"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpuModel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// UnitState is the PdfCombineUnit lifecycle position. Any step's failure
// aborts the unit; subsequent steps do not run.
type UnitState int

const (
	Init UnitState = iota
	LocationsBuilt
	TocRendered
	PdfAssembled
	LinksRewritten
	Done
)

// combineFileConfig mirrors one entry of the combine-binary's JSON config
// files array.
type combineFileConfig struct {
	ID    *uint32 `json:"id"`
	Title string  `json:"title"`
	Page  uint32  `json:"page"`
	Path  string  `json:"path"`
}

// combineConfig is the JSON contract fed to the external PDF-assembly
// binary.
type combineConfig struct {
	Destination string              `json:"destination"`
	Language    model.Language      `json:"language"`
	Total       uint32              `json:"total"`
	Files       []combineFileConfig `json:"files"`
}

// outlineLocation is one entry of the outline-writer's JSON contract.
type outlineLocation struct {
	Title string `json:"title"`
	Page  uint32 `json:"page"`
}

type outlineConfig struct {
	Target    string            `json:"target"`
	Locations []outlineLocation `json:"locations"`
}

// Unit runs one PdfCombineParam through the full combine protocol:
// locations -> TOC render -> external assembly -> external outline write
// -> annotation link rewrite.
type Unit struct {
	Param model.PdfCombineParam

	CombineBin string
	OutlineBin string

	State UnitState
}

// Run executes the unit's steps in order, stopping at the first failure.
// It returns the final state reached and the error, if any. A failure in
// the outline-write step is reported but does not revert the state past
// PdfAssembled — the PDF already exists and the unit is considered a
// partial success.
func (u *Unit) Run() (UnitState, error) {
	u.State = Init

	loc, err := u.buildLocations()
	if err != nil {
		return u.State, fmt.Errorf("pdf combine unit: build locations: %w", err)
	}
	u.State = LocationsBuilt

	tocHeader := "Table of Content"
	if u.Param.Language == model.LanguageCN {
		tocHeader = "目录"
	}
	if err := RenderToc(loc.Snapshot(), "A4", tocHeader, u.Param.TocHeaders, u.Param.Toc); err != nil {
		return u.State, fmt.Errorf("pdf combine unit: render toc: %w", err)
	}
	u.State = TocRendered

	// TOC is inserted first, then cover, so cover ends up at index 0:
	// final order [cover, toc, ...files].
	tocPages, err := PageCount(u.Param.Toc)
	if err != nil {
		return u.State, fmt.Errorf("pdf combine unit: count toc pages: %w", err)
	}
	loc.InsertHead(nil, tocHeader, uint32(tocPages), u.Param.Toc)

	if u.Param.Cover != "" {
		coverPages, err := PageCount(u.Param.Cover)
		if err != nil {
			return u.State, fmt.Errorf("pdf combine unit: count cover pages: %w", err)
		}
		loc.InsertHead(nil, "cover", uint32(coverPages), u.Param.Cover)
	}

	u.updatePages(loc)

	if err := u.assemble(loc); err != nil {
		return u.State, fmt.Errorf("pdf combine unit: assemble: %w", err)
	}
	u.State = PdfAssembled

	if err := u.writeOutline(loc); err != nil {
		// Partial success: the combined PDF exists, only the outline
		// tree is missing. Report but do not advance past PdfAssembled.
		return u.State, fmt.Errorf("pdf combine unit: outline: %w", err)
	}

	if err := u.rewriteLinks(loc); err != nil {
		return u.State, fmt.Errorf("pdf combine unit: rewrite links: %w", err)
	}
	u.State = LinksRewritten
	u.State = Done
	return u.State, nil
}

func (u *Unit) buildLocations() (*location.Table, error) {
	tbl := location.New()
	for _, file := range u.Param.Files {
		pages, err := PageCount(file.Filepath)
		if err != nil {
			return nil, err
		}
		id := file.ID
		tbl.Push(&id, file.Title, uint32(pages), file.Filepath)
	}
	return tbl, nil
}

// updatePages runs after the cover and TOC locations have been prepended:
// every Location whose ID matches a manifest file is the single source of
// truth for that file's absolute page, so this copies it back onto
// Param.Files so each PdfFileRef's PageActual/PageDisplay reflect the
// final merged position without recomputing page counts a second time.
func (u *Unit) updatePages(loc *location.Table) {
	byID := make(map[uint32]uint32, len(u.Param.Files))
	for _, l := range loc.Snapshot() {
		if l.ID != nil {
			byID[*l.ID] = l.Page
		}
	}
	for i := range u.Param.Files {
		f := &u.Param.Files[i]
		if page, ok := byID[f.ID]; ok {
			f.PageActual = page
			f.PageDisplay = page + 1
		}
	}
}

func (u *Unit) assemble(loc *location.Table) error {
	snapshot := loc.Snapshot()
	files := make([]combineFileConfig, 0, len(snapshot))
	for _, l := range snapshot {
		files = append(files, combineFileConfig{ID: l.ID, Title: l.Title, Page: l.Page, Path: l.Path})
	}

	cfg := combineConfig{
		Destination: u.Param.Destination,
		Language:    u.Param.Language,
		Total:       loc.TotalPages(),
		Files:       files,
	}

	configPath := u.Param.Workspace + "/config.json"
	if err := writeJSON(configPath, cfg); err != nil {
		return err
	}

	if u.CombineBin == "" {
		return fmt.Errorf("pdf: no combine binary configured")
	}
	cmd := exec.Command(u.CombineBin, configPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("combine binary failed: %w: %s", err, out)
	}
	return nil
}

func (u *Unit) writeOutline(loc *location.Table) error {
	if u.OutlineBin == "" {
		return nil
	}
	locs := make([]outlineLocation, 0)
	for _, l := range loc.Snapshot() {
		locs = append(locs, outlineLocation{Title: l.Title, Page: l.Page})
	}
	cfg := outlineConfig{Target: u.Param.Destination, Locations: locs}

	configPath := u.Param.Workspace + "/outline.json"
	if err := writeJSON(configPath, cfg); err != nil {
		return err
	}

	cmd := exec.Command(u.OutlineBin, configPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("outline binary failed: %w: %s", err, out)
	}
	return nil
}

// rewriteLinks reloads the produced destination, and for every Annot
// dictionary whose /Dest is a name string parseable as an integer id,
// replaces /Dest with the explicit-destination array form pointing at the
// location with that id's absolute page. Entries with no matching id are
// left unchanged.
func (u *Unit) rewriteLinks(loc *location.Table) error {
	byID := make(map[uint32]uint32)
	for _, l := range loc.Snapshot() {
		if l.ID != nil {
			byID[*l.ID] = l.Page
		}
	}

	f, err := os.Open(u.Param.Destination)
	if err != nil {
		return err
	}
	conf := pdfcpuModel.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	_ = f.Close()
	if err != nil {
		return err
	}

	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		dict, ok := entry.Object.(types.Dict)
		if !ok {
			continue
		}
		if t := dict.Type(); t == nil || *t != "Annot" {
			continue
		}
		destName, ok := dict["Dest"].(types.Name)
		if !ok {
			continue
		}
		id, err := strconv.ParseUint(string(destName), 10, 32)
		if err != nil {
			continue
		}
		page, found := byID[uint32(id)]
		if !found {
			continue
		}
		dict["Dest"] = types.Array{
			types.Integer(page),
			types.Name("XYZ"),
			nil, nil, nil,
			types.Dict{"XYZ": types.Array{nil, nil, nil}},
		}
	}

	out, err := os.Create(u.Param.Destination + ".tmp")
	if err != nil {
		return err
	}
	if err := api.WriteContext(ctx, out); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(u.Param.Destination+".tmp", u.Param.Destination)
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
