// Package pdf implements the PDF-side of Stage B: structural merging of
// PDF object graphs (PdfMerger), page counting, TOC rendering via a
// headless browser, and the per-task orchestration (PdfCombineUnit) that
// ties them together.
package pdf

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrRootNotFound is returned when a merged document ends up without a
// single identifiable Catalog or Pages object.
var ErrRootNotFound = fmt.Errorf("pdf: root not found")

// Merge combines inputs (in order: optional cover, TOC, then each source in
// manifest order) into a single PDF at destination. Object IDs are
// renumbered to avoid collision (delegated to pdfcpu's own merge, which
// already performs the identical renumber-and-union-page-tree algorithm
// already performs for multi-document concatenation); this function then
// applies the domain-specific finishing pass: collapsing to a single
// Catalog/Pages pair is already pdfcpu's behavior, so the finishing pass
// here only has to drop inherited Outlines (an external tool rebuilds
// them) and confirm the Catalog/Pages invariant holds.
func Merge(inputs []string, destination string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("pdf: no inputs to merge")
	}

	conf := model.NewDefaultConfiguration()
	if err := api.MergeCreateFile(inputs, destination, false, conf); err != nil {
		return fmt.Errorf("pdf: merge: %w", err)
	}

	return dropOutlinesAndValidate(destination)
}

// dropOutlinesAndValidate reopens destination, removes any Outlines tree
// (outlines are dropped here; an external writer rebuilds
// them) and confirms exactly one Catalog and one Pages object remain with
// Count/Kids/Parent consistent, then saves in place.
func dropOutlinesAndValidate(destination string) error {
	f, err := os.Open(destination)
	if err != nil {
		return err
	}
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("pdf: reopen merged file: %w", err)
	}

	rootRef := ctx.Root
	if rootRef == nil {
		return ErrRootNotFound
	}
	catalog, err := ctx.DereferenceDict(*rootRef)
	if err != nil || catalog == nil {
		return ErrRootNotFound
	}

	pagesRef := catalog.IndirectRefEntry("Pages")
	if pagesRef == nil {
		return ErrRootNotFound
	}
	pages, err := ctx.DereferenceDict(*pagesRef)
	if err != nil || pages == nil {
		return ErrRootNotFound
	}

	if outlinesRef := catalog.IndirectRefEntry("Outlines"); outlinesRef != nil {
		removeOutlineTree(ctx, *outlinesRef)
		catalog.Delete("Outlines")
	}

	kids := pages.ArrayEntry("Kids")
	count := pages.IntEntry("Count")
	if kids == nil || count == nil || len(*kids) != *count {
		return fmt.Errorf("pdf: %w: Pages Count/Kids mismatch after merge", ErrRootNotFound)
	}

	for _, kid := range *kids {
		ref, ok := kid.(types.IndirectRef)
		if !ok {
			continue
		}
		pageDict, err := ctx.DereferenceDict(ref)
		if err != nil || pageDict == nil {
			continue
		}
		pageDict.Update("Parent", *pagesRef)
	}

	outFile, err := os.Create(destination + ".tmp")
	if err != nil {
		return err
	}
	if err := api.WriteContext(ctx, outFile); err != nil {
		_ = outFile.Close()
		return fmt.Errorf("pdf: write merged: %w", err)
	}
	if err := outFile.Close(); err != nil {
		return err
	}
	return os.Rename(destination+".tmp", destination)
}

// removeOutlineTree walks an Outlines/Outline chain and frees each object
// from the cross-reference table so the saved file carries no dangling
// outline entries.
func removeOutlineTree(ctx *model.Context, ref types.IndirectRef) {
	dict, err := ctx.DereferenceDict(ref)
	if err != nil || dict == nil {
		return
	}
	if first := dict.IndirectRefEntry("First"); first != nil {
		removeOutlineSiblings(ctx, *first)
	}
	_ = ctx.DeleteObject(ref.ObjectNumber.Value())
}

func removeOutlineSiblings(ctx *model.Context, ref types.IndirectRef) {
	seen := map[int]bool{}
	cur := &ref
	for cur != nil {
		objNr := cur.ObjectNumber.Value()
		if seen[objNr] {
			break
		}
		seen[objNr] = true

		dict, err := ctx.DereferenceDict(*cur)
		if err != nil || dict == nil {
			break
		}
		if child := dict.IndirectRefEntry("First"); child != nil {
			removeOutlineSiblings(ctx, *child)
		}
		next := dict.IndirectRefEntry("Next")
		_ = ctx.DeleteObject(objNr)
		cur = next
	}
}
