package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/require"
)

// TestMerge_CoverTocSources covers merging [cover(1pg), toc(2pg), a(3pg),
// b(4pg)]: the result has a single Catalog and Pages object, Pages
// /Count == 10, /Kids has 10 entries, and every Page's /Parent points at
// the same Pages object.
func TestMerge_CoverTocSources(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, pages int) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, buildMultiPagePDF(pages, nil), 0o644))
		return path
	}

	cover := write("cover.pdf", 1)
	toc := write("toc.pdf", 2)
	a := write("a.pdf", 3)
	b := write("b.pdf", 4)

	dest := filepath.Join(dir, "merged.pdf")
	require.NoError(t, Merge([]string{cover, toc, a, b}, dest))

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	require.NoError(t, err)

	require.NotNil(t, ctx.Root)
	catalog, err := ctx.DereferenceDict(*ctx.Root)
	require.NoError(t, err)
	require.NotNil(t, catalog)

	pagesRef := catalog.IndirectRefEntry("Pages")
	require.NotNil(t, pagesRef)
	pages, err := ctx.DereferenceDict(*pagesRef)
	require.NoError(t, err)

	count := pages.IntEntry("Count")
	require.NotNil(t, count)
	require.Equal(t, 10, *count)

	kids := pages.ArrayEntry("Kids")
	require.NotNil(t, kids)
	require.Len(t, *kids, 10)

	for _, kid := range *kids {
		ref, ok := kid.(types.IndirectRef)
		require.True(t, ok)
		pageDict, err := ctx.DereferenceDict(ref)
		require.NoError(t, err)
		parent := pageDict.IndirectRefEntry("Parent")
		require.NotNil(t, parent)
		require.Equal(t, pagesRef.ObjectNumber.Value(), parent.ObjectNumber.Value())
	}

	require.Nil(t, catalog.IndirectRefEntry("Outlines"))
}
