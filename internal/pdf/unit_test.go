package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/akbstat/fusion/internal/location"
	"github.com/akbstat/fusion/internal/model"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpuModel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/require"
)

// TestUnit_UpdatePages covers the PdfFileRef page invariant: after cover
// and TOC are prepended, files[0].page_actual == cover_pages + toc_pages,
// and files[i].page_actual == files[i-1].page_actual + pages(files[i-1]).
func TestUnit_UpdatePages(t *testing.T) {
	u := &Unit{
		Param: model.PdfCombineParam{
			Files: []model.PdfFileRef{
				{ID: 0, Title: "a"},
				{ID: 1, Title: "b"},
				{ID: 2, Title: "c"},
			},
		},
	}

	tbl := location.New()
	id0, id1, id2 := uint32(0), uint32(1), uint32(2)
	tbl.Push(&id0, "a", 2, "a.pdf")
	tbl.Push(&id1, "b", 3, "b.pdf")
	tbl.Push(&id2, "c", 1, "c.pdf")
	tbl.InsertHead(nil, "toc", 2, "toc.pdf")
	tbl.InsertHead(nil, "cover", 1, "cover.pdf")

	u.updatePages(tbl)

	require.Equal(t, uint32(3), u.Param.Files[0].PageActual) // cover(1) + toc(2)
	require.Equal(t, uint32(4), u.Param.Files[0].PageDisplay)
	require.Equal(t, uint32(5), u.Param.Files[1].PageActual) // 3 + pages(a)=2
	require.Equal(t, uint32(8), u.Param.Files[2].PageActual) // 5 + pages(b)=3
}

// TestUnit_RewriteLinks covers the annotation-retarget rewrite: an Annot
// with /Dest = /3 and a location {id:3, page:42} becomes
// /Dest = [42, /XYZ, null, null, null, <<...>>].
func TestUnit_RewriteLinks(t *testing.T) {
	dir := t.TempDir()
	destID := 3
	path := filepath.Join(dir, "dest.pdf")
	require.NoError(t, os.WriteFile(path, buildMultiPagePDF(2, &destID), 0o644))

	u := &Unit{Param: model.PdfCombineParam{Destination: path}}

	id3 := uint32(3)
	tbl := location.New()
	tbl.Push(nil, "pad", 42, "pad.pdf")
	tbl.Push(&id3, "target", 1, "target.pdf")

	require.NoError(t, u.rewriteLinks(tbl))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	ctx, err := api.ReadValidateAndOptimize(f, pdfcpuModel.NewDefaultConfiguration())
	require.NoError(t, err)

	var found bool
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		dict, ok := entry.Object.(types.Dict)
		if !ok {
			continue
		}
		tp := dict.Type()
		if tp == nil || *tp != "Annot" {
			continue
		}
		arr, ok := dict["Dest"].(types.Array)
		require.True(t, ok, "Dest should have been rewritten to an array")
		require.Len(t, arr, 6)
		page, ok := arr[0].(types.Integer)
		require.True(t, ok)
		require.Equal(t, 42, int(page))
		name, ok := arr[1].(types.Name)
		require.True(t, ok)
		require.Equal(t, "XYZ", string(name))
		found = true
	}
	require.True(t, found, "expected to find the rewritten Annot")
}
