package pdf

import "strings"

// buildMultiPagePDF returns a minimal, valid multi-page PDF with n pages.
// When destID is non-nil, the first page carries a single /Annot whose
// /Dest is the name form "/<destID>", the pre-rewrite input shape.
func buildMultiPagePDF(n int, destID *int) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	offsets := make([]int, 0, 2+2*n+1)
	offsets = append(offsets, 0) // 1-indexed placeholder

	// obj 1: Catalog
	offsets = append(offsets, b.Len())
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	// obj 2: Pages
	kidsRefs := make([]string, n)
	for i := 0; i < n; i++ {
		kidsRefs[i] = itoa(3+i) + " 0 R"
	}
	pagesObjIndex := len(offsets)
	offsets = append(offsets, 0) // reserve; filled after we know kids text

	// Page objects start at id 3.
	pageOffsets := make([]int, n)
	annotID := 3 + 2*n // content streams occupy [3+n, 3+2n-1]; annot follows

	// We need Pages object text before page objects since dict references
	// kids by id, but id layout is fixed regardless of write order, so
	// write Pages first using computed ids, then write pages/contents.
	pagesOffset := b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [")
	for i, r := range kidsRefs {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(r)
	}
	b.WriteString("] /Count ")
	b.WriteString(itoa(n))
	b.WriteString(" >>\nendobj\n")
	offsets[pagesObjIndex] = pagesOffset

	for i := 0; i < n; i++ {
		pageID := 3 + i
		contentID := 3 + n + i

		annots := ""
		if i == 0 && destID != nil {
			annots = " /Annots [" + itoa(annotID) + " 0 R]"
		}

		pageOffsets[i] = b.Len()
		b.WriteString(itoa(pageID))
		b.WriteString(" 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents ")
		b.WriteString(itoa(contentID))
		b.WriteString(" 0 R")
		b.WriteString(annots)
		b.WriteString(" >>\nendobj\n")
	}

	contentStreamOffsets := make([]int, n)
	for i := 0; i < n; i++ {
		stream := "BT ET"
		contentStreamOffsets[i] = b.Len()
		b.WriteString(itoa(3 + n + i))
		b.WriteString(" 0 obj\n<< /Length ")
		b.WriteString(itoa(len(stream)))
		b.WriteString(" >>\nstream\n")
		b.WriteString(stream)
		b.WriteString("\nendstream\nendobj\n")
	}

	annotTextOffset := -1
	if destID != nil {
		annotTextOffset = b.Len()
		b.WriteString(itoa(annotID))
		b.WriteString(" 0 obj\n<< /Type /Annot /Subtype /Link /Rect [0 0 0 0] /Dest /")
		b.WriteString(itoa(*destID))
		b.WriteString(" >>\nendobj\n")
	}

	maxID := 2 + 2*n
	if destID != nil {
		maxID = annotID
	}

	allOffsets := make([]int, maxID+1)
	allOffsets[1] = offsets[1]
	allOffsets[2] = pagesOffset
	for i := 0; i < n; i++ {
		allOffsets[3+i] = pageOffsets[i]
		allOffsets[3+n+i] = contentStreamOffsets[i]
	}
	if destID != nil {
		allOffsets[annotID] = annotTextOffset
	}

	xrefOffset := b.Len()
	b.WriteString("xref\n0 ")
	b.WriteString(itoa(maxID + 1))
	b.WriteString("\n0000000000 65535 f \n")
	for i := 1; i <= maxID; i++ {
		b.WriteString(padOffset(allOffsets[i]))
		b.WriteString(" 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size ")
	b.WriteString(itoa(maxID + 1))
	b.WriteString(" /Root 1 0 R >>\nstartxref\n")
	b.WriteString(itoa(xrefOffset))
	b.WriteString("\n%%EOF\n")

	return []byte(b.String())
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	s := ""
	for n > 0 {
		s = string(rune('0'+n%10)) + s
		n /= 10
	}
	if neg {
		s = "-" + s
	}
	return s
}

func padOffset(n int) string {
	s := itoa(n)
	for len(s) < 10 {
		s = "0" + s
	}
	return s
}
