package pdf

import "github.com/pdfcpu/pdfcpu/pkg/api"

// PageCount returns the number of pages in the PDF at path.
func PageCount(path string) (int, error) {
	return api.PageCountFile(path)
}
