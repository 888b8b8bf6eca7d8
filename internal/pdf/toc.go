package pdf

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"

	"github.com/akbstat/fusion/internal/model"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// tocTemplate is the fixed TOC layout: dashed leaders between a title and
// its page number, paginating at 30 entries per page. The styling is
// expressed in print CSS rather than drawn directly, since that is
// trivial in HTML and awkward in direct PDF drawing.
var tocFuncs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"mod": func(a, b int) int { return a % b },
}

var tocTemplate = template.Must(template.New("toc").Funcs(tocFuncs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  @page { size: {{.Size}} landscape; margin: 0; }
  body { font-family: sans-serif; margin: 2cm; }
  h1 { text-align: center; }
  .toc-headers { display: grid; grid-template-columns: auto auto; margin-bottom: 5px; }
  .toc-headers div:nth-child(even) { text-align: right; }
  .toc-item { display: flex; align-items: baseline; margin: 4px 0; }
  .toc-title { white-space: nowrap; overflow: hidden; }
  .toc-leader { flex: 1; border-bottom: 1px dashed #444; margin: 0 6px; height: 1px; }
  .toc-page { white-space: nowrap; }
  .break-page { page-break-after: always; }
</style>
</head>
<body>
<div class="toc-headers">
  <div>{{.Headers.H1}}</div>
  <div>{{.Headers.H2}}</div>
  <div>{{.Headers.H3}}</div>
  <div>{{.Headers.H4}}</div>
</div>
<h1>{{.Content}}</h1>
{{range $i, $item := .Items}}
<a id="{{$item.ID}}" href="#{{$item.ID}}">
  <div class="toc-item">
    <span class="toc-title">{{$item.Title}}</span>
    <div class="toc-leader"></div>
    <div class="toc-page">{{$item.Page}}</div>
  </div>
</a>
{{if and (gt $i 0) (eq (mod (add $i 1) 30) 0)}}<div class="break-page"></div>{{end}}
{{end}}
</body>
</html>
`))

type tocItem struct {
	ID    string
	Title string
	Page  uint32
}

// tocHeaderGrid is the 2x2 header grid rendered above the TOC title: H1/H2
// make up the first row, H3/H4 the second, matching the source template's
// toc_headers.0..3 layout.
type tocHeaderGrid struct {
	H1, H2, H3, H4 string
}

type tocData struct {
	Size    string
	Content string
	Headers tocHeaderGrid
	Items   []tocItem
}

// RenderToc renders locations into an HTML file next to destination, then
// drives a headless Chromium tab to print that HTML to destination as a
// PDF with PreferCSSPageSize so the @page landscape/size rule above is
// honored. headers is the 4-string (s1,s2,s3,s4) header tuple rendered as
// a 2x2 grid above the title.
func RenderToc(locations []model.Location, size string, content string, headers model.TocHeaders, destination string) error {
	htmlPath := tocHTMLPath(destination)
	if err := writeTocHTML(locations, size, content, headers, htmlPath); err != nil {
		return err
	}
	return htmlToPDF(htmlPath, destination)
}

func tocHTMLPath(destination string) string {
	return destination[:len(destination)-len(filepath.Ext(destination))] + ".html"
}

// writeTocHTML renders the TOC template (including the 2x2 toc_headers
// grid) to htmlPath. Split out from RenderToc so the template output can
// be exercised without a headless browser.
func writeTocHTML(locations []model.Location, size string, content string, headers model.TocHeaders, htmlPath string) error {
	items := make([]tocItem, 0, len(locations))
	for _, loc := range locations {
		id := ""
		if loc.ID != nil {
			id = fmt.Sprintf("%d", *loc.ID)
		}
		items = append(items, tocItem{ID: id, Title: loc.Title, Page: loc.Page + 1})
	}

	f, err := os.Create(htmlPath)
	if err != nil {
		return err
	}
	data := tocData{
		Size:    size,
		Content: content,
		Headers: tocHeaderGrid{H1: headers[0], H2: headers[1], H3: headers[2], H4: headers[3]},
		Items:   items,
	}
	err = tocTemplate.Execute(f, data)
	closeErr := f.Close()
	if err != nil {
		return err
	}
	return closeErr
}

func htmlToPDF(source, destination string) error {
	url := launcher.New().Headless(true).MustLaunch()
	browser := rod.New().ControlURL(url).MustConnect()
	defer browser.MustClose()

	page := browser.MustIncognito().MustPage("file://" + source)
	page.MustWaitLoad().MustWaitIdle()

	preferCSS := true
	stream, err := page.PDF(&proto.PagePrintToPDF{PreferCSSPageSize: preferCSS})
	if err != nil {
		return fmt.Errorf("pdf: toc render: %w", err)
	}

	out, err := os.Create(destination)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, stream); err != nil {
		return fmt.Errorf("pdf: toc write: %w", err)
	}
	return nil
}
