// Package pdfsplit renders the page-split step shared by the Brain Service's
// /router image path and the Material Processing Service (§4.3, §4.6 step
// 3): turning one PDF into a sequence of per-page byte buffers a vision
// model can be pointed at.
//
// There is no PDF rasterizer in the retrieval pack (no pdfium/mupdf
// bindings), so instead of rendering pages to bitmap images at a fixed DPI,
// this splits the source PDF into single-page PDF buffers with pdfcpu and
// hands each one to the vision model as-is; Ollama-class vision models
// accept a PDF page buffer as an "image" the same way they accept a raster
// image. See DESIGN.md for this substitution's justification.
package pdfsplit

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageCount returns the number of pages in a PDF, used to decide whether
// splitting is even necessary and to size the result slice up front.
func PageCount(data []byte) (int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("pdfsplit: read pdf: %w", err)
	}

	return r.NumPage(), nil
}

// Split returns one PDF byte buffer per page, in page order.
func Split(data []byte) ([][]byte, error) {
	n, err := PageCount(data)
	if err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, fmt.Errorf("pdfsplit: pdf has no pages")
	}

	conf := model.NewDefaultConfiguration()

	pages := make([][]byte, 0, n)

	for i := 1; i <= n; i++ {
		var out bytes.Buffer

		if err := extractPage(data, i, &out, conf); err != nil {
			return nil, fmt.Errorf("pdfsplit: extract page %d: %w", i, err)
		}

		pages = append(pages, out.Bytes())
	}

	return pages, nil
}

func extractPage(data []byte, page int, out io.Writer, conf *model.Configuration) error {
	in := bytes.NewReader(data)

	return pdfapi.Trim(in, out, []string{fmt.Sprintf("%d", page)}, conf)
}
