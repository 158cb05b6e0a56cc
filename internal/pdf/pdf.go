// Package pdf prints compiled HTML documents to PDF through headless
// Chrome and merges the per-side files into a single packet.
package pdf

import (
	"context"
	"fmt"
	"html"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// chromeNames are the binaries tried when locating a browser, in the
// order chromedp's allocator tries them.
var chromeNames = []string{
	"headless-shell",
	"headless_shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"google-chrome-beta",
	"google-chrome-unstable",
	"chrome",
}

// Available reports whether a Chrome binary is on PATH. Callers skip
// conversion instead of failing the run when no browser is installed.
func Available() bool {
	for _, name := range chromeNames {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

// Convert prints one HTML file to PDF. Page size and margins come
// from the document's print CSS; the footer carries the given title
// and a page counter.
func Convert(ctx context.Context, htmlPath, pdfPath, title string) error {
	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", htmlPath, err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var data []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+abs),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			data, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<span></span>`).
				WithFooterTemplate(footerTemplate(title)).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return fmt.Errorf("printing %s: %w", htmlPath, err)
	}

	if err := os.WriteFile(pdfPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", pdfPath, err)
	}
	return nil
}

// Merge concatenates the given PDFs into one packet file.
func Merge(inputs []string, outPath string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("nothing to merge")
	}
	if err := api.MergeCreateFile(inputs, outPath, false, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("merging %d files: %w", len(inputs), err)
	}
	return nil
}

// footerTemplate builds the print footer Chrome injects on every
// page. Styles must be inline; pageNumber and totalPages are class
// names Chrome substitutes at print time.
func footerTemplate(title string) string {
	return fmt.Sprintf(
		`<div style="font-size:8px; width:100%%; padding:0 12mm; display:flex; justify-content:space-between; font-family:Arial, sans-serif;">`+
			`<span>%s</span>`+
			`<span><span class="pageNumber"></span> / <span class="totalPages"></span></span></div>`,
		html.EscapeString(title))
}
