package export

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	pdfTimeout     = 30 * time.Second
	maxFilenameLen = 50
)

// pageLayout is a US Letter sheet with even margins, in inches.
type pageLayout struct {
	width, height, margin float64
}

var letter = pageLayout{width: 8.5, height: 11, margin: 0.75}

func (l pageLayout) print() *page.PrintToPDFParams {
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(l.width).
		WithPaperHeight(l.height).
		WithMarginTop(l.margin).
		WithMarginBottom(l.margin).
		WithMarginLeft(l.margin).
		WithMarginRight(l.margin).
		WithPreferCSSPageSize(true)
}

var chromiumBinaries = []string{"chromium-browser", "chromium", "google-chrome"}

// browserAllocator attaches to remoteURL when set, otherwise launches a local
// headless chromium.
func browserAllocator(ctx context.Context, remoteURL string) (context.Context, context.CancelFunc, error) {
	if remoteURL != "" {
		allocCtx, cancel := chromedp.NewRemoteAllocator(ctx, remoteURL)
		return allocCtx, cancel, nil
	}
	found := false
	for _, name := range chromiumBinaries {
		if _, err := exec.LookPath(name); err == nil {
			found = true
			break
		}
	}
	if !found {
		return nil, nil, fmt.Errorf("%w: no chromium binary on PATH", ErrPDFDependencyMissing)
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	return allocCtx, cancel, nil
}

// renderPDF loads the page from a data URL and prints it.
func renderPDF(ctx context.Context, html, remoteURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, pdfTimeout)
	defer cancel()

	allocCtx, cancelAlloc, err := browserAllocator(ctx, remoteURL)
	if err != nil {
		return nil, err
	}
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var out []byte
	err = chromedp.Run(tabCtx,
		chromedp.Navigate("data:text/html;charset=utf-8,"+percentEncodeForDataURL(html)),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			out, _, err = letter.print().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print portfolio pdf: %w", err)
	}
	return out, nil
}

func isUnreserved(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' ||
		b == '-' || b == '_' || b == '.' || b == '~'
}

// percentEncodeForDataURL escapes every byte outside the RFC 3986 unreserved
// set. url.QueryEscape is not usable here because it turns spaces into '+'.
func percentEncodeForDataURL(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

// sanitizeFilename turns the hero name into a download name: ASCII letters,
// digits, '-' and '_' survive, spaces become hyphens.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if b.Len() == maxFilenameLen {
			break
		}
		switch {
		case r < 128 && (isUnreserved(byte(r)) && r != '.' && r != '~'):
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "portfolio"
	}
	return b.String()
}
