package extractor

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/pesobook/pesobook/internal/models"
)

// ExtractDocument reads a statement PDF and returns its text content per
// page plus the file fingerprint used for re-import rejection. It tries
// multiple extraction methods to handle different PDF encodings; if the
// structured library fails it falls back to raw stream parsing and then to
// the external pdftotext command (poppler-utils). Password-protected files
// are opened with the supplied password; password and corruption failures
// come back as *DocumentError so the caller can re-prompt.
func ExtractDocument(path, password string) (*models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DocumentError{Kind: KindCorruptFile, Path: path, Err: err}
	}
	fingerprint := fmt.Sprintf("%x", sha256.Sum256(data))

	pages, libErr := extractWithLibrary(path, password)
	if libErr == nil && isReadableText(pages) {
		return newDocument(pages, fingerprint), nil
	}
	if docErr, ok := libErr.(*DocumentError); ok && docErr.Kind != KindCorruptFile {
		// Password problems are definitive; no fallback can recover them.
		return nil, docErr
	}

	// Library failed or returned garbage. Encrypted files cannot go through
	// the raw-stream path, so only unencrypted documents reach here usefully.
	if password == "" {
		rawPages, rawErr := ExtractTextRaw(path)
		if rawErr == nil && isReadableText(rawPages) {
			return newDocument(rawPages, fingerprint), nil
		}
	}

	popplerPages, popplerErr := extractWithPdftotext(path, password)
	if popplerErr == nil && isReadableText(popplerPages) {
		return newDocument(popplerPages, fingerprint), nil
	}

	if libErr != nil {
		if docErr, ok := libErr.(*DocumentError); ok {
			return nil, docErr
		}
		return nil, &DocumentError{Kind: KindCorruptFile, Path: path, Err: libErr}
	}
	return nil, &DocumentError{Kind: KindUnreadable, Path: path}
}

func newDocument(pages []string, fingerprint string) *models.Document {
	return &models.Document{
		Pages:       pages,
		RawText:     strings.Join(pages, "\n\n"),
		Fingerprint: fingerprint,
	}
}

// classifyOpenErr maps a library open failure to the document taxonomy.
// The pdf library reports encryption problems in the error text; there is
// no exported sentinel to match on.
func classifyOpenErr(path, password string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "password") || strings.Contains(msg, "encrypt") {
		if password == "" {
			return &DocumentError{Kind: KindPasswordRequired, Path: path, Err: err}
		}
		return &DocumentError{Kind: KindWrongPassword, Path: path, Err: err}
	}
	return &DocumentError{Kind: KindCorruptFile, Path: path, Err: err}
}

// textQuality returns the ratio of basic ASCII readable characters (a-z,
// A-Z, 0-9, common punctuation, whitespace) to total characters. Uses a
// strict ASCII check — unicode.IsLetter() is too broad and matches accented
// characters that appear in garbage from identity-encoded fonts.
func textQuality(pages []string) float64 {
	total := 0
	readable := 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') || unicode.IsSpace(r) ||
				r == '.' || r == ',' || r == '-' || r == '/' || r == ':' ||
				r == ';' || r == '(' || r == ')' || r == '\'' || r == '"' ||
				r == '₱' || r == '$' || r == '%' || r == '&' || r == '#' ||
				r == '@' || r == '!' || r == '?' || r == '+' || r == '*' ||
				r == '=' || r == '\t' {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// commonWords that appear in virtually all e-wallet and bank statements.
// If the extracted text contains none of these, it's likely garbage.
var commonWords = []string{
	"account", "balance", "date", "payment", "statement", "transaction",
	"total", "amount", "credit", "debit", "reference", "wallet",
	"transfer", "cash in", "cash out", "period", "page", "description",
}

func containsCommonWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range commonWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// isReadableText checks that pages contain enough text, that it's actually
// readable (not binary garbage), AND that it contains recognizable words.
// Requires >50 chars, >60% readable ASCII characters, and a common word.
func isReadableText(pages []string) bool {
	if totalTextLen(pages) <= 50 {
		return false
	}
	if textQuality(pages) <= 0.6 {
		return false
	}
	return containsCommonWords(pages)
}

// IsReadableText is the exported version for use by other packages.
func IsReadableText(pages []string) bool {
	return isReadableText(pages)
}

// extractWithPdftotext uses the external pdftotext command from
// poppler-utils as a fallback for PDFs the Go library cannot handle.
func extractWithPdftotext(path, password string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %v", err)
	}

	baseArgs := []string{"-layout"}
	if password != "" {
		baseArgs = append(baseArgs, "-upw", password)
	}

	numPages := 1
	if out, err := exec.Command("pdfinfo", path).Output(); err == nil {
		for _, line := range strings.Split(string(out), "\n") {
			if strings.HasPrefix(line, "Pages:") {
				if n, perr := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:"))); perr == nil && n > 0 {
					numPages = n
				}
			}
		}
	}

	// Extract each page separately to preserve page boundaries.
	var pages []string
	for i := 1; i <= numPages; i++ {
		pageStr := strconv.Itoa(i)
		args := append(append([]string{}, baseArgs...), "-f", pageStr, "-l", pageStr, path, "-")
		out, err := exec.Command("pdftotext", args...).Output()
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(string(out)); text != "" {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		args := append(append([]string{}, baseArgs...), path, "-")
		out, err := exec.Command("pdftotext", args...).Output()
		if err != nil {
			return nil, fmt.Errorf("pdftotext failed: %v", err)
		}
		if text := strings.TrimSpace(string(out)); text != "" {
			return []string{text}, nil
		}
		return nil, fmt.Errorf("pdftotext produced no output")
	}
	return pages, nil
}

// extractWithLibrary uses the ledongthuc/pdf library with multiple methods.
func extractWithLibrary(path, password string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	f, openErr := os.Open(path)
	if openErr != nil {
		return nil, &DocumentError{Kind: KindCorruptFile, Path: path, Err: openErr}
	}
	defer f.Close()

	st, statErr := f.Stat()
	if statErr != nil {
		return nil, &DocumentError{Kind: KindCorruptFile, Path: path, Err: statErr}
	}

	r, readerErr := pdf.NewReaderEncrypted(f, st.Size(), func() string { return password })
	if readerErr != nil {
		return nil, classifyOpenErr(path, password, readerErr)
	}

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	// Method 1: GetTextByRow (best layout preservation)
	pages = extractByRow(r, numPages)
	if isReadableText(pages) {
		return pages, nil
	}

	// Method 2: Page.Content() with coordinate-based row reconstruction
	pages = extractByContent(r, numPages)
	if isReadableText(pages) {
		return pages, nil
	}

	// Method 3: Page.GetPlainText with font map
	pages = extractByPagePlainText(r, numPages)
	if isReadableText(pages) {
		return pages, nil
	}

	// Method 4: Reader.GetPlainText (different extraction path)
	plainText := extractByReaderPlainText(r)
	if isReadableText([]string{plainText}) {
		return []string{plainText}, nil
	}

	return pages, nil
}

// Method 1: GetTextByRow — best for well-structured PDFs
func extractByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// Method 2: Page.Content() — lower-level access to text objects.
// Groups text pieces by Y coordinate to reconstruct rows, then sorts by X.
func extractByContent(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		if len(content.Text) == 0 {
			continue
		}

		type textItem struct {
			x float64
			s string
		}
		rowMap := make(map[int][]textItem)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			yKey := int(math.Round(t.Y))
			rowMap[yKey] = append(rowMap[yKey], textItem{x: t.X, s: t.S})
		}

		// PDF Y goes bottom-to-top, so rows sort descending.
		yKeys := make([]int, 0, len(rowMap))
		for y := range rowMap {
			yKeys = append(yKeys, y)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(yKeys)))

		var lines []string
		for _, y := range yKeys {
			items := rowMap[y]
			sort.Slice(items, func(a, b int) bool {
				return items[a].x < items[b].x
			})

			var parts []string
			var prevX float64
			for j, item := range items {
				if j > 0 && item.x-prevX > 15 {
					// Large gap between text items — column separator
					parts = append(parts, "  ")
				}
				parts = append(parts, item.s)
				prevX = item.x
			}
			line := strings.TrimSpace(strings.Join(parts, ""))
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// Method 3: Page.GetPlainText with fonts
func extractByPagePlainText(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		fontNames := page.Fonts()
		fonts := make(map[string]*pdf.Font)
		for _, name := range fontNames {
			f := page.Font(name)
			fonts[name] = &f
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return pages
}

// Method 4: Reader.GetPlainText — whole-document extraction
func extractByReaderPlainText(r *pdf.Reader) string {
	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}
