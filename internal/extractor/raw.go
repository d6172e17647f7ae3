package extractor

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
)

// ExtractTextRaw is a fallback PDF text extractor that works directly with
// the raw PDF byte stream, for files the structured library mis-decodes.
//
// It finds content streams with text operators (Tj, TJ), decodes both
// literal strings (...) and hex strings <...>, and uses text-positioning
// operators (Td/TD) to reconstruct line breaks. Bespoke CID font mappings
// are not decoded here; text that needs them fails the readability gate
// and surfaces as a document error instead of garbage.
func ExtractTextRaw(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	streams := extractStreams(data)
	if len(streams) == 0 {
		return nil, nil
	}

	var allText []string
	for _, stream := range streams {
		decompressed := tryDecompress(stream)
		text := extractTextFromStream(decompressed)
		if text != "" {
			allText = append(allText, text)
		}
	}
	if len(allText) == 0 {
		return nil, nil
	}
	return mergePageText(allText), nil
}

// extractStreams finds all stream...endstream blocks in the PDF.
func extractStreams(data []byte) [][]byte {
	var streams [][]byte
	streamMarker := []byte("stream")
	endMarker := []byte("endstream")

	offset := 0
	for offset < len(data) {
		idx := bytes.Index(data[offset:], streamMarker)
		if idx < 0 {
			break
		}
		start := offset + idx + len(streamMarker)

		// Skip \r\n or \n after "stream"
		if start < len(data) && data[start] == '\r' {
			start++
		}
		if start < len(data) && data[start] == '\n' {
			start++
		}

		endIdx := bytes.Index(data[start:], endMarker)
		if endIdx < 0 {
			break
		}

		streamData := data[start : start+endIdx]
		if len(streamData) > 0 {
			streams = append(streams, streamData)
		}
		offset = start + endIdx + len(endMarker)
	}
	return streams
}

// tryDecompress attempts zlib decompression; returns original data if it fails.
func tryDecompress(data []byte) []byte {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return data
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return data
	}
	return out
}

var (
	hexStringRe = regexp.MustCompile(`<([0-9A-Fa-f]+)>`)
	litStringRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)
	tdMoveRe    = regexp.MustCompile(`([\d.\-]+)\s+([\d.\-]+)\s+T[dD*]`)
)

// extractTextFromStream parses one content stream into text with line breaks.
func extractTextFromStream(data []byte) string {
	content := string(data)
	if !strings.Contains(content, "Tj") && !strings.Contains(content, "TJ") &&
		!strings.Contains(content, "BT") {
		return ""
	}

	var lines []string
	for _, block := range splitBTBlocks(content) {
		lines = append(lines, processTextBlock(block)...)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// splitBTBlocks extracts content between BT and ET operators.
func splitBTBlocks(content string) []string {
	var blocks []string
	remaining := content
	for {
		btIdx := strings.Index(remaining, "BT")
		if btIdx < 0 {
			break
		}
		etIdx := strings.Index(remaining[btIdx:], "ET")
		if etIdx < 0 {
			break
		}
		blocks = append(blocks, remaining[btIdx:btIdx+etIdx+2])
		remaining = remaining[btIdx+etIdx+2:]
	}
	return blocks
}

// processTextBlock walks a BT...ET block line by line: Td/TD moves with a
// negative Y delta start a new output line, show operators append to the
// current one.
func processTextBlock(block string) []string {
	var lines []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			lines = append(lines, s)
		}
		current.Reset()
	}

	for _, op := range strings.Split(block, "\n") {
		op = strings.TrimSpace(op)
		if op == "" {
			continue
		}
		if m := tdMoveRe.FindStringSubmatch(op); m != nil {
			if dy, err := strconv.ParseFloat(m[2], 64); err == nil && dy < 0 {
				flush()
			}
		}
		if strings.Contains(op, "Tj") || strings.Contains(op, "TJ") || strings.Contains(op, "'") {
			for _, m := range litStringRe.FindAllStringSubmatch(op, -1) {
				current.WriteString(decodeLiteral(m[1]))
			}
			for _, m := range hexStringRe.FindAllStringSubmatch(op, -1) {
				current.WriteString(decodeHexString(m[1]))
			}
			current.WriteString(" ")
		}
	}
	flush()
	return lines
}

// decodeLiteral unescapes a PDF literal string.
func decodeLiteral(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r', 'f', 'b':
			// formatting escapes carry no text
		case '(', ')', '\\':
			b.WriteByte(s[i])
		default:
			// octal escape \ddd
			if s[i] >= '0' && s[i] <= '7' {
				end := i
				for end < len(s) && end-i < 3 && s[end] >= '0' && s[end] <= '7' {
					end++
				}
				if v, err := strconv.ParseUint(s[i:end], 8, 16); err == nil && v < 256 {
					b.WriteByte(byte(v))
				}
				i = end - 1
			} else {
				b.WriteByte(s[i])
			}
		}
	}
	return b.String()
}

// decodeHexString decodes a PDF hex string, treating 4-digit groups as
// UTF-16BE when that yields printable text (the common Identity-H layout).
func decodeHexString(s string) string {
	if len(s)%2 == 1 {
		s += "0"
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ""
	}

	if len(raw)%2 == 0 {
		codes := make([]uint16, 0, len(raw)/2)
		for i := 0; i+1 < len(raw); i += 2 {
			codes = append(codes, uint16(raw[i])<<8|uint16(raw[i+1]))
		}
		decoded := string(utf16.Decode(codes))
		if isMostlyPrintable(decoded) {
			return decoded
		}
	}

	// Fall back to single-byte interpretation.
	return string(raw)
}

func isMostlyPrintable(s string) bool {
	if s == "" {
		return false
	}
	printable := 0
	total := 0
	for _, r := range s {
		total++
		if r >= 0x20 && r < 0x7F {
			printable++
		}
	}
	return float64(printable)/float64(total) > 0.8
}

// mergePageText joins per-stream text fragments into page-sized chunks.
// Raw streams do not map 1:1 to pages; fragments that look like
// continuations (no form-feed, short) are folded into the previous chunk.
func mergePageText(fragments []string) []string {
	var pages []string
	var current strings.Builder
	for _, frag := range fragments {
		if current.Len() > 0 && current.Len()+len(frag) > 4096 {
			pages = append(pages, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(frag)
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		pages = append(pages, s)
	}
	return pages
}
