package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// odfContentPath is the main content part of an OpenDocument package.
const odfContentPath = "content.xml"

// odfTextNS is the OpenDocument text namespace. Undeclared "text:" prefixes are
// accepted as well.
const odfTextNS = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"

// extractODT returns the body of an OpenDocument text document as one page.
func extractODT(content []byte) ([]string, error) {
	return extractODF(content, "ODT")
}

// extractODP returns the text of an OpenDocument presentation as one page.
func extractODP(content []byte) ([]string, error) {
	return extractODF(content, "ODP")
}

// extractODS returns the cell text of an OpenDocument spreadsheet as one page.
func extractODS(content []byte) ([]string, error) {
	return extractODF(content, "ODS")
}

func extractODF(content []byte, kind string) ([]string, error) {
	zr, err := openZip(content, kind)
	if err != nil {
		return nil, err
	}
	contentXML, err := readZipEntry(zr, odfContentPath)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", kind, err)
	}
	if contentXML == nil {
		return nil, fmt.Errorf("extract %s: %s not found", kind, odfContentPath)
	}
	text, err := odfText(contentXML)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", kind, err)
	}
	return []string{text}, nil
}

func isODFText(n xml.Name) bool {
	return n.Space == "text" || n.Space == odfTextNS
}

// odfText walks content.xml in document order. Each outermost text:p, text:h or
// stray text:span is one block holding all character data beneath it, markup
// included; blocks are trimmed and joined with single spaces.
func odfText(contentXML []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(contentXML))
	var (
		out   strings.Builder
		block strings.Builder
		depth int
	)
	flush := func() {
		part := strings.TrimSpace(block.String())
		block.Reset()
		if part == "" {
			return
		}
		if out.Len() > 0 {
			out.WriteByte(' ')
		}
		out.WriteString(part)
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", odfContentPath, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !isODFText(t.Name) {
				continue
			}
			switch t.Name.Local {
			case "p", "h", "span":
				depth++
			case "s":
				if depth > 0 {
					block.WriteString(strings.Repeat(" ", odfSpaceCount(t)))
				}
			case "tab":
				if depth > 0 {
					block.WriteByte('\t')
				}
			case "line-break":
				if depth > 0 {
					block.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if !isODFText(t.Name) || depth == 0 {
				continue
			}
			switch t.Name.Local {
			case "p", "h", "span":
				depth--
				if depth == 0 {
					flush()
				}
			}
		case xml.CharData:
			if depth > 0 {
				block.Write(t)
			}
		}
	}
	return out.String(), nil
}

// odfSpaceCount reads text:c on a text:s element; absent means one space.
func odfSpaceCount(el xml.StartElement) int {
	for _, a := range el.Attr {
		if a.Name.Local != "c" {
			continue
		}
		if n, err := strconv.Atoi(a.Value); err == nil && n > 0 {
			return n
		}
	}
	return 1
}
