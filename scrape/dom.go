package scrape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// DOM is an Extractor that tokenizes the page with golang.org/x/net/html.
// Hidden inputs are matched by attribute regardless of order or quoting, and
// globals are only searched for inside <script> elements.
type DOM struct{}

// NewDOM returns a DOM extractor
func NewDOM() *DOM {
	return &DOM{}
}

func (d *DOM) HiddenInput(page []byte, name string) (string, error) {
	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", fmt.Errorf("%w: input %q", ErrNotFound, name)
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "input" || attr(tok, "name") != name {
				continue
			}
			if v := attr(tok, "value"); v != "" {
				return v, nil
			}
		}
	}
}

func (d *DOM) GlobalJSON(page []byte, name string) (json.RawMessage, error) {
	re := regexp.MustCompile(globalPattern(name))

	z := html.NewTokenizer(bytes.NewReader(page))
	inScript := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return nil, fmt.Errorf("%w: window.%s", ErrNotFound, name)
		case html.StartTagToken:
			inScript = z.Token().Data == "script"
		case html.EndTagToken:
			inScript = false
		case html.TextToken:
			if !inScript {
				continue
			}
			if m := re.FindSubmatch(z.Text()); m != nil {
				return decodeGlobal(name, m[1])
			}
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
