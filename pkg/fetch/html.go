package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"

	logging "github.com/KonishchevDmitry/go-easy-logging"
	"github.com/PuerkitoBio/goquery"
	"github.com/samber/mo"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

var htmlMediaTypes = []string{"text/html", "application/xhtml+xml"}

func HTML(ctx context.Context, url *url.URL, options ...Option) (*goquery.Document, error) {
	return fetch(ctx, url, htmlMediaTypes, func(body io.Reader) (*goquery.Document, error) {
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		return parseHTML(ctx, url, data)
	}, options...)
}

func parseHTML(ctx context.Context, url *url.URL, data []byte) (*goquery.Document, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	encoding, ok := getHTMLCharset(ctx, doc, url)
	if !ok || encoding == "utf-8" || encoding == "utf8" {
		return goquery.NewDocumentFromNode(doc), nil
	}

	charsetReader, err := charset.NewReaderLabel(encoding, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("the document has an unknown charset encoding: %q", encoding)
	}

	data, err = io.ReadAll(charsetReader)
	if err != nil {
		return nil, fmt.Errorf("failed to decode the document using %s charset: %w", encoding, err)
	}

	doc, err = html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	return goquery.NewDocumentFromNode(doc), nil
}

// <meta charset> wins over <meta http-equiv="Content-Type"> regardless of their order.
func getHTMLCharset(ctx context.Context, doc *html.Node, uri *url.URL) (string, bool) {
	node, ok := findHTMLNode(doc, "html")
	if ok {
		node, ok = findHTMLNode(node, "head")
	}
	if !ok {
		return "", false
	}

	var (
		charset       mo.Option[string]
		isHTTPCharset = true
	)

	for node := node.FirstChild; node != nil; node = node.NextSibling {
		if node.Type != html.ElementNode || node.Data != "meta" {
			continue
		}

		attrs := make(map[string]string)
		for _, attr := range node.Attr {
			attrs[strings.ToLower(attr.Key)] = strings.ToLower(attr.Val)
		}

		if attrs["http-equiv"] == "content-type" {
			if _, params, err := mime.ParseMediaType(attrs["content"]); err != nil {
				logging.L(ctx).Warnf(
					`Got an invalid content type of %s from <meta http-equiv="Content-Type"> tag: %q.`,
					uri, attrs["content"])
			} else if encoding := params["charset"]; encoding != "" && isHTTPCharset {
				charset = mo.Some(encoding)
			}
		}

		if encoding := attrs["charset"]; encoding != "" {
			charset = mo.Some(encoding)
			isHTTPCharset = false
		}
	}

	return charset.Get()
}

func findHTMLNode(node *html.Node, name string) (*html.Node, bool) {
	for node = node.FirstChild; node != nil; node = node.NextSibling {
		if node.Type == html.ElementNode && node.Data == name {
			return node, true
		}
	}
	return nil, false
}
