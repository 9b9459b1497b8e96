package listing

import (
	"bytes"
	"errors"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/net/html"
)

const (
	nameCellClass = "fb-n"
	sizeCellClass = "fb-s"
	parentToken   = ".."
)

// rawAnchor 是扫描阶段收集到的名称列链接，尚未解析为绝对地址。
type rawAnchor struct {
	href string
	text string
	size *uint64
}

// Parse 从目录页 HTML 中提取条目。".." 条目总是合成并置于首位，
// 文档自身以 ".." 开头的链接全部忽略；href 以 "/" 结尾视为文件夹。
// 任何结构性错误都只会让正文降级为空，不会向调用方返回错误。
func Parse(base *url.URL, body []byte) Listing {
	listing := Listing{
		Folders: []Entry{{Kind: KindFolder, Name: ParentName, URL: Parent(base)}},
		Files:   []Entry{},
	}

	anchors, err := scanAnchors(body)
	if err != nil {
		return listing
	}

	for _, a := range anchors {
		if strings.HasPrefix(a.href, parentToken) {
			continue
		}
		absolute, err := ResolveReference(base, a.href)
		if err != nil {
			continue
		}
		name := a.text
		if name == "" {
			name = nameFromHref(a.href)
		}
		if strings.HasSuffix(a.href, "/") {
			listing.Folders = append(listing.Folders, Entry{Kind: KindFolder, Name: name, URL: absolute})
			continue
		}
		listing.Files = append(listing.Files, Entry{Kind: KindFile, Name: name, URL: absolute, SizeBytes: a.size})
	}
	return listing
}

// scanAnchors 用 tokenizer 顺序扫描文档，而非构建 DOM：
// 游离在 <table> 之外的 <td> 片段同样能被识别。
func scanAnchors(body []byte) ([]rawAnchor, error) {
	z := html.NewTokenizer(bytes.NewReader(body))

	var (
		anchors    []rawAnchor
		inName     bool
		inSize     bool
		current    *rawAnchor
		anchorText strings.Builder
		sizeText   strings.Builder
		// rowAnchor 记录当前行最后一个名称链接，供同一行的大小列回填。
		rowAnchor = -1
	)

	closeAnchor := func() {
		if current == nil {
			return
		}
		current.text = strings.TrimSpace(anchorText.String())
		anchors = append(anchors, *current)
		rowAnchor = len(anchors) - 1
		current = nil
		anchorText.Reset()
	}
	closeSize := func() {
		if !inSize {
			return
		}
		inSize = false
		if rowAnchor < 0 {
			sizeText.Reset()
			return
		}
		if size, ok := parseSize(sizeText.String()); ok {
			anchors[rowAnchor].size = &size
		}
		sizeText.Reset()
		rowAnchor = -1
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				closeAnchor()
				closeSize()
				return anchors, nil
			}
			return nil, z.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "tr":
				closeAnchor()
				closeSize()
				inName = false
				rowAnchor = -1
			case "td", "th":
				closeAnchor()
				closeSize()
				classes := attr(tok, "class")
				inName = hasClass(classes, nameCellClass)
				inSize = hasClass(classes, sizeCellClass)
			case "a":
				if !inName {
					continue
				}
				closeAnchor()
				href, ok := attrOK(tok, "href")
				if !ok {
					continue
				}
				current = &rawAnchor{href: href}
				if tok.Type == html.SelfClosingTagToken {
					closeAnchor()
				}
			}

		case html.EndTagToken:
			tok := z.Token()
			switch tok.Data {
			case "a":
				closeAnchor()
			case "td", "th":
				closeAnchor()
				closeSize()
				inName = false
			case "tr", "table":
				closeAnchor()
				closeSize()
				inName = false
				rowAnchor = -1
			}

		case html.TextToken:
			text := string(z.Text())
			if current != nil {
				anchorText.WriteString(text)
			} else if inSize {
				sizeText.WriteString(text)
			}
		}
	}
}

func parseSize(raw string) (uint64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" {
		return 0, false
	}
	size, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, false
	}
	return size, true
}

func attr(tok html.Token, key string) string {
	value, _ := attrOK(tok, key)
	return value
}

func attrOK(tok html.Token, key string) (string, bool) {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(classes, want string) bool {
	for _, c := range strings.Fields(classes) {
		if c == want {
			return true
		}
	}
	return false
}

func nameFromHref(href string) string {
	trimmed := strings.TrimSuffix(href, "/")
	if unescaped, err := url.PathUnescape(trimmed); err == nil {
		trimmed = unescaped
	}
	return path.Base(trimmed)
}
