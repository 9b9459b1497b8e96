package listing

import (
	"net/url"
	"testing"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url %q: %v", raw, err)
	}
	return u
}

func TestParseExampleListing(t *testing.T) {
	body := []byte(`<table>
<tr><td class="fb-n"><a href="Sub1/">Sub1</a></td></tr>
<tr><td class="fb-n"><a href="movie.mp4">movie.mp4</a></td></tr>
</table>`)

	got := Parse(mustURL(t, "http://host/Movies/"), body)

	wantFolders := []Entry{
		{Kind: KindFolder, Name: "..", URL: "http://host/"},
		{Kind: KindFolder, Name: "Sub1", URL: "http://host/Movies/Sub1/"},
	}
	wantFiles := []Entry{
		{Kind: KindFile, Name: "movie.mp4", URL: "http://host/Movies/movie.mp4"},
	}
	if !got.Equal(Listing{Folders: wantFolders, Files: wantFiles}) {
		t.Fatalf("unexpected listing: %+v", got)
	}
}

func TestParseBareCellsOutsideTable(t *testing.T) {
	body := []byte(`<td class="fb-n"><a href="Sub1/">Sub1</a></td>
<td class="fb-n"><a href="movie.mp4">movie.mp4</a></td>`)

	got := Parse(mustURL(t, "http://host/Movies/"), body)
	if len(got.Folders) != 2 || len(got.Files) != 1 {
		t.Fatalf("游离 td 片段应被识别，得到 %+v", got)
	}
}

func TestParseEmptyDocumentsYieldParentOnly(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"no rows":      "<html><body><table></table></body></html>",
		"other anchor": `<a href="elsewhere/">not a row</a>`,
		"garbage":      "<<<td class=fb-n <a href=",
		"unclosed":     `<td class="fb-n"><a`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			got := Parse(mustURL(t, "http://host/a/b/"), []byte(body))
			if got.Len() != 1 {
				t.Fatalf("expected only the parent entry, got %+v", got)
			}
			parent, ok := got.Parent()
			if !ok || parent.URL != "http://host/a/" {
				t.Fatalf("unexpected parent %+v", parent)
			}
		})
	}
}

func TestParseSkipsParentAnchors(t *testing.T) {
	body := []byte(`<table>
<tr><td class="fb-n"><a href="../">Parent Directory</a></td></tr>
<tr><td class="fb-n"><a href="../../other/">Up twice</a></td></tr>
<tr><td class="fb-n"><a href="..">..</a></td></tr>
<tr><td class="fb-n"><a href="keep/">keep</a></td></tr>
</table>`)

	got := Parse(mustURL(t, "http://host/x/y/"), body)
	if len(got.Folders) != 2 {
		t.Fatalf("expected synthesized parent plus one folder, got %+v", got.Folders)
	}
	if got.Folders[0].Name != ".." || got.Folders[0].URL != "http://host/x/" {
		t.Fatalf("parent must be synthesized first, got %+v", got.Folders[0])
	}
	if got.Folders[1].Name != "keep" {
		t.Fatalf("unexpected folder %+v", got.Folders[1])
	}
}

func TestParseKeepsDocumentOrderAndSizes(t *testing.T) {
	body := []byte(`<table>
<tr><td class="fb-n"><a href="b.mkv">b.mkv</a></td><td class="fb-s">1.5 GB</td></tr>
<tr><td class="fb-n"><a href="z/">z</a></td><td class="fb-s">-</td></tr>
<tr><td class="fb-n"><a href="a.mkv">a.mkv</a></td><td class="fb-s">-</td></tr>
<tr><td class="fb-n"><a href="a/">a</a></td></tr>
<tr><td class="fb-n"><a href="c.srt">c.srt</a></td><td class="fb-s">2048</td></tr>
</table>`)

	got := Parse(mustURL(t, "http://host/"), body)
	if len(got.Folders) != 3 || got.Folders[1].Name != "z" || got.Folders[2].Name != "a" {
		t.Fatalf("folders out of document order: %+v", got.Folders)
	}
	if len(got.Files) != 3 {
		t.Fatalf("expected three files, got %+v", got.Files)
	}
	if got.Files[0].Name != "b.mkv" || got.Files[0].SizeBytes == nil || *got.Files[0].SizeBytes != 1500000000 {
		t.Fatalf("unexpected first file %+v", got.Files[0])
	}
	if got.Files[1].SizeBytes != nil {
		t.Fatalf("dash size should stay unknown, got %d", *got.Files[1].SizeBytes)
	}
	if got.Files[2].SizeBytes == nil || *got.Files[2].SizeBytes != 2048 {
		t.Fatalf("unexpected raw byte size %+v", got.Files[2])
	}
}

func TestParsePreservesPercentEncodingAndEntities(t *testing.T) {
	body := []byte(`<td class="fb-n"><a href="My%20Show%20%231/">My Show &amp; Friends</a></td>
<td class="fb-n"><a href="/abs/file%2Bname.mp4"><span>file+name</span>.mp4</a></td>`)

	got := Parse(mustURL(t, "http://host/TV%20Shows/"), body)
	if len(got.Folders) != 2 {
		t.Fatalf("unexpected folders %+v", got.Folders)
	}
	if got.Folders[1].URL != "http://host/TV%20Shows/My%20Show%20%231/" {
		t.Fatalf("percent-encoding lost: %s", got.Folders[1].URL)
	}
	if got.Folders[1].Name != "My Show & Friends" {
		t.Fatalf("entity should be decoded in name, got %q", got.Folders[1].Name)
	}
	if got.Files[0].URL != "http://host/abs/file%2Bname.mp4" || got.Files[0].Name != "file+name.mp4" {
		t.Fatalf("unexpected file %+v", got.Files[0])
	}
}

func TestParseIgnoresAnchorsOutsideNameCells(t *testing.T) {
	body := []byte(`<table>
<tr><td class="fb-i"><a href="icon.png">icon</a></td><td class="fb-n"><a href="show/">show</a></td></tr>
<tr><td class="fb-n other"><a href="ep1.mkv"></a></td></tr>
<tr><td class="fb-n"><a name="anchor-without-href">x</a></td></tr>
</table>`)

	got := Parse(mustURL(t, "http://host/"), body)
	if len(got.Folders) != 2 || got.Folders[1].Name != "show" {
		t.Fatalf("unexpected folders %+v", got.Folders)
	}
	if len(got.Files) != 1 || got.Files[0].Name != "ep1.mkv" {
		t.Fatalf("empty anchor text should fall back to href, got %+v", got.Files)
	}
}
