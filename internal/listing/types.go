package listing

// Kind 区分目录项是文件夹还是文件。
type Kind string

const (
	KindFolder Kind = "folder"
	KindFile   Kind = "file"
)

// ParentName 是合成的上级目录条目名称，始终位于 Folders 首位。
const ParentName = ".."

// Entry 描述目录页中的一个条目，URL 离开解析器时必然是绝对地址。
type Entry struct {
	Kind      Kind    `json:"kind" yaml:"kind"`
	Name      string  `json:"name" yaml:"name"`
	URL       string  `json:"url" yaml:"url"`
	SizeBytes *uint64 `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
}

// IsFolder 返回条目是否为文件夹。
func (e Entry) IsFolder() bool {
	return e.Kind == KindFolder
}

// Listing 是一次目录解析的结果：先文件夹（".." 在首位），后文件，组内保持文档顺序。
// 构造完成后视为不可变，各层缓存时均保存 Clone。
type Listing struct {
	Folders []Entry `json:"folders"`
	Files   []Entry `json:"files"`
}

// Entries 按 Folders → Files 的顺序返回全部条目，便于展示层按索引选择。
func (l Listing) Entries() []Entry {
	out := make([]Entry, 0, len(l.Folders)+len(l.Files))
	out = append(out, l.Folders...)
	out = append(out, l.Files...)
	return out
}

// Parent 返回合成的 ".." 条目；空 Listing 返回 false。
func (l Listing) Parent() (Entry, bool) {
	if len(l.Folders) == 0 || l.Folders[0].Name != ParentName {
		return Entry{}, false
	}
	return l.Folders[0], true
}

// Len 返回条目总数（含 ".."）。
func (l Listing) Len() int {
	return len(l.Folders) + len(l.Files)
}

// Clone 深拷贝 Listing，包括 SizeBytes 指针。
func (l Listing) Clone() Listing {
	return Listing{
		Folders: cloneEntries(l.Folders),
		Files:   cloneEntries(l.Files),
	}
}

// Equal 比较两个 Listing 的条目、顺序与大小是否一致。
func (l Listing) Equal(other Listing) bool {
	return entriesEqual(l.Folders, other.Folders) && entriesEqual(l.Files, other.Files)
}

func cloneEntries(in []Entry) []Entry {
	if in == nil {
		return nil
	}
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = e
		if e.SizeBytes != nil {
			size := *e.SizeBytes
			out[i].SizeBytes = &size
		}
	}
	return out
}

func entriesEqual(a, b []Entry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind || a[i].Name != b[i].Name || a[i].URL != b[i].URL {
			return false
		}
		switch {
		case a[i].SizeBytes == nil && b[i].SizeBytes == nil:
		case a[i].SizeBytes == nil || b[i].SizeBytes == nil:
			return false
		case *a[i].SizeBytes != *b[i].SizeBytes:
			return false
		}
	}
	return true
}
