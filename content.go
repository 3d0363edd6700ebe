package chainpost

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const contentExt = ".md"

// ContentStore reads and writes raw markup bodies, one file per slug, under a
// single directory. Distinct slugs never collide in the file namespace, so
// writes for different slugs need no coordination; writes for the same slug
// are prevented by the pipeline's duplicate check.
type ContentStore struct {
	dir string
}

// NewContentStore returns a ContentStore rooted at dir. The directory is
// created lazily on first write.
func NewContentStore(dir string) *ContentStore {
	return &ContentStore{dir: dir}
}

// PathFor returns the metadata-facing content path recorded for slug, e.g.
// "content/my-post.md". The path is stable across deployments; only the base
// name is used to locate the file on disk.
func (s *ContentStore) PathFor(slug string) string {
	return "content/" + slug + contentExt
}

func (s *ContentStore) filePath(contentPath string) string {
	return filepath.Join(s.dir, filepath.Base(contentPath))
}

// Exists reports whether a body file for slug is already present.
func (s *ContentStore) Exists(slug string) bool {
	_, err := os.Stat(s.filePath(s.PathFor(slug)))
	return err == nil
}

// Count returns the number of body files currently stored.
func (s *ContentStore) Count() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), contentExt) {
			n++
		}
	}
	return n, nil
}

// Write persists the body for p at PathFor(p.Slug), prefixed with a generated
// header block carrying the display fields. Failures are fatal to the
// publication pipeline and reported as *ContentWriteError.
func (s *ContentStore) Write(p Post, body string) error {
	path := s.filePath(p.ContentPath)
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &ContentWriteError{Path: path, Err: err}
	}
	data := buildHeader(p) + body + "\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return &ContentWriteError{Path: path, Err: err}
	}
	return nil
}

// Read returns the raw bytes stored at contentPath, header block included.
// A missing file is reported as ErrNotFound.
func (s *ContentStore) Read(contentPath string) ([]byte, error) {
	data, err := os.ReadFile(s.filePath(contentPath))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// buildHeader renders the delimited header block written ahead of every body:
// title, author, date, category, plus image and featured when set.
func buildHeader(p Post) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", p.Title)
	fmt.Fprintf(&b, "author: %q\n", p.Author)
	fmt.Fprintf(&b, "date: %q\n", p.Date)
	fmt.Fprintf(&b, "category: %q\n", p.Category)
	if p.Image != "" {
		fmt.Fprintf(&b, "image: %q\n", p.Image)
	}
	if p.Featured {
		b.WriteString("featured: true\n")
	}
	b.WriteString("---\n\n")
	return b.String()
}
