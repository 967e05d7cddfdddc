package transform

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Rewriter replaces references to a domain by references to another, for a fixed
// set of subdomains: fuel.<old> becomes fuel.<new>.
type Rewriter struct {
	pairs [][2][]byte
}

// NewRewriter returns a Rewriter moving each subdomain of oldDomain to newDomain.
func NewRewriter(oldDomain, newDomain string, subdomains ...string) *Rewriter {
	r := &Rewriter{}
	for _, sub := range subdomains {
		r.pairs = append(r.pairs, [2][]byte{
			[]byte(sub + "." + oldDomain),
			[]byte(sub + "." + newDomain),
		})
	}

	return r
}

// Rewrite returns content with every reference replaced, and whether it changed.
// Bytes outside the references are kept as is.
func (r *Rewriter) Rewrite(content []byte) ([]byte, bool) {
	changed := false

	for _, pair := range r.pairs {
		if !bytes.Contains(content, pair[0]) {
			continue
		}

		content = bytes.ReplaceAll(content, pair[0], pair[1])
		changed = true
	}

	return content, changed
}

// RewriteFile rewrites the file at path in place. The file is only written when its
// content changes, and keeps its mode.
func (r *Rewriter) RewriteFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, errors.Wrapf(ErrStorage, "stat %s: %s", path, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return false, errors.Wrapf(ErrStorage, "reading %s: %s", path, err)
	}

	content, changed := r.Rewrite(content)
	if !changed {
		return false, nil
	}

	if err := os.WriteFile(path, content, info.Mode().Perm()); err != nil {
		return false, errors.Wrapf(ErrStorage, "writing %s: %s", path, err)
	}

	return true, nil
}

// RewriteTree rewrites every regular file under dir and returns how many changed.
func (r *Rewriter) RewriteTree(dir string) (int, error) {
	changed := 0

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(ErrStorage, "walking %s: %s", path, err)
		}

		if !d.Type().IsRegular() {
			return nil
		}

		ok, err := r.RewriteFile(path)
		if err != nil {
			return err
		}

		if ok {
			logger.Tracef("rewrote %s", path)
			changed++
		}

		return nil
	})

	return changed, err
}
