// Package pathresolve reconstructs a file's full path by walking the parent file references recorded in FILE_NAME
// attributes, from a leaf record back up to the volume root.
package pathresolve

import (
	"github.com/go-forensics/ntfsrecover/mft"
)

// Resolve walks the FILE_NAME parent chain starting at index[i], returning the ordered path components from the
// volume root down to i (the root's own synthetic "." entry is not included). The walk is bounded by len(index)
// steps: since each step strictly follows a parent reference and a well-formed volume's parent chain has no
// cycles, a true root is reached in at most len(index) hops, and hitting the bound without terminating signals an
// orphan rather than looping forever.
//
// A record missing entirely, or present but lacking an unnamed FILE_NAME attribute, orphans the walk: resolution
// stops where it is, orphaned is true, and the path collected so far (which always includes the orphaned record's
// own name, if it had one) is returned so the caller can still place the file somewhere recognizable.
func Resolve(index []*mft.Record, i int) (path []string, orphaned bool) {
	visited := 0
	for {
		if visited >= len(index) {
			return path, true
		}
		visited++

		if i < 0 || i >= len(index) || index[i] == nil {
			return path, true
		}

		fileNameAttr, ok := index[i].Find("filename", "")
		if !ok {
			return path, true
		}

		raw, err := fileNameAttr.Producer.Produce(mft.Source{})
		if err != nil {
			return path, true
		}

		fn, err := mft.ParseFileName(raw)
		if err != nil {
			return path, true
		}

		if fn.Name == "." {
			return path, false
		}

		path = prepend(path, fn.Name)
		i = int(fn.ParentDirectory.RecordNumberMasked())
	}
}

func prepend(path []string, name string) []string {
	result := make([]string, 0, len(path)+1)
	result = append(result, name)
	result = append(result, path...)
	return result
}
