// Package grouper clusters discovered paths by (parent directory,
// lowercased stem) and classifies each cluster into one primary file and
// zero-or-more related files (sidecars, JPEG previews).
package grouper

import (
	"path/filepath"
	"sort"
	"strings"
)

// Related mirrors types.RelatedFile but stays free of the types package's
// serialisation concerns while grouping is in progress.
type Related struct {
	Path string
	Name string
	Type string // "sidecar" or "jpeg-preview"
}

const (
	TypeSidecar     = "sidecar"
	TypeJPEGPreview = "jpeg-preview"
)

var rawExtensions = map[string]bool{
	"arw": true, "cr2": true, "cr3": true, "nef": true, "dng": true,
	"raf": true, "orf": true, "rw2": true, "pef": true,
}

var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true,
	"heic": true, "heif": true, "tiff": true, "tif": true, "bmp": true,
}

var sidecarExtensions = map[string]bool{
	"xmp": true, "xml": true,
}

// Primary is one classified (parent, stem) cluster: a primary file plus its
// related files.
type Primary struct {
	Path          string
	ThumbnailPath string // empty if absent
	Related       []Related
}

type clusterKey struct {
	parent string
	stem   string
}

func keyOf(path string) clusterKey {
	base := filepath.Base(path)
	return clusterKey{
		parent: filepath.Dir(path),
		stem:   strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base))),
	}
}

func extOf(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Group clusters paths by (parent, lowercased stem) and classifies each
// cluster into a Primary. Files with no primary in their cluster (stray
// sidecars, unrecognised extensions) produce no output.
//
// Classification iterates a globally sorted view of paths: lexical order
// first (the parallel walker emits paths in whatever order its goroutines
// finish, so classification, and with it duplicate attribution, would
// otherwise vary across runs), then a stable raw-first partition so a raw
// always claims its image sibling as a jpeg-preview before that image is
// considered for primary status on its own.
func Group(paths []string) []Primary {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)
	sort.SliceStable(sorted, func(i, j int) bool {
		iRaw := rawExtensions[extOf(sorted[i])]
		jRaw := rawExtensions[extOf(sorted[j])]
		return iRaw && !jRaw
	})

	clusters := make(map[clusterKey][]string)
	for _, p := range sorted {
		key := keyOf(p)
		clusters[key] = append(clusters[key], p)
	}

	claimed := make(map[string]bool)
	var primaries []Primary
	for _, p := range sorted {
		if claimed[p] {
			continue
		}
		ext := extOf(p)

		if sidecarExtensions[ext] {
			continue // never primary; claimed by its primary below
		}
		isRaw := rawExtensions[ext]
		isImage := imageExtensions[ext]
		if !isRaw && !isImage {
			continue // unrecognised extension: neither processed nor primary
		}

		members := clusters[keyOf(p)]
		if isImage && !isRaw && hasRawSibling(members) {
			continue // claimed by the raw sibling
		}

		primary := Primary{Path: p}
		claimed[p] = true
		if !isRaw {
			primary.ThumbnailPath = p
		}

		for _, sib := range members {
			if sib == p || claimed[sib] {
				continue
			}
			sibExt := extOf(sib)
			switch {
			case sidecarExtensions[sibExt]:
				primary.Related = append(primary.Related, Related{
					Path: sib, Name: filepath.Base(sib), Type: TypeSidecar,
				})
				claimed[sib] = true
			case isRaw && imageExtensions[sibExt]:
				primary.Related = append(primary.Related, Related{
					Path: sib, Name: filepath.Base(sib), Type: TypeJPEGPreview,
				})
				claimed[sib] = true
				if primary.ThumbnailPath == "" {
					primary.ThumbnailPath = sib
				}
			}
		}

		primaries = append(primaries, primary)
	}

	return primaries
}

func hasRawSibling(members []string) bool {
	for _, m := range members {
		if rawExtensions[extOf(m)] {
			return true
		}
	}
	return false
}
