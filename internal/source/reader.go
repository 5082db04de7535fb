// =============================================================================
// Meter Aggregator - Source Reader
// =============================================================================
//
// This module opens a directory of meter-export files and parses each file
// into a generic element tree, independent of the schema dialect.
//
// SUPPORTED DIALECTS:
//   Periodic (register export):
//     <ESLBillingData>
//       <Meter>
//         <TimePeriod end="2024-03-31T00:00:00">
//           <ValueRow obis="1-1:1.8.1" value="1234.5"/>
//         </TimePeriod>
//       </Meter>
//     </ESLBillingData>
//
//   Interval (load profile, namespace http://www.strom.ch):
//     <rsm:ValidatedMeteredData_12 xmlns:rsm="http://www.strom.ch">
//       ... <rsm:DocumentID>..._ID742</rsm:DocumentID>
//       ... <rsm:StartDateTime>2024-03-01T00:00:00Z</rsm:StartDateTime>
//       ... <rsm:Observation><rsm:Volume>0.25</rsm:Volume></rsm:Observation>
//     </rsm:ValidatedMeteredData_12>
//
// The dialect is inferred from which elements and namespace are present.
//
// =============================================================================

package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"

	"github.com/ginjaninja78/meteragg/internal/types"
)

// IntervalNamespace is the namespace URI of the interval load-profile dialect.
const IntervalNamespace = "http://www.strom.ch"

// periodElement is the element whose presence marks the periodic dialect.
const periodElement = "TimePeriod"

// =============================================================================
// DOCUMENT STRUCTURE
// =============================================================================

// Document is one parsed meter-export file. It is created during a directory
// scan, read by exactly one extractor, and never mutated.
type Document struct {
	// Path is the file the document was read from.
	Path string

	// Dialect is the detected schema family.
	Dialect types.Dialect

	// Tree is the parsed element tree.
	Tree *etree.Document
}

// Root returns the document element.
func (d *Document) Root() *etree.Element {
	return d.Tree.Root()
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// Discover returns the regular files directly inside dir, sorted by name.
//
// PARAMETERS:
//   - dir: The directory to scan. It is not walked recursively and files are
//     not filtered by extension.
//
// RETURNS:
//   - A slice of file paths in lexical order. Entries that cannot be
//     stat'ed (broken symlinks, permission errors) are included.
//   - ErrDirectoryNotFound if dir does not exist or is not a directory.
func Discover(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", types.ErrDirectoryNotFound, dir)
		}
		return nil, fmt.Errorf("failed to stat input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", types.ErrDirectoryNotFound, dir)
	}

	// os.ReadDir returns entries sorted by file name, which fixes the
	// processing order independently of the platform.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		// Follow symlinks; only regular files count. An entry that cannot
		// be stat'ed is still listed so that reading it reports the failure.
		fi, err := os.Stat(path)
		if err != nil {
			if !entry.IsDir() {
				files = append(files, path)
			}
			continue
		}
		if fi.Mode().IsRegular() {
			files = append(files, path)
		}
	}

	return files, nil
}

// =============================================================================
// PARSING
// =============================================================================

// Parse reads and parses one file and detects its dialect.
//
// RETURNS:
//   - The parsed document.
//   - A *types.FileError wrapping ErrUnreadableFile if the file cannot be
//     read, or ErrMalformedDocument if it is not well-formed XML or has no
//     root element.
func Parse(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewFileError(path, fmt.Errorf("%w: %v", types.ErrUnreadableFile, err))
	}
	return ParseBytes(path, data)
}

// ParseBytes parses an in-memory document. path is used for reporting only.
func ParseBytes(path string, data []byte) (*Document, error) {
	tree := etree.NewDocument()
	tree.ReadSettings.CharsetReader = charset.NewReaderLabel

	if err := tree.ReadFromBytes(data); err != nil {
		return nil, types.NewFileError(path, fmt.Errorf("%w: %v", types.ErrMalformedDocument, err))
	}
	if tree.Root() == nil {
		return nil, types.NewFileError(path, fmt.Errorf("%w: no root element", types.ErrMalformedDocument))
	}

	return &Document{
		Path:    path,
		Dialect: Detect(tree.Root()),
		Tree:    tree,
	}, nil
}

// Detect classifies a document by probing for the interval namespace first
// and the periodic TimePeriod element second.
func Detect(root *etree.Element) types.Dialect {
	if root == nil {
		return types.Unrecognized
	}

	dialect := types.Unrecognized
	Walk(root, func(e *etree.Element) bool {
		if e.NamespaceURI() == IntervalNamespace {
			dialect = types.Interval
			return false
		}
		if e.Tag == periodElement && dialect == types.Unrecognized {
			dialect = types.Periodic
		}
		return true
	})
	return dialect
}

// =============================================================================
// TREE HELPERS
// =============================================================================

// Walk visits e and its descendants in document order. Returning false from
// fn stops the walk.
func Walk(e *etree.Element, fn func(*etree.Element) bool) bool {
	if !fn(e) {
		return false
	}
	for _, child := range e.ChildElements() {
		if !Walk(child, fn) {
			return false
		}
	}
	return true
}

// FindAll returns every descendant-or-self of e with the given local tag and
// namespace URI. An empty namespace matches elements in no namespace only.
func FindAll(e *etree.Element, space, tag string) []*etree.Element {
	var found []*etree.Element
	Walk(e, func(el *etree.Element) bool {
		if el.Tag == tag && el.NamespaceURI() == space {
			found = append(found, el)
		}
		return true
	})
	return found
}

// FindFirst returns the first match of FindAll, or nil.
func FindFirst(e *etree.Element, space, tag string) *etree.Element {
	var found *etree.Element
	Walk(e, func(el *etree.Element) bool {
		if el.Tag == tag && el.NamespaceURI() == space {
			found = el
			return false
		}
		return true
	})
	return found
}

// FindByTag returns every descendant-or-self of e with the given local tag in
// any namespace.
func FindByTag(e *etree.Element, tag string) []*etree.Element {
	var found []*etree.Element
	Walk(e, func(el *etree.Element) bool {
		if el.Tag == tag {
			found = append(found, el)
		}
		return true
	})
	return found
}
