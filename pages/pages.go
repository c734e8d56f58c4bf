package pages

import (
	"errors"
	"fmt"

	"github.com/tsawler/pagecount/core"
	"github.com/tsawler/pagecount/model"
)

// MaxTreeDepth bounds page tree nesting.
const MaxTreeDepth = 64

var (
	// ErrCycle is returned when a /Kids entry points back at an ancestor.
	ErrCycle = errors.New("page tree cycle")

	// ErrTooDeep is returned when the tree nests deeper than MaxTreeDepth.
	ErrTooDeep = errors.New("page tree too deep")
)

// ObjectResolver resolves indirect references.
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// Catalog is the document catalog.
type Catalog struct {
	dict     core.Dict
	resolver ObjectResolver
}

// NewCatalog wraps a catalog dictionary.
func NewCatalog(dict core.Dict, resolver ObjectResolver) *Catalog {
	return &Catalog{dict: dict, resolver: resolver}
}

// Pages returns the root of the page tree.
func (c *Catalog) Pages() (core.Dict, error) {
	ref := c.dict.Get("Pages")
	if ref == nil {
		return nil, fmt.Errorf("catalog missing /Pages entry")
	}
	obj, err := c.resolver.Resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Pages: %w", err)
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid /Pages type: %T", obj)
	}
	return dict, nil
}

// PageTree is a lazily walked page tree.
type PageTree struct {
	root     core.Dict
	resolver ObjectResolver
	pages    []*Page
}

// NewPageTree creates a tree rooted at root.
func NewPageTree(root core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{root: root, resolver: resolver}
}

// DeclaredCount returns the root's /Count entry, which may disagree with the
// actual number of leaves in damaged files.
func (t *PageTree) DeclaredCount() (int, bool) {
	obj, err := t.resolver.Resolve(t.root.Get("Count"))
	if err != nil {
		return 0, false
	}
	n, ok := obj.(core.Int)
	return int(n), ok && n >= 0
}

// Count returns the number of leaf pages.
func (t *PageTree) Count() (int, error) {
	if err := t.load(); err != nil {
		return 0, err
	}
	return len(t.pages), nil
}

// Pages returns every leaf page in document order.
func (t *PageTree) Pages() ([]*Page, error) {
	if err := t.load(); err != nil {
		return nil, err
	}
	return t.pages, nil
}

// GetPage returns the page at a zero-based index.
func (t *PageTree) GetPage(index int) (*Page, error) {
	if err := t.load(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(t.pages) {
		return nil, fmt.Errorf("page index %d out of range (0-%d)", index, len(t.pages)-1)
	}
	return t.pages[index], nil
}

func (t *PageTree) load() error {
	if t.pages != nil {
		return nil
	}
	w := walker{tree: t, onPath: make(map[int]bool), seen: make(map[int]bool)}
	pages := make([]*Page, 0)
	if err := w.visit(t.root, nil, &pages, 0); err != nil {
		return fmt.Errorf("failed to traverse page tree: %w", err)
	}
	t.pages = pages
	return nil
}

type walker struct {
	tree   *PageTree
	onPath map[int]bool
	seen   map[int]bool
}

// visit appends the leaves under node. ancestors lists the enclosing Pages
// nodes, nearest last.
func (w *walker) visit(node core.Dict, ancestors []core.Dict, out *[]*Page, depth int) error {
	if depth > MaxTreeDepth {
		return ErrTooDeep
	}

	if !isPagesNode(node) {
		*out = append(*out, &Page{dict: node, ancestors: ancestors, resolver: w.tree.resolver})
		return nil
	}

	kidsObj, err := w.tree.resolver.Resolve(node.Get("Kids"))
	if err != nil {
		return fmt.Errorf("failed to resolve /Kids: %w", err)
	}
	kids, _ := kidsObj.(core.Array)

	chain := make([]core.Dict, len(ancestors)+1)
	copy(chain, ancestors)
	chain[len(ancestors)] = node

	for i, kid := range kids {
		ref, isRef := kid.(core.IndirectRef)
		if isRef {
			if w.onPath[ref.Number] {
				return fmt.Errorf("%w at object %d", ErrCycle, ref.Number)
			}
			// a leaf listed twice is counted once
			if w.seen[ref.Number] {
				continue
			}
			w.seen[ref.Number] = true
		}

		obj, err := w.tree.resolver.Resolve(kid)
		if err != nil {
			return fmt.Errorf("failed to resolve kid %d: %w", i, err)
		}
		dict, ok := obj.(core.Dict)
		if !ok {
			continue
		}

		if isRef {
			w.onPath[ref.Number] = true
		}
		err = w.visit(dict, chain, out, depth+1)
		if isRef {
			delete(w.onPath, ref.Number)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// isPagesNode treats a node as intermediate when /Type says so or, for
// untyped nodes, when it has /Kids.
func isPagesNode(d core.Dict) bool {
	if t, ok := d.GetName("Type"); ok {
		return t == "Pages"
	}
	return d.Has("Kids")
}

// Page is a leaf of the page tree.
type Page struct {
	dict      core.Dict
	ancestors []core.Dict
	resolver  ObjectResolver
}

// NewPage creates a page whose inheritable attributes come from ancestors,
// nearest last.
func NewPage(dict core.Dict, ancestors []core.Dict, resolver ObjectResolver) *Page {
	return &Page{dict: dict, ancestors: ancestors, resolver: resolver}
}

// Dict returns the page dictionary.
func (p *Page) Dict() core.Dict {
	return p.dict
}

// MediaBox returns the page's own or inherited MediaBox.
func (p *Page) MediaBox() (model.Rect, bool) {
	return p.box("MediaBox")
}

// CropBox returns the page's own or inherited CropBox. Unlike a viewer it
// does not fall back to MediaBox; callers choose the fallback order.
func (p *Page) CropBox() (model.Rect, bool) {
	return p.box("CropBox")
}

// inherited looks up key on the page and then on each ancestor, nearest
// first.
func (p *Page) inherited(key string) core.Object {
	if v := p.dict.Get(key); v != nil {
		return v
	}
	for i := len(p.ancestors) - 1; i >= 0; i-- {
		if v := p.ancestors[i].Get(key); v != nil {
			return v
		}
	}
	return nil
}

func (p *Page) box(key string) (model.Rect, bool) {
	obj := p.inherited(key)
	if obj == nil {
		return model.Rect{}, false
	}
	obj, err := p.resolver.Resolve(obj)
	if err != nil {
		return model.Rect{}, false
	}
	arr, ok := obj.(core.Array)
	if !ok || len(arr) != 4 {
		return model.Rect{}, false
	}

	vals := make([]float64, 4)
	for i, elem := range arr {
		elem, err := p.resolver.Resolve(elem)
		if err != nil {
			return model.Rect{}, false
		}
		v, ok := core.Number(elem)
		if !ok {
			return model.Rect{}, false
		}
		vals[i] = v
	}
	return model.NewRect(vals)
}
