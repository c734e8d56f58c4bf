package pages

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tsawler/pagecount/core"
)

// mockResolver is a mock ObjectResolver for testing
type mockResolver struct {
	objects map[int]core.Object
}

func newMockResolver() *mockResolver {
	return &mockResolver{objects: make(map[int]core.Object)}
}

func (m *mockResolver) AddObject(num int, obj core.Object) {
	m.objects[num] = obj
}

func (m *mockResolver) Resolve(obj core.Object) (core.Object, error) {
	ref, ok := obj.(core.IndirectRef)
	if !ok {
		return obj, nil
	}
	resolved, ok := m.objects[ref.Number]
	if !ok {
		return nil, fmt.Errorf("object %d not found", ref.Number)
	}
	return resolved, nil
}

func ref(n int) core.IndirectRef {
	return core.IndirectRef{Number: n}
}

func box(vals ...float64) core.Array {
	arr := make(core.Array, len(vals))
	for i, v := range vals {
		arr[i] = core.Real(v)
	}
	return arr
}

func TestCatalogPages(t *testing.T) {
	resolver := newMockResolver()
	root := core.Dict{"Type": core.Name("Pages"), "Count": core.Int(0)}
	resolver.AddObject(2, root)

	got, err := NewCatalog(core.Dict{"Pages": ref(2)}, resolver).Pages()
	if err != nil {
		t.Fatalf("Pages() failed: %v", err)
	}
	if !got.IsType("Pages") {
		t.Errorf("unexpected root %v", got)
	}

	if _, err := NewCatalog(core.Dict{}, resolver).Pages(); err == nil {
		t.Error("expected error for missing /Pages")
	}
	if _, err := NewCatalog(core.Dict{"Pages": ref(9)}, resolver).Pages(); err == nil {
		t.Error("expected error for unresolvable /Pages")
	}
	if _, err := NewCatalog(core.Dict{"Pages": core.Int(1)}, resolver).Pages(); err == nil {
		t.Error("expected error for non-dict /Pages")
	}
}

func TestPageTreeFlatStructure(t *testing.T) {
	resolver := newMockResolver()
	for i := 3; i <= 5; i++ {
		resolver.AddObject(i, core.Dict{"Type": core.Name("Page")})
	}
	root := core.Dict{
		"Type":     core.Name("Pages"),
		"Kids":     core.Array{ref(3), ref(4), ref(5)},
		"Count":    core.Int(3),
		"MediaBox": box(0, 0, 612, 792),
	}

	tree := NewPageTree(root, resolver)
	count, err := tree.Count()
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
	if declared, ok := tree.DeclaredCount(); !ok || declared != 3 {
		t.Errorf("DeclaredCount() = %d, %v", declared, ok)
	}

	page, err := tree.GetPage(2)
	if err != nil {
		t.Fatalf("GetPage(2) failed: %v", err)
	}
	mb, ok := page.MediaBox()
	if !ok || mb.Width() != 612 || mb.Height() != 792 {
		t.Errorf("inherited MediaBox = %+v, %v", mb, ok)
	}
	if _, err := tree.GetPage(3); err == nil {
		t.Error("expected out-of-range error")
	}
}

func TestPageTreeNestedStructure(t *testing.T) {
	// root(5) -> A(3) -> B(2) ; leaf counts 3 + 2 = 5
	resolver := newMockResolver()
	leaf := core.Dict{"Type": core.Name("Page")}
	for i := 10; i < 15; i++ {
		resolver.AddObject(i, leaf)
	}
	resolver.AddObject(3, core.Dict{
		"Type":     core.Name("Pages"),
		"Kids":     core.Array{ref(10), ref(11), ref(12)},
		"Count":    core.Int(3),
		"MediaBox": box(0, 0, 300, 500),
	})
	resolver.AddObject(4, core.Dict{
		"Type":  core.Name("Pages"),
		"Kids":  core.Array{ref(13), ref(14)},
		"Count": core.Int(2),
	})
	root := core.Dict{
		"Type":     core.Name("Pages"),
		"Kids":     core.Array{ref(3), ref(4)},
		"Count":    core.Int(5),
		"MediaBox": box(0, 0, 612, 792),
	}

	tree := NewPageTree(root, resolver)
	pages, err := tree.Pages()
	if err != nil {
		t.Fatalf("Pages() failed: %v", err)
	}
	if len(pages) != 5 {
		t.Fatalf("len(Pages()) = %d, want 5", len(pages))
	}

	tests := []struct {
		index int
		width float64
	}{
		{0, 300},
		{2, 300},
		{3, 612},
		{4, 612},
	}
	for _, tt := range tests {
		mb, ok := pages[tt.index].MediaBox()
		if !ok || mb.Width() != tt.width {
			t.Errorf("page %d MediaBox width = %v (ok=%v), want %v", tt.index, mb.Width(), ok, tt.width)
		}
	}
}

func TestPageTreeCycle(t *testing.T) {
	resolver := newMockResolver()
	resolver.AddObject(2, core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{ref(3)}})
	resolver.AddObject(3, core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{ref(2)}})

	root, _ := resolver.Resolve(ref(2))
	_, err := NewPageTree(root.(core.Dict), resolver).Count()
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
}

func TestPageTreeTooDeep(t *testing.T) {
	resolver := newMockResolver()
	for i := 1; i <= MaxTreeDepth+5; i++ {
		resolver.AddObject(i, core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{ref(i + 1)}})
	}
	root, _ := resolver.Resolve(ref(1))
	_, err := NewPageTree(root.(core.Dict), resolver).Count()
	if !errors.Is(err, ErrTooDeep) {
		t.Errorf("expected ErrTooDeep, got %v", err)
	}
}

func TestPageTreeUntypedAndDuplicateKids(t *testing.T) {
	resolver := newMockResolver()
	resolver.AddObject(3, core.Dict{})
	resolver.AddObject(4, core.Dict{"Kids": core.Array{ref(5)}})
	resolver.AddObject(5, core.Dict{"Type": core.Name("Page")})
	root := core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{ref(3), ref(3), ref(4), core.Int(7)}}

	count, err := NewPageTree(root, resolver).Count()
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}

func TestPageTreeMissingKid(t *testing.T) {
	resolver := newMockResolver()
	root := core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{ref(99)}}
	if _, err := NewPageTree(root, resolver).Count(); err == nil {
		t.Error("expected error for unresolvable kid")
	}
}

func TestPageBoxes(t *testing.T) {
	resolver := newMockResolver()
	resolver.AddObject(8, box(0, 0, 500, 700))
	resolver.AddObject(9, core.Real(400))

	tests := []struct {
		name      string
		dict      core.Dict
		ancestors []core.Dict
		mediaOK   bool
		mediaW    float64
		cropOK    bool
		cropW     float64
	}{
		{
			name:    "direct",
			dict:    core.Dict{"MediaBox": box(0, 0, 612, 792), "CropBox": box(10, 10, 602, 782)},
			mediaOK: true, mediaW: 612, cropOK: true, cropW: 592,
		},
		{
			name:    "indirect array",
			dict:    core.Dict{"MediaBox": ref(8)},
			mediaOK: true, mediaW: 500,
		},
		{
			name:    "indirect element",
			dict:    core.Dict{"MediaBox": core.Array{core.Int(0), core.Int(0), ref(9), core.Int(600)}},
			mediaOK: true, mediaW: 400,
		},
		{
			name:      "grandparent",
			dict:      core.Dict{},
			ancestors: []core.Dict{{"CropBox": box(0, 0, 100, 100)}, {}},
			cropOK:    true, cropW: 100,
		},
		{
			name:      "nearest ancestor wins",
			dict:      core.Dict{},
			ancestors: []core.Dict{{"MediaBox": box(0, 0, 100, 100)}, {"MediaBox": box(0, 0, 200, 200)}},
			mediaOK:   true, mediaW: 200,
		},
		{
			name: "malformed",
			dict: core.Dict{"MediaBox": core.Array{core.Int(0), core.Name("x"), core.Int(1), core.Int(1)}, "CropBox": core.Int(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage(tt.dict, tt.ancestors, resolver)
			mb, ok := p.MediaBox()
			if ok != tt.mediaOK || (ok && mb.Width() != tt.mediaW) {
				t.Errorf("MediaBox() = %+v, %v", mb, ok)
			}
			cb, ok := p.CropBox()
			if ok != tt.cropOK || (ok && cb.Width() != tt.cropW) {
				t.Errorf("CropBox() = %+v, %v", cb, ok)
			}
		})
	}
}
