package blocks

import (
	"fmt"
	"sync"

	"blockmark/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Block Registry: type keys, default payloads, constructors
// ─────────────────────────────────────────────────────────────

// Definition describes one insertable block kind. Several keys may share a
// type (unorderedList and orderedList are both lists).
type Definition struct {
	Key         string                  `json:"key"`
	Name        string                  `json:"name"`
	Type        domain.BlockType        `json:"type"`
	Icon        string                  `json:"icon"` // inline SVG
	DefaultData func() domain.BlockData `json:"-"`
}

// Constructor builds a live block from its data. data may be nil or of the
// wrong variant, in which case the constructor starts from defaults.
type Constructor func(data domain.BlockData, cb Callbacks, opts Options) Block

var (
	registryMu   sync.RWMutex
	definitions  []Definition
	constructors = map[domain.BlockType]Constructor{}
)

// RegisterType binds a constructor to a block type. Panics on duplicates.
func RegisterType(t domain.BlockType, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := constructors[t]; exists {
		panic(fmt.Sprintf("block registry: duplicate constructor for type %q", t))
	}
	constructors[t] = c
}

// RegisterDefinition adds an insertable kind. Panics on duplicate keys.
func RegisterDefinition(d Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, existing := range definitions {
		if existing.Key == d.Key {
			panic(fmt.Sprintf("block registry: duplicate definition %q", d.Key))
		}
	}
	definitions = append(definitions, d)
}

// Definitions returns the registered kinds in registration order.
func Definitions() []Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup finds a definition by key.
func Lookup(key string) (Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, d := range definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// Known reports whether t has a constructor.
func Known(t domain.BlockType) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := constructors[t]
	return ok
}

// New constructs a block of type t. It reports false for unregistered types.
func New(t domain.BlockType, data domain.BlockData, cb Callbacks, opts Options) (Block, bool) {
	registryMu.RLock()
	c, ok := constructors[t]
	registryMu.RUnlock()
	if !ok {
		return nil, false
	}
	return c(data, cb, opts), true
}

// ───── Built-in kinds ─────

func init() {
	RegisterDefinition(Definition{
		Key:  "paragraph",
		Name: "Paragraph",
		Type: domain.BlockTypeParagraph,
		Icon: `<svg viewBox="0 0 24 24"><path d="M13 4v16M17 4v16M19 4H9.5a4.5 4.5 0 0 0 0 9H13"/></svg>`,
		DefaultData: func() domain.BlockData {
			return domain.ParagraphData{Text: domain.EmptySegments()}
		},
	})
	RegisterDefinition(Definition{
		Key:  "unorderedList",
		Name: "Bulleted List",
		Type: domain.BlockTypeList,
		Icon: `<svg viewBox="0 0 24 24"><path d="M9 6h11M9 12h11M9 18h11M5 6v.01M5 12v.01M5 18v.01"/></svg>`,
		DefaultData: func() domain.BlockData {
			return domain.ListData{Items: [][]domain.TextSegment{domain.EmptySegments()}}
		},
	})
	RegisterDefinition(Definition{
		Key:  "orderedList",
		Name: "Numbered List",
		Type: domain.BlockTypeList,
		Icon: `<svg viewBox="0 0 24 24"><path d="M11 6h9M11 12h9M12 18h8M4 16a2 2 0 1 1 4 0c0 .59-.5 1-1 1.5L4 20h4M6 10V4L4 6"/></svg>`,
		DefaultData: func() domain.BlockData {
			return domain.ListData{Ordered: true, Items: [][]domain.TextSegment{domain.EmptySegments()}}
		},
	})
	RegisterDefinition(Definition{
		Key:  "table",
		Name: "Table",
		Type: domain.BlockTypeTable,
		Icon: `<svg viewBox="0 0 24 24"><path d="M3 5h18v14H3zM3 10h18M10 5v14"/></svg>`,
		DefaultData: func() domain.BlockData {
			return newTableData(2, 2)
		},
	})
	RegisterDefinition(Definition{
		Key:  "image",
		Name: "Image",
		Type: domain.BlockTypeImage,
		Icon: `<svg viewBox="0 0 24 24"><path d="M15 8h.01M4 4h16v16H4zM4 15l4-4 5 5M14 14l1-1 5 5"/></svg>`,
		DefaultData: func() domain.BlockData {
			return defaultImageData()
		},
	})
	RegisterDefinition(Definition{
		Key:  "youtube",
		Name: "YouTube",
		Type: domain.BlockTypeYouTube,
		Icon: `<svg viewBox="0 0 24 24"><path d="M2 8a4 4 0 0 1 4-4h12a4 4 0 0 1 4 4v8a4 4 0 0 1-4 4H6a4 4 0 0 1-4-4zM10 9l5 3-5 3z"/></svg>`,
		DefaultData: func() domain.BlockData {
			return domain.YouTubeData{}
		},
	})
}
