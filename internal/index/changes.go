package index

import "fmt"

// ChangeKind identifies an incremental change.
type ChangeKind int

const (
	// ChangeAdd inserts a new document.
	ChangeAdd ChangeKind = iota
	// ChangeUpdate replaces the document with the given id.
	ChangeUpdate
	// ChangeRemove deletes the document with the given id.
	ChangeRemove
)

// String returns the change name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeAdd:
		return "add"
	case ChangeUpdate:
		return "update"
	case ChangeRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Change is one element of an incremental update.
type Change struct {
	Kind  ChangeKind
	ID    string
	Entry *IndexEntry
}

// AddDocument returns a change inserting entry under its own id.
func AddDocument(entry *IndexEntry) Change {
	return Change{Kind: ChangeAdd, ID: entry.ID, Entry: entry}
}

// UpdateDocument returns a change storing entry under id.
func UpdateDocument(id string, entry *IndexEntry) Change {
	return Change{Kind: ChangeUpdate, ID: id, Entry: entry}
}

// RemoveDocument returns a change deleting id.
func RemoveDocument(id string) Change {
	return Change{Kind: ChangeRemove, ID: id}
}

// ApplyChanges applies changes in order to the document map, then
// recomputes and optimizes all postings. Removing an unknown id is a
// no-op. An updated entry takes the id it is stored under.
func ApplyChanges(idx *InvertedIndex, changes []Change) error {
	for i, ch := range changes {
		switch ch.Kind {
		case ChangeAdd, ChangeUpdate:
			if ch.Entry == nil {
				return fmt.Errorf("change %d (%s): missing entry", i, ch.Kind)
			}
			if ch.ID == "" {
				return fmt.Errorf("change %d (%s): missing document id", i, ch.Kind)
			}
			entry := ch.Entry
			if entry.ID != ch.ID {
				clone := *entry
				clone.ID = ch.ID
				entry = &clone
			}
			idx.Documents[ch.ID] = entry
		case ChangeRemove:
			delete(idx.Documents, ch.ID)
		default:
			return fmt.Errorf("change %d: unknown kind %d", i, ch.Kind)
		}
	}

	idx.RebuildPostings()
	Optimize(idx, OptimizeOptions{})
	return nil
}

// Merge copies every document of src into dst, retagged with dst's tool
// type. Existing ids in dst are overwritten. Postings are not recomputed.
func Merge(dst, src *InvertedIndex) int {
	n := 0
	for id, doc := range src.Documents {
		clone := *doc
		clone.ToolType = dst.ToolType
		dst.Documents[id] = &clone
		n++
	}
	return n
}
