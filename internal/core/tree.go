package core

import (
	"strings"
	"sync"
)

// Tree is the shared collection tree for one workspace instance. All
// mutations are copy-on-write: a reader holding Snapshot() never observes
// a partially-updated structure, and untouched subtrees are shared
// between successive snapshots.
type Tree struct {
	mu          sync.RWMutex
	collections []*Collection
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{collections: make([]*Collection, 0)}
}

// Snapshot returns the current root slice. The returned value is
// immutable; later mutations publish a new slice.
func (t *Tree) Snapshot() []*Collection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.collections
}

// Replace swaps the entire tree, used when reconciling against an
// externally-changed persisted document.
func (t *Tree) Replace(collections []*Collection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if collections == nil {
		collections = make([]*Collection, 0)
	}
	t.collections = collections
}

// CreateCollection adds a new named collection.
func (t *Tree) CreateCollection(name string) (*Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, InvalidArgumentf("collection name is required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	c := NewCollection(name)
	next := make([]*Collection, 0, len(t.collections)+1)
	next = append(next, t.collections...)
	next = append(next, c)
	t.collections = next
	return c, nil
}

// RenameCollection changes a collection's name.
func (t *Tree) RenameCollection(id, name string) error {
	if strings.TrimSpace(name) == "" {
		return InvalidArgumentf("collection name is required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for i, c := range t.collections {
		if c.id == id {
			next := append([]*Collection(nil), t.collections...)
			next[i] = c.withName(name)
			t.collections = next
			return nil
		}
	}
	return NotFoundf("collection %s", id)
}

// DeleteCollection removes a collection and everything reachable from it.
func (t *Tree) DeleteCollection(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, c := range t.collections {
		if c.id == id {
			next := append([]*Collection(nil), t.collections[:i]...)
			next = append(next, t.collections[i+1:]...)
			t.collections = next
			return nil
		}
	}
	return NotFoundf("collection %s", id)
}

// CreateFolder adds a folder under a collection root or, when
// parentFolderID is non-empty, under that folder.
func (t *Tree) CreateFolder(collectionID, parentFolderID, name string) (*Folder, error) {
	if strings.TrimSpace(name) == "" {
		return nil, InvalidArgumentf("folder name is required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	folder := NewFolder(name)

	err := t.updateCollection(collectionID, func(c *Collection) (*Collection, error) {
		if parentFolderID == "" {
			folders := append(append([]*Folder(nil), c.folders...), folder)
			return c.withChildren(folders, c.requests), nil
		}
		folders, found := insertIntoFolder(c.folders, parentFolderID, folder, nil)
		if !found {
			return nil, NotFoundf("folder %s", parentFolderID)
		}
		return c.withChildren(folders, c.requests), nil
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// DeleteFolder removes a folder and cascades to its nested folders and
// requests.
func (t *Tree) DeleteFolder(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, c := range t.collections {
		folders, removed := removeFolder(c.folders, id)
		if removed {
			next := append([]*Collection(nil), t.collections...)
			next[i] = c.withChildren(folders, c.requests)
			t.collections = next
			return nil
		}
	}
	return NotFoundf("folder %s", id)
}

// AddRequest materializes a draft into a persisted request at the
// collection root or inside the given folder.
func (t *Tree) AddRequest(collectionID, folderID string, draft RequestDraft) (*Request, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	req := NewRequest(draft)
	if err := t.placeRequest(collectionID, folderID, req); err != nil {
		return nil, err
	}
	return req, nil
}

// placeRequest inserts an already-built request. Caller holds the lock.
func (t *Tree) placeRequest(collectionID, folderID string, req *Request) error {
	return t.updateCollection(collectionID, func(c *Collection) (*Collection, error) {
		if folderID == "" {
			requests := append(append([]*Request(nil), c.requests...), req)
			return c.withChildren(c.folders, requests), nil
		}
		folders, found := insertIntoFolder(c.folders, folderID, nil, req)
		if !found {
			return nil, NotFoundf("folder %s", folderID)
		}
		return c.withChildren(folders, c.requests), nil
	})
}

// UpdateRequest replaces the editable fields of an existing request,
// keeping its id and position.
func (t *Tree) UpdateRequest(id string, draft RequestDraft) (*Request, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	updated := NewRequestWithID(id, draft)
	for i, c := range t.collections {
		folders, requests, replaced := replaceRequest(c.folders, c.requests, id, updated)
		if replaced {
			next := append([]*Collection(nil), t.collections...)
			next[i] = c.withChildren(folders, requests)
			t.collections = next
			return updated, nil
		}
	}
	return nil, NotFoundf("request %s", id)
}

// UpsertRequest updates the request in place when id matches an existing
// one, otherwise materializes the draft at the given target. Used by tab
// save so repeated saves never duplicate.
func (t *Tree) UpsertRequest(collectionID, folderID, id string, draft RequestDraft) (*Request, error) {
	if id != "" {
		if req, err := t.UpdateRequest(id, draft); err == nil {
			return req, nil
		}
	}
	return t.AddRequest(collectionID, folderID, draft)
}

// DeleteRequest removes a request wherever it lives.
func (t *Tree) DeleteRequest(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, c := range t.collections {
		folders, requests, removed := deleteRequest(c.folders, c.requests, id)
		if removed {
			next := append([]*Collection(nil), t.collections...)
			next[i] = c.withChildren(folders, requests)
			t.collections = next
			return nil
		}
	}
	return NotFoundf("request %s", id)
}

// FindCollection returns a collection by id.
func (t *Tree) FindCollection(id string) (*Collection, bool) {
	for _, c := range t.Snapshot() {
		if c.id == id {
			return c, true
		}
	}
	return nil, false
}

// FindRequest searches the whole tree for a request id.
func (t *Tree) FindRequest(id string) (*Request, bool) {
	for _, c := range t.Snapshot() {
		if r, ok := c.FindRequest(id); ok {
			return r, true
		}
	}
	return nil, false
}

// FindFolder searches the whole tree for a folder id.
func (t *Tree) FindFolder(id string) *Folder {
	for _, c := range t.Snapshot() {
		if f := c.FindFolder(id); f != nil {
			return f
		}
	}
	return nil
}

// ReachableRequestIDs lists every request id in the tree, used to verify
// cascade deletion.
func (t *Tree) ReachableRequestIDs() []string {
	var ids []string
	for _, c := range t.Snapshot() {
		ids = collectRequestIDs(c.folders, c.requests, ids)
	}
	return ids
}

// updateCollection rebuilds the root slice around one changed collection.
// Caller holds the write lock.
func (t *Tree) updateCollection(id string, fn func(*Collection) (*Collection, error)) error {
	for i, c := range t.collections {
		if c.id == id {
			replacement, err := fn(c)
			if err != nil {
				return err
			}
			next := append([]*Collection(nil), t.collections...)
			next[i] = replacement
			t.collections = next
			return nil
		}
	}
	return NotFoundf("collection %s", id)
}

// insertIntoFolder rebuilds the folder path down to targetID and appends
// either a child folder or a request there. Untouched siblings are reused.
func insertIntoFolder(folders []*Folder, targetID string, child *Folder, req *Request) ([]*Folder, bool) {
	for i, f := range folders {
		if f.id == targetID {
			next := append([]*Folder(nil), folders...)
			if child != nil {
				subs := append(append([]*Folder(nil), f.folders...), child)
				next[i] = f.withChildren(subs, f.requests)
			} else {
				reqs := append(append([]*Request(nil), f.requests...), req)
				next[i] = f.withChildren(f.folders, reqs)
			}
			return next, true
		}
		if subs, found := insertIntoFolder(f.folders, targetID, child, req); found {
			next := append([]*Folder(nil), folders...)
			next[i] = f.withChildren(subs, f.requests)
			return next, true
		}
	}
	return folders, false
}

func removeFolder(folders []*Folder, id string) ([]*Folder, bool) {
	for i, f := range folders {
		if f.id == id {
			next := append([]*Folder(nil), folders[:i]...)
			next = append(next, folders[i+1:]...)
			return next, true
		}
		if subs, removed := removeFolder(f.folders, id); removed {
			next := append([]*Folder(nil), folders...)
			next[i] = f.withChildren(subs, f.requests)
			return next, true
		}
	}
	return folders, false
}

func replaceRequest(folders []*Folder, requests []*Request, id string, updated *Request) ([]*Folder, []*Request, bool) {
	for i, r := range requests {
		if r.id == id {
			next := append([]*Request(nil), requests...)
			next[i] = updated
			return folders, next, true
		}
	}
	for i, f := range folders {
		subFolders, subRequests, replaced := replaceRequest(f.folders, f.requests, id, updated)
		if replaced {
			next := append([]*Folder(nil), folders...)
			next[i] = f.withChildren(subFolders, subRequests)
			return next, requests, true
		}
	}
	return folders, requests, false
}

func deleteRequest(folders []*Folder, requests []*Request, id string) ([]*Folder, []*Request, bool) {
	for i, r := range requests {
		if r.id == id {
			next := append([]*Request(nil), requests[:i]...)
			next = append(next, requests[i+1:]...)
			return folders, next, true
		}
	}
	for i, f := range folders {
		subFolders, subRequests, removed := deleteRequest(f.folders, f.requests, id)
		if removed {
			next := append([]*Folder(nil), folders...)
			next[i] = f.withChildren(subFolders, subRequests)
			return next, requests, true
		}
	}
	return folders, requests, false
}
