package core

import (
	"github.com/google/uuid"
)

// Collection is a top-level named container of requests and folders.
// Nodes are treated as immutable once published: every tree mutation
// rebuilds the path from root to the changed node and reuses untouched
// siblings, so concurrently rendered snapshots stay consistent.
type Collection struct {
	id       string
	name     string
	folders  []*Folder
	requests []*Request
}

// NewCollection creates a new empty collection.
func NewCollection(name string) *Collection {
	return &Collection{
		id:       uuid.New().String(),
		name:     name,
		folders:  make([]*Folder, 0),
		requests: make([]*Request, 0),
	}
}

// NewCollectionWithID rebuilds a collection from storage.
func NewCollectionWithID(id, name string, folders []*Folder, requests []*Request) *Collection {
	return &Collection{id: id, name: name, folders: folders, requests: requests}
}

func (c *Collection) ID() string           { return c.id }
func (c *Collection) Name() string         { return c.name }
func (c *Collection) Folders() []*Folder   { return c.folders }
func (c *Collection) Requests() []*Request { return c.requests }

// withChildren returns a shallow copy with replacement child slots.
func (c *Collection) withChildren(folders []*Folder, requests []*Request) *Collection {
	return &Collection{id: c.id, name: c.name, folders: folders, requests: requests}
}

func (c *Collection) withName(name string) *Collection {
	return &Collection{id: c.id, name: name, folders: c.folders, requests: c.requests}
}

// FindFolder searches the collection recursively for a folder id.
func (c *Collection) FindFolder(id string) *Folder {
	return findFolder(c.folders, id)
}

// FindRequest searches the collection recursively for a request id.
func (c *Collection) FindRequest(id string) (*Request, bool) {
	return findRequest(c.folders, c.requests, id)
}

// RequestCount returns the number of requests transitively reachable.
func (c *Collection) RequestCount() int {
	return countRequests(c.folders, c.requests)
}

// Folder is a nested grouping inside a collection, arbitrarily nestable.
type Folder struct {
	id       string
	name     string
	folders  []*Folder
	requests []*Request
}

// NewFolder creates a new empty folder.
func NewFolder(name string) *Folder {
	return &Folder{
		id:       uuid.New().String(),
		name:     name,
		folders:  make([]*Folder, 0),
		requests: make([]*Request, 0),
	}
}

// NewFolderWithID rebuilds a folder from storage.
func NewFolderWithID(id, name string, folders []*Folder, requests []*Request) *Folder {
	return &Folder{id: id, name: name, folders: folders, requests: requests}
}

func (f *Folder) ID() string           { return f.id }
func (f *Folder) Name() string         { return f.name }
func (f *Folder) Folders() []*Folder   { return f.folders }
func (f *Folder) Requests() []*Request { return f.requests }

func (f *Folder) withChildren(folders []*Folder, requests []*Request) *Folder {
	return &Folder{id: f.id, name: f.name, folders: folders, requests: requests}
}

// Shared recursive helpers.

func findFolder(folders []*Folder, id string) *Folder {
	for _, f := range folders {
		if f.id == id {
			return f
		}
		if found := findFolder(f.folders, id); found != nil {
			return found
		}
	}
	return nil
}

func findRequest(folders []*Folder, requests []*Request, id string) (*Request, bool) {
	for _, r := range requests {
		if r.id == id {
			return r, true
		}
	}
	for _, f := range folders {
		if r, ok := findRequest(f.folders, f.requests, id); ok {
			return r, true
		}
	}
	return nil, false
}

func countRequests(folders []*Folder, requests []*Request) int {
	count := len(requests)
	for _, f := range folders {
		count += countRequests(f.folders, f.requests)
	}
	return count
}

// collectRequestIDs gathers every transitively reachable request id.
func collectRequestIDs(folders []*Folder, requests []*Request, into []string) []string {
	for _, r := range requests {
		into = append(into, r.id)
	}
	for _, f := range folders {
		into = collectRequestIDs(f.folders, f.requests, into)
	}
	return into
}
