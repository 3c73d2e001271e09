package storage

import (
	"github.com/quiverhq/quiver/internal/core"
	"github.com/quiverhq/quiver/internal/interfaces"
)

// Document shapes. Entities keep their fields unexported for
// copy-on-write discipline, so persistence goes through these explicit
// storage-format structs, converted on the way in and out.

// CollectionDoc is the persisted form of one collection.
type CollectionDoc struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Folders  []FolderDoc  `json:"folders,omitempty"`
	Requests []RequestDoc `json:"requests,omitempty"`
}

// FolderDoc is the persisted form of one folder, recursively nested.
type FolderDoc struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Folders  []FolderDoc  `json:"folders,omitempty"`
	Requests []RequestDoc `json:"requests,omitempty"`
}

// RequestDoc is the persisted form of one request definition.
type RequestDoc struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Method   string           `json:"method"`
	URL      string           `json:"url"`
	Headers  []core.Header    `json:"headers,omitempty"`
	Params   []core.Param     `json:"params,omitempty"`
	Body     string           `json:"body,omitempty"`
	BodyType core.BodyType    `json:"bodyType,omitempty"`
	Auth     *core.AuthConfig `json:"auth,omitempty"`
}

// EnvironmentDoc is the persisted form of one environment.
type EnvironmentDoc struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Active      bool            `json:"active"`
	Variables   []core.Variable `json:"variables,omitempty"`
}

// SettingsDoc is the persisted workspace settings document.
type SettingsDoc struct {
	SendTimeoutSeconds int    `json:"sendTimeoutSeconds,omitempty"`
	ArchivePath        string `json:"archivePath,omitempty"`
	RevealSecrets      bool   `json:"revealSecrets,omitempty"`
}

// Conversion functions.

// CollectionsToDocs converts a tree snapshot to its persisted form.
func CollectionsToDocs(collections []*core.Collection) []CollectionDoc {
	docs := make([]CollectionDoc, 0, len(collections))
	for _, c := range collections {
		docs = append(docs, CollectionDoc{
			ID:       c.ID(),
			Name:     c.Name(),
			Folders:  foldersToDocs(c.Folders()),
			Requests: requestsToDocs(c.Requests()),
		})
	}
	return docs
}

func foldersToDocs(folders []*core.Folder) []FolderDoc {
	docs := make([]FolderDoc, 0, len(folders))
	for _, f := range folders {
		docs = append(docs, FolderDoc{
			ID:       f.ID(),
			Name:     f.Name(),
			Folders:  foldersToDocs(f.Folders()),
			Requests: requestsToDocs(f.Requests()),
		})
	}
	return docs
}

func requestsToDocs(requests []*core.Request) []RequestDoc {
	docs := make([]RequestDoc, 0, len(requests))
	for _, r := range requests {
		docs = append(docs, RequestDoc{
			ID:       r.ID(),
			Name:     r.Name(),
			Method:   r.Method(),
			URL:      r.URL(),
			Headers:  r.Headers(),
			Params:   r.Params(),
			Body:     r.Body(),
			BodyType: r.BodyType(),
			Auth:     r.Auth(),
		})
	}
	return docs
}

// CollectionsFromDocs rebuilds tree nodes from the persisted form.
func CollectionsFromDocs(docs []CollectionDoc) []*core.Collection {
	collections := make([]*core.Collection, 0, len(docs))
	for _, d := range docs {
		collections = append(collections, core.NewCollectionWithID(
			d.ID, d.Name, foldersFromDocs(d.Folders), requestsFromDocs(d.Requests)))
	}
	return collections
}

func foldersFromDocs(docs []FolderDoc) []*core.Folder {
	folders := make([]*core.Folder, 0, len(docs))
	for _, d := range docs {
		folders = append(folders, core.NewFolderWithID(
			d.ID, d.Name, foldersFromDocs(d.Folders), requestsFromDocs(d.Requests)))
	}
	return folders
}

func requestsFromDocs(docs []RequestDoc) []*core.Request {
	requests := make([]*core.Request, 0, len(docs))
	for _, d := range docs {
		requests = append(requests, core.NewRequestWithID(d.ID, core.RequestDraft{
			Name:     d.Name,
			Method:   d.Method,
			URL:      d.URL,
			Headers:  d.Headers,
			Params:   d.Params,
			Body:     d.Body,
			BodyType: d.BodyType,
			Auth:     d.Auth,
		}))
	}
	return requests
}

// EnvironmentsToDocs converts an environment set snapshot.
func EnvironmentsToDocs(environments []*core.Environment) []EnvironmentDoc {
	docs := make([]EnvironmentDoc, 0, len(environments))
	for _, env := range environments {
		docs = append(docs, EnvironmentDoc{
			ID:          env.ID(),
			Name:        env.Name(),
			Description: env.Description(),
			Active:      env.Active(),
			Variables:   env.Variables(),
		})
	}
	return docs
}

// EnvironmentsFromDocs rebuilds environments from the persisted form.
// The single-active invariant is enforced on the way in: if the document
// claims several active environments, only the first survives.
func EnvironmentsFromDocs(docs []EnvironmentDoc) []*core.Environment {
	environments := make([]*core.Environment, 0, len(docs))
	seenActive := false
	for _, d := range docs {
		active := d.Active && !seenActive
		if active {
			seenActive = true
		}
		environments = append(environments, core.NewEnvironmentWithID(
			d.ID, d.Name, d.Description, active, d.Variables))
	}
	return environments
}

var _ interfaces.DocumentStore = (*Store)(nil)
