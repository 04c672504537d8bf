// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package migration

import (
	"context"
	"io"

	"github.com/tabmigrate/tabmigrate/core/content"
)

// PageRequest asks for one page of a source enumeration. Pages are
// numbered from 1.
type PageRequest struct {
	Number int
	Size   int
}

// SourceEndpoint enumerates content from the source site. List
// methods return one page of items together with the total number of
// items available, so progress can be reported before all pages have
// been fetched.
type SourceEndpoint interface {
	// SignIn establishes a session with the source site.
	SignIn(ctx context.Context) error

	ListUsers(ctx context.Context, page PageRequest) ([]*content.User, int, error)
	ListGroups(ctx context.Context, page PageRequest) ([]*content.Group, int, error)
	ListGroupSets(ctx context.Context, page PageRequest) ([]*content.GroupSet, int, error)
	ListProjects(ctx context.Context, page PageRequest) ([]*content.Project, int, error)
	ListDataSources(ctx context.Context, page PageRequest) ([]*content.DataSource, int, error)
	ListWorkbooks(ctx context.Context, page PageRequest) ([]*content.Workbook, int, error)
	ListExtractRefreshTasks(ctx context.Context, page PageRequest) ([]*content.ExtractRefreshTask, int, error)
	ListSubscriptions(ctx context.Context, page PageRequest) ([]*content.Subscription, int, error)
	ListFavorites(ctx context.Context, page PageRequest) ([]*content.Favorite, int, error)
}

// DestinationEndpoint publishes content to the destination site.
// Publish methods take the item's mapped destination location and
// return the reference of the created or updated destination item.
type DestinationEndpoint interface {
	// SignIn establishes a session with the destination site.
	SignIn(ctx context.Context) error

	PublishUser(ctx context.Context, user *content.User, location content.Location) (content.Reference, error)
	PublishGroup(ctx context.Context, group *content.Group, location content.Location) (content.Reference, error)
	PublishGroupSet(ctx context.Context, groupSet *content.GroupSet, location content.Location) (content.Reference, error)
	PublishProject(ctx context.Context, project *content.Project, location content.Location) (content.Reference, error)
	PublishDataSource(ctx context.Context, dataSource *content.DataSource, location content.Location) (content.Reference, error)
	PublishWorkbook(ctx context.Context, workbook *content.Workbook, location content.Location) (content.Reference, error)
	PublishExtractRefreshTask(ctx context.Context, task *content.ExtractRefreshTask, location content.Location) (content.Reference, error)
	PublishSubscription(ctx context.Context, subscription *content.Subscription, location content.Location) (content.Reference, error)
	PublishFavorite(ctx context.Context, favorite *content.Favorite, location content.Location) (content.Reference, error)

	// List*References enumerate the references of content already
	// present in the destination, whether or not this migration
	// created it. They back the cached destination finders.
	ListUserReferences(ctx context.Context) ([]content.Reference, error)
	ListGroupReferences(ctx context.Context) ([]content.Reference, error)
	ListProjectReferences(ctx context.Context) ([]content.Reference, error)
	ListDataSourceReferences(ctx context.Context) ([]content.Reference, error)
	ListWorkbookReferences(ctx context.Context) ([]content.Reference, error)

	// Delete removes a destination item.
	Delete(ctx context.Context, t content.Type, ref content.Reference) error
}

// ContentFileStore provides the file-backed content of workbooks and
// data sources, for transformers that rewrite embedded documents.
type ContentFileStore interface {
	OpenRead(ctx context.Context, ref content.Reference) (io.ReadCloser, error)
	OpenWrite(ctx context.Context, ref content.Reference) (io.WriteCloser, error)
	GetXMLStream(ctx context.Context, ref content.Reference) (io.ReadCloser, error)
}
