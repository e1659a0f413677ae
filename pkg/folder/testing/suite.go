package testing

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"testing"

	"github.com/marmos91/dittobrowse/pkg/folder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FolderTestSuite is a conformance suite for folder.Folder implementations.
// It tests the listing contract, not implementation details, making it
// reusable across providers (memory, filesystem, badger, S3, etc.).
//
// Usage:
//
//	func TestMyFolder(t *testing.T) {
//	    suite := &testing.FolderTestSuite{
//	        NewFolder: func(t *testing.T, names []string) folder.Folder {
//	            return myfolder.New(names...)
//	        },
//	    }
//	    suite.Run(t)
//	}
type FolderTestSuite struct {
	// NewFolder creates a fresh folder holding exactly one item per name.
	NewFolder func(t *testing.T, names []string) folder.Folder

	// SupportsSort enables the Options.SortField checks. Providers that can
	// only return their native order leave it false.
	SupportsSort bool
}

// Run executes all tests in the suite.
func (suite *FolderTestSuite) Run(t *testing.T) {
	t.Run("EmptyFolder", suite.testEmptyFolder)
	t.Run("SinglePage", suite.testSinglePage)
	t.Run("Pagination", suite.testPagination)
	t.Run("PageSizeRespected", suite.testPageSizeRespected)
	t.Run("CancelledContext", suite.testCancelledContext)
	if suite.SupportsSort {
		t.Run("SortByName", suite.testSortByName)
	}
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}

// fixtureNames returns n distinct names whose provider order differs from
// their sorted order.
func fixtureNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("entry-%c-%02d.txt", 'z'-rune(i%26), i)
	}
	return names
}

func (suite *FolderTestSuite) testEmptyFolder(t *testing.T) {
	f := suite.NewFolder(t, nil)

	res, err := f.GetFiles(testContext(), folder.ListRequest{PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.False(t, res.HasMore())
	if res.Total >= 0 {
		assert.Equal(t, 0, res.Total)
	}
}

func (suite *FolderTestSuite) testSinglePage(t *testing.T) {
	names := fixtureNames(5)
	f := suite.NewFolder(t, names)

	items, err := ListAll(testContext(), f, 10, folder.Options{})
	require.NoError(t, err)
	assert.ElementsMatch(t, names, Names(items))
}

func (suite *FolderTestSuite) testPagination(t *testing.T) {
	names := fixtureNames(23)
	f := suite.NewFolder(t, names)

	items, err := ListAll(testContext(), f, 5, folder.Options{})
	require.NoError(t, err)
	got := Names(items)
	assert.ElementsMatch(t, names, got)

	seen := make(map[string]bool, len(got))
	for _, n := range got {
		assert.False(t, seen[n], "duplicate item %q", n)
		seen[n] = true
	}
}

func (suite *FolderTestSuite) testPageSizeRespected(t *testing.T) {
	f := suite.NewFolder(t, fixtureNames(12))

	res, err := f.GetFiles(testContext(), folder.ListRequest{PageSize: 5})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res.Items), 5)
	assert.True(t, res.HasMore(), "a partial listing must announce more items")
}

func (suite *FolderTestSuite) testCancelledContext(t *testing.T) {
	f := suite.NewFolder(t, fixtureNames(3))

	ctx, cancel := context.WithCancel(testContext())
	cancel()

	_, err := f.GetFiles(ctx, folder.ListRequest{PageSize: 10})
	assert.Error(t, err)
}

func (suite *FolderTestSuite) testSortByName(t *testing.T) {
	names := fixtureNames(8)
	f := suite.NewFolder(t, names)

	want := slices.Clone(names)
	sort.Strings(want)

	items, err := ListAll(testContext(), f, 3, folder.Options{SortField: folder.SortByName, SortOrder: folder.SortAscending})
	require.NoError(t, err)
	assert.Equal(t, want, Names(items))

	slices.Reverse(want)
	items, err = ListAll(testContext(), f, 3, folder.Options{SortField: folder.SortByName, SortOrder: folder.SortDescending})
	require.NoError(t, err)
	assert.Equal(t, want, Names(items))
}
