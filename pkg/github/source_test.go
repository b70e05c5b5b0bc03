package github

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func listing(start, count int, flag func(i int) (fork, archived bool)) []OrganizationRepository {
	repos := make([]OrganizationRepository, 0, count)
	for i := start; i < start+count; i++ {
		fork, archived := flag(i)
		repos = append(repos, OrganizationRepository{
			Repository: Repository{Owner: "acme", Repository: fmt.Sprintf("repo-%d", i)},
			Fork:       fork,
			Archived:   archived,
		})
	}
	return repos
}

func plain(int) (bool, bool) { return false, false }

func TestListPublicRepositories_TwoPages(t *testing.T) {
	client := &MockAPIClient{}
	client.On("ListOrganizationRepositories", mock.Anything, "acme", 1, 100).Return(listing(0, 100, plain), nil)
	client.On("ListOrganizationRepositories", mock.Anything, "acme", 2, 100).Return(listing(100, 50, plain), nil)

	repos, err := ListPublicRepositories(context.Background(), client, "acme")
	require.NoError(t, err)

	assert.Len(t, repos, 150)
	assert.Equal(t, Repository{Owner: "acme", Repository: "repo-0"}, repos[0])
	assert.Equal(t, Repository{Owner: "acme", Repository: "repo-149"}, repos[149])
	client.AssertExpectations(t)
	client.AssertNotCalled(t, "ListOrganizationRepositories", mock.Anything, "acme", 3, 100)
}

func TestListPublicRepositories_SkipsForksAndArchived(t *testing.T) {
	flagged := func(i int) (bool, bool) {
		return i%10 == 3, i%10 == 7
	}

	client := &MockAPIClient{}
	client.On("ListOrganizationRepositories", mock.Anything, "acme", 1, 100).Return(listing(0, 100, flagged), nil)
	client.On("ListOrganizationRepositories", mock.Anything, "acme", 2, 100).Return(listing(100, 50, flagged), nil)

	repos, err := ListPublicRepositories(context.Background(), client, "acme")
	require.NoError(t, err)

	assert.Len(t, repos, 120)
	for _, repo := range repos {
		assert.NotEqual(t, "repo-3", repo.Repository)
		assert.NotEqual(t, "repo-7", repo.Repository)
	}
}

func TestListPublicRepositories_ExactPageMultiple(t *testing.T) {
	client := &MockAPIClient{}
	client.On("ListOrganizationRepositories", mock.Anything, "acme", 1, 100).Return(listing(0, 100, plain), nil)
	client.On("ListOrganizationRepositories", mock.Anything, "acme", 2, 100).Return([]OrganizationRepository{}, nil)

	repos, err := ListPublicRepositories(context.Background(), client, "acme")
	require.NoError(t, err)
	assert.Len(t, repos, 100)
}

func TestListPublicRepositories_Error(t *testing.T) {
	client := &MockAPIClient{}
	client.On("ListOrganizationRepositories", mock.Anything, "ghost", 1, 100).Return(nil, errNotFound)

	_, err := ListPublicRepositories(context.Background(), client, "ghost")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestParseRepositories(t *testing.T) {
	repos, err := ParseRepositories(`[{"owner":"acme","repository":"widgets"},{"owner":"acme","repository":"gizmos"}]`)
	require.NoError(t, err)
	assert.Equal(t, []Repository{widgets, gizmos}, repos)

	_, err = ParseRepositories(`{"owner":"acme"}`)
	assert.Error(t, err)
}

func TestResolveRepositories(t *testing.T) {
	dir := t.TempDir()
	failedFile := filepath.Join(dir, "failed-repositories.json")
	require.NoError(t, SaveFailedRepositories(failedFile, []Repository{gizmos}))

	tests := []struct {
		name           string
		opts           SourceOptions
		confirms       []bool
		expected       []Repository
		expectedOrigin Origin
		questions      int
	}{
		{
			name: "override wins",
			opts: SourceOptions{
				Organization: "acme",
				Override:     `[{"owner":"acme","repository":"widgets"}]`,
				FailedFile:   failedFile,
			},
			expected:       []Repository{widgets},
			expectedOrigin: OriginOverride,
		},
		{
			name: "failure file accepted",
			opts: SourceOptions{
				Organization: "acme",
				FailedFile:   failedFile,
			},
			confirms:       []bool{true},
			expected:       []Repository{gizmos},
			expectedOrigin: OriginFailedFile,
			questions:      1,
		},
		{
			name: "failure file declined",
			opts: SourceOptions{
				Organization: "acme",
				FailedFile:   failedFile,
			},
			confirms:       []bool{false},
			expected:       []Repository{{Owner: "acme", Repository: "repo-0"}, {Owner: "acme", Repository: "repo-1"}},
			expectedOrigin: OriginOrganization,
			questions:      1,
		},
		{
			name: "empty override falls through",
			opts: SourceOptions{
				Organization: "acme",
				Override:     `[]`,
				FailedFile:   filepath.Join(dir, "missing.json"),
			},
			expected:       []Repository{{Owner: "acme", Repository: "repo-0"}, {Owner: "acme", Repository: "repo-1"}},
			expectedOrigin: OriginOrganization,
		},
		{
			name: "patterns applied",
			opts: SourceOptions{
				Organization: "acme",
				Exclude:      []string{"acme/repo-1"},
			},
			expected:       []Repository{{Owner: "acme", Repository: "repo-0"}},
			expectedOrigin: OriginOrganization,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockAPIClient{}
			client.On("ListOrganizationRepositories", mock.Anything, "acme", 1, 100).Return(listing(0, 2, plain), nil)

			p := &scriptedPrompter{confirms: tt.confirms}
			repos, origin, err := ResolveRepositories(context.Background(), client, p, &bytes.Buffer{}, tt.opts)
			require.NoError(t, err)

			assert.Equal(t, tt.expected, repos)
			assert.Equal(t, tt.expectedOrigin, origin)
			assert.Len(t, p.asked, tt.questions)
		})
	}
}

func TestResolveRepositories_Errors(t *testing.T) {
	client := &MockAPIClient{}

	_, _, err := ResolveRepositories(context.Background(), client, &scriptedPrompter{}, &bytes.Buffer{}, SourceOptions{})
	assert.Error(t, err, "organization is required without an override")

	_, _, err = ResolveRepositories(context.Background(), client, &scriptedPrompter{}, &bytes.Buffer{}, SourceOptions{Override: "not json"})
	assert.Error(t, err)

	_, _, err = ResolveRepositories(context.Background(), client, &scriptedPrompter{}, &bytes.Buffer{}, SourceOptions{
		Override: `[{"owner":"acme","repository":"widgets"}]`,
		Include:  []string{"acme/[unclosed"},
	})
	assert.Error(t, err)

	assert.Empty(t, client.Calls)
}
