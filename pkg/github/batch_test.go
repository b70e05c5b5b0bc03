package github

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"readmefooter/pkg/footer"
)

func newTestBatch(t *testing.T, client *MockAPIClient, p *scriptedPrompter, opts BatchOptions) (*Batch, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	updater := NewUpdater(client, footer.NewEngine(""), p, &out, UpdaterOptions{
		UpdateBranch: testUpdateBranch,
		Footer:       testFooter,
	})
	if opts.FailedFile == "" {
		opts.FailedFile = filepath.Join(t.TempDir(), DefaultFailedRepositoriesFile)
	}
	return NewBatch(client, updater, p, &out, opts), &out
}

func TestBatch_InvalidRepositories(t *testing.T) {
	tests := []struct {
		name  string
		repos []Repository
	}{
		{name: "empty list", repos: []Repository{}},
		{name: "nil list", repos: nil},
		{name: "missing owner", repos: []Repository{widgets, {Repository: "gizmos"}}},
		{name: "missing repository", repos: []Repository{{Owner: "acme"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockAPIClient{}
			p := &scriptedPrompter{}
			batch, out := newTestBatch(t, client, p, BatchOptions{})

			result, err := batch.Run(context.Background(), tt.repos)

			require.Error(t, err)
			assert.Nil(t, result)
			assert.Contains(t, out.String(), "Empty or invalid array of repositories. Aborting...")
			assert.Empty(t, p.asked)
			client.AssertExpectations(t)
			assert.Empty(t, client.Calls)
		})
	}
}

func TestBatch_PerRepositoryActions(t *testing.T) {
	archived := Repository{Owner: "acme", Repository: "old-stuff"}
	locked := Repository{Owner: "acme", Repository: "locked"}
	skipped := Repository{Owner: "acme", Repository: "skipped"}

	client := &MockAPIClient{}
	client.On("ArchiveRepository", mock.Anything, archived).Return(nil)
	client.On("ArchiveRepository", mock.Anything, locked).Return(NewGitHubError(ErrorTypePermission, "Insufficient permissions", nil))
	client.On("GetBranch", mock.Anything, widgets, testUpdateBranch).Return(nil, errNotFound)
	client.On("GetLatestCommit", mock.Anything, widgets, "develop").Return(nil, errNotFound)

	p := &scriptedPrompter{
		// process all, overwrite all, then save failures
		confirms: []bool{false, false, false},
		choices:  []string{ActionArchive, ActionArchive, ActionSkip, ActionProcess},
	}
	batch, out := newTestBatch(t, client, p, BatchOptions{})

	result, err := batch.Run(context.Background(), []Repository{archived, locked, skipped, widgets})
	require.NoError(t, err)

	assert.Equal(t, []RepositoryStatus{
		{Repository: archived, Status: StatusArchived, Message: "Repository was archived by user"},
		{Repository: locked, Status: StatusFailed, Message: "Failed to archive repository"},
		{Repository: skipped, Status: StatusSkipped, Message: "Changes were skipped by user"},
		{Repository: widgets, Status: StatusFailed, Message: "Develop branch not found or latest commit information missing"},
	}, result.Statuses)

	assert.Equal(t, 2, result.Count(StatusFailed))
	assert.Equal(t, []Repository{locked, widgets}, result.Failed())
	assert.Contains(t, out.String(), "Summary:")
	assert.Contains(t, out.String(), "acme/old-stuff - archived - Repository was archived by user")
	// two global questions, four actions and the save question
	assert.Len(t, p.asked, 7)
	client.AssertExpectations(t)
}

func TestBatch_ProcessAllSkipsPerRepositoryQuestion(t *testing.T) {
	client := &MockAPIClient{}
	expectBranchFromBase(client, widgets)
	client.On("GetFileContent", mock.Anything, widgets, "README.md", "develop").
		Return(&FileContent{Content: "# Widgets\n<div id=\"metatavu-custom-footer\">old</div>\n"}, nil)
	expectCommitChain(client, widgets)
	expectPullRequest(client, widgets, true)

	p := &scriptedPrompter{confirms: []bool{true, true}}
	batch, _ := newTestBatch(t, client, p, BatchOptions{})

	result, err := batch.Run(context.Background(), []Repository{widgets})
	require.NoError(t, err)

	assert.Equal(t, StatusSuccessful, result.Statuses[0].Status)
	// process all and overwrite all only: no per-repository or footer question
	assert.Len(t, p.asked, 2)
	client.AssertNotCalled(t, "ArchiveRepository", mock.Anything, mock.Anything)
}

func TestBatch_NonInteractive(t *testing.T) {
	client := &MockAPIClient{}
	client.On("GetBranch", mock.Anything, widgets, testUpdateBranch).Return(nil, errNotFound)
	client.On("GetLatestCommit", mock.Anything, widgets, "develop").Return(nil, errNotFound)
	client.On("GetBranch", mock.Anything, gizmos, testUpdateBranch).Return(nil, errNotFound)
	client.On("GetLatestCommit", mock.Anything, gizmos, "develop").Return(nil, errNotFound)

	failedFile := filepath.Join(t.TempDir(), "failed.json")
	p := &scriptedPrompter{}
	batch, out := newTestBatch(t, client, p, BatchOptions{
		ProcessAll:   true,
		SaveFailures: true,
		FailedFile:   failedFile,
	})

	result, err := batch.Run(context.Background(), []Repository{widgets, gizmos})
	require.NoError(t, err)

	assert.Len(t, result.Statuses, 2)
	assert.Empty(t, p.asked)
	assert.Contains(t, out.String(), "Saved to file")

	loaded, err := LoadFailedRepositories(failedFile)
	require.NoError(t, err)
	assert.Equal(t, []Repository{widgets, gizmos}, loaded)
}

func TestBatch_SavesFailuresWhenAccepted(t *testing.T) {
	client := &MockAPIClient{}
	client.On("GetBranch", mock.Anything, widgets, testUpdateBranch).Return(nil, errNotFound)
	client.On("GetLatestCommit", mock.Anything, widgets, "develop").Return(nil, errNotFound)
	client.On("GetBranch", mock.Anything, gizmos, testUpdateBranch).Return(nil, errNotFound)
	client.On("GetLatestCommit", mock.Anything, gizmos, "develop").Return(nil, errNotFound)
	client.On("ArchiveRepository", mock.Anything, Repository{Owner: "acme", Repository: "archive-me"}).Return(nil)

	failedFile := filepath.Join(t.TempDir(), "failed-repositories.json")
	p := &scriptedPrompter{
		confirms: []bool{false, false, true},
		choices:  []string{ActionProcess, ActionArchive, ActionProcess},
	}
	batch, _ := newTestBatch(t, client, p, BatchOptions{FailedFile: failedFile})

	_, err := batch.Run(context.Background(), []Repository{widgets, {Owner: "acme", Repository: "archive-me"}, gizmos})
	require.NoError(t, err)

	data, err := os.ReadFile(failedFile)
	require.NoError(t, err)

	var saved []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, []map[string]interface{}{
		{"owner": "acme", "repository": "widgets"},
		{"owner": "acme", "repository": "gizmos"},
	}, saved)
}

func TestBatch_NoSaveQuestionWithoutFailures(t *testing.T) {
	client := &MockAPIClient{}
	p := &scriptedPrompter{
		confirms: []bool{false, false},
		choices:  []string{ActionSkip},
	}
	failedFile := filepath.Join(t.TempDir(), "failed.json")
	batch, _ := newTestBatch(t, client, p, BatchOptions{FailedFile: failedFile})

	result, err := batch.Run(context.Background(), []Repository{widgets})
	require.NoError(t, err)

	assert.Equal(t, StatusSkipped, result.Statuses[0].Status)
	assert.Len(t, p.asked, 3)
	assert.NoFileExists(t, failedFile)
}

func TestBatch_CancelledContext(t *testing.T) {
	client := &MockAPIClient{}
	p := &scriptedPrompter{confirms: []bool{true, false}}
	batch, _ := newTestBatch(t, client, p, BatchOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := batch.Run(ctx, []Repository{widgets, gizmos})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Empty(t, result.Statuses)
	assert.Empty(t, client.Calls)
}
