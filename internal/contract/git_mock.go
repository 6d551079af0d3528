package contract

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockGitClient is a mock type for the GitClient type.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Run implements the GitClient interface.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	var mockArgs []any
	mockArgs = append(mockArgs, ctx, repoPath)
	for _, arg := range args {
		mockArgs = append(mockArgs, arg)
	}
	ret := m.Called(mockArgs...)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// GetRepoHash implements the GitClient interface.
func (m *MockGitClient) GetRepoHash(ctx context.Context, repoPath string) (string, error) {
	ret := m.Called(ctx, repoPath)
	return ret.String(0), ret.Error(1)
}

// GetRepoRoot implements the GitClient interface.
func (m *MockGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	ret := m.Called(ctx, contextPath)
	return ret.String(0), ret.Error(1)
}

// BlameLine implements the GitClient interface.
func (m *MockGitClient) BlameLine(ctx context.Context, repoPath string, path string, line int) ([]byte, error) {
	ret := m.Called(ctx, repoPath, path, line)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// GetCommitLog implements the GitClient interface.
func (m *MockGitClient) GetCommitLog(ctx context.Context, repoPath string, fromRef string, toRef string) ([]byte, error) {
	ret := m.Called(ctx, repoPath, fromRef, toRef)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// Fetch implements the GitClient interface.
func (m *MockGitClient) Fetch(ctx context.Context, repoPath string) error {
	ret := m.Called(ctx, repoPath)
	return ret.Error(0)
}
